package camera

import (
	"testing"

	"fallwatch/common/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInitAllOffline(t *testing.T) {
	r := NewStatusRegistry()

	snapshot := r.Snapshot()
	require.Len(t, snapshot, config.CameraCount)

	for id := 1; id <= config.CameraCount; id++ {
		status, exists := r.Get(id)
		require.True(t, exists)
		assert.Equal(t, SourceOffline, status.Type)
		assert.Equal(t, 0, status.Count)
		assert.False(t, status.Fall)
	}
}

func TestRegistryInvalidID(t *testing.T) {
	r := NewStatusRegistry()

	_, exists := r.Get(0)
	assert.False(t, exists)
	_, exists = r.Get(config.CameraCount + 1)
	assert.False(t, exists)

	assert.False(t, r.Valid(0))
	assert.True(t, r.Valid(1))
	assert.True(t, r.Valid(config.CameraCount))
	assert.False(t, r.Valid(config.CameraCount+1))
}

func TestRegistrySetSourceResetsCounters(t *testing.T) {
	r := NewStatusRegistry()

	r.SetSource(2, SourceVideoFile, "uploads/clip.mp4")
	r.UpdateFrame(2, 5, true)

	status, _ := r.Get(2)
	assert.Equal(t, 5, status.Count)
	assert.True(t, status.Fall)

	r.SetSource(2, SourceIPCamera, "192.168.1.20")

	status, _ = r.Get(2)
	assert.Equal(t, SourceIPCamera, status.Type)
	assert.Equal(t, "192.168.1.20", status.URL)
	assert.Equal(t, 0, status.Count)
	assert.False(t, status.Fall)
}

func TestRegistryUpdateFramePreservesSource(t *testing.T) {
	r := NewStatusRegistry()
	r.SetSource(1, SourceVideoFile, "uploads/clip.mp4")

	r.UpdateFrame(1, 3, false)

	status, _ := r.Get(1)
	assert.Equal(t, SourceVideoFile, status.Type)
	assert.Equal(t, "uploads/clip.mp4", status.URL)
	assert.Equal(t, 3, status.Count)
	assert.NotEmpty(t, status.Timestamp)
}

func TestRegistrySetOffline(t *testing.T) {
	r := NewStatusRegistry()
	r.SetSource(3, SourceIPCamera, "10.0.0.5")
	r.UpdateFrame(3, 2, true)

	r.SetOffline(3)

	status, exists := r.Get(3)
	require.True(t, exists) // slots are reset, never deleted
	assert.Equal(t, SourceOffline, status.Type)
	assert.Empty(t, status.URL)
	assert.Equal(t, 0, status.Count)
	assert.False(t, status.Fall)
}
