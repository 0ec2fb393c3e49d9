package vision

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 640, 480))
}

func inferenceServer(t *testing.T, response InferenceResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req InferenceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Image)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func TestDetectorFiltersClassAndConfidence(t *testing.T) {
	server := inferenceServer(t, InferenceResponse{
		Results: []DetectionResult{
			{Name: "person", Score: 0.92, Location: Location{Left: 0.1, Top: 0.2, Width: 0.1, Height: 0.4}},
			{Name: "person", Score: 0.4, Location: Location{Left: 0.5, Top: 0.2, Width: 0.1, Height: 0.4}}, // below threshold
			{Name: "dog", Score: 0.99, Location: Location{Left: 0.3, Top: 0.3, Width: 0.2, Height: 0.2}},   // wrong class
		},
	})
	defer server.Close()

	d := NewInferenceDetector(server.URL)
	count, detections := d.Detect(testImage())

	require.Equal(t, 1, count)
	require.Len(t, detections, 1)

	det := detections[0]
	assert.Equal(t, "person", det.Class)
	assert.Equal(t, 0.92, det.Confidence)
	assert.Equal(t, 0, det.Index)

	// normalized 0.1/0.2/0.1/0.4 of a 640x480 frame
	assert.Equal(t, 64, det.X1)
	assert.Equal(t, 96, det.Y1)
	assert.Equal(t, 128, det.X2)
	assert.Equal(t, 288, det.Y2)
}

func TestDetectorClampsToImageBounds(t *testing.T) {
	server := inferenceServer(t, InferenceResponse{
		Results: []DetectionResult{
			{Name: "person", Score: 0.9, Location: Location{Left: -0.1, Top: -0.1, Width: 1.5, Height: 1.5}},
		},
	})
	defer server.Close()

	d := NewInferenceDetector(server.URL)
	count, detections := d.Detect(testImage())

	require.Equal(t, 1, count)
	det := detections[0]
	assert.Equal(t, 0, det.X1)
	assert.Equal(t, 0, det.Y1)
	assert.Equal(t, 640, det.X2)
	assert.Equal(t, 480, det.Y2)
}

func TestDetectorDegradesWithoutServer(t *testing.T) {
	d := NewInferenceDetector("")

	for i := 0; i < 3; i++ {
		count, detections := d.Detect(testImage())
		assert.Zero(t, count)
		assert.Nil(t, detections)
	}
}

func TestDetectorDegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewInferenceDetector(server.URL)
	count, detections := d.Detect(testImage())
	assert.Zero(t, count)
	assert.Nil(t, detections)
}

func TestDetectorDegradesOnUnreachableServer(t *testing.T) {
	d := NewInferenceDetector("http://127.0.0.1:1/detect")

	count, detections := d.Detect(testImage())
	assert.Zero(t, count)
	assert.Nil(t, detections)
}

func TestDetectorDegradesOnModelError(t *testing.T) {
	server := inferenceServer(t, InferenceResponse{Errno: 5, ErrMsg: "model not loaded"})
	defer server.Close()

	d := NewInferenceDetector(server.URL)
	count, detections := d.Detect(testImage())
	assert.Zero(t, count)
	assert.Nil(t, detections)
}
