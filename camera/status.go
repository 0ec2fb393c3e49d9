package camera

import (
	"sync"
	"time"

	"fallwatch/common/config"
)

// SourceType identifies what kind of source feeds a camera slot
type SourceType string

const (
	SourceOffline   SourceType = "offline"
	SourceIPCamera  SourceType = "ip_camera"
	SourceVideoFile SourceType = "video_file"
)

// Status is the externally visible state of one camera slot
type Status struct {
	Type      SourceType `json:"type"`
	URL       string     `json:"url,omitempty"`
	Count     int        `json:"count"`
	Fall      bool       `json:"fall"`
	Timestamp string     `json:"timestamp,omitempty"`
}

// StatusRegistry holds the status of every camera slot. All slots exist from
// construction onward and are never deleted, only reset to offline. A single
// lock guards the whole collection; writes are a few per second per camera.
type StatusRegistry struct {
	mu     sync.RWMutex
	status map[int]*Status
}

// NewStatusRegistry creates a registry with every camera slot offline
func NewStatusRegistry() *StatusRegistry {
	r := &StatusRegistry{
		status: make(map[int]*Status, config.CameraCount),
	}
	for id := 1; id <= config.CameraCount; id++ {
		r.status[id] = &Status{Type: SourceOffline}
	}
	return r
}

// Valid reports whether id names a managed camera slot
func (r *StatusRegistry) Valid(id int) bool {
	return id >= 1 && id <= config.CameraCount
}

// Get returns a copy of the slot's status
func (r *StatusRegistry) Get(id int) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, exists := r.status[id]
	if !exists {
		return Status{}, false
	}
	return *status, true
}

// Snapshot returns a copy of every slot's status
func (r *StatusRegistry) Snapshot() map[int]Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[int]Status, len(r.status))
	for id, status := range r.status {
		snapshot[id] = *status
	}
	return snapshot
}

// SetSource records a source change for the slot, resetting count and fall
func (r *StatusRegistry) SetSource(id int, sourceType SourceType, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.status[id]; !exists {
		return
	}
	r.status[id] = &Status{
		Type:      sourceType,
		URL:       url,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// SetOffline resets the slot to its initial offline state
func (r *StatusRegistry) SetOffline(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.status[id]; !exists {
		return
	}
	r.status[id] = &Status{Type: SourceOffline}
}

// UpdateFrame records the outcome of one processed frame. Only count, fall
// and timestamp change; the source type and locator are owned by the
// collaborator that configured the slot.
func (r *StatusRegistry) UpdateFrame(id int, count int, fall bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, exists := r.status[id]
	if !exists {
		return
	}
	status.Count = count
	status.Fall = fall
	status.Timestamp = time.Now().Format(time.RFC3339)
}
