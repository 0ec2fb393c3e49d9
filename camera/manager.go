package camera

import (
	"fmt"
	"image"
	"sync"
	"time"

	"fallwatch/common/config"
	"fallwatch/common/log"
	"fallwatch/common/metrics"
	"fallwatch/sink"
	"fallwatch/source"
	"fallwatch/vision"
)

// Manager owns the per-camera pipelines and their sinks. It upholds the
// one-worker-per-camera invariant: attaching a new source always stops the
// previous pipeline for that slot before the replacement starts.
type Manager struct {
	registry     *StatusRegistry
	metrics      *metrics.Metrics
	inferenceURL string

	mu        sync.Mutex
	pipelines map[int]*Pipeline
	sinks     map[int]*sink.FrameSink
}

// NewManager creates a manager with one sink per camera slot. Sinks persist
// across pipeline generations; stopped pipelines leave them drained.
func NewManager(registry *StatusRegistry, m *metrics.Metrics, inferenceURL string) *Manager {
	sinks := make(map[int]*sink.FrameSink, config.CameraCount)
	for id := 1; id <= config.CameraCount; id++ {
		sinks[id] = sink.New(config.FrameQueueSize)
	}

	return &Manager{
		registry:     registry,
		metrics:      m,
		inferenceURL: inferenceURL,
		pipelines:    make(map[int]*Pipeline, config.CameraCount),
		sinks:        sinks,
	}
}

// Registry exposes the status registry backing this manager
func (m *Manager) Registry() *StatusRegistry {
	return m.registry
}

// Status returns the camera's current status
func (m *Manager) Status(id int) (Status, error) {
	status, exists := m.registry.Get(id)
	if !exists {
		return Status{}, fmt.Errorf("invalid camera id %d", id)
	}
	return status, nil
}

// StatusAll returns the status of every camera slot
func (m *Manager) StatusAll() map[int]Status {
	return m.registry.Snapshot()
}

// SetSource attaches a source to the camera slot: any running pipeline for
// the slot is fully stopped first, the status is reset to the new source,
// and a fresh pipeline instance is started.
func (m *Manager) SetSource(id int, kind SourceType, locator string) error {
	if !m.registry.Valid(id) {
		return fmt.Errorf("invalid camera id %d", id)
	}

	var src source.Source
	switch kind {
	case SourceVideoFile:
		src = source.NewFileSource(locator)
	case SourceIPCamera:
		src = source.NewSyntheticSource(locator)
	default:
		return fmt.Errorf("unsupported source type %q for camera %d", kind, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, exists := m.pipelines[id]; exists {
		prev.Stop()
		delete(m.pipelines, id)
	}

	m.registry.SetSource(id, kind, locator)

	pipeline := NewPipeline(id, vision.NewInferenceDetector(m.inferenceURL), m.sinks[id], m.registry, m.metrics)
	if err := pipeline.Start(src); err != nil {
		m.registry.SetOffline(id)
		return err
	}
	m.pipelines[id] = pipeline

	log.Info(fmt.Sprintf("camera %d source set: %s (%s)", id, kind, locator))
	return nil
}

// Close stops the camera's pipeline and resets its status to offline
func (m *Manager) Close(id int) error {
	if !m.registry.Valid(id) {
		return fmt.Errorf("invalid camera id %d", id)
	}

	m.registry.SetOffline(id)

	m.mu.Lock()
	pipeline, exists := m.pipelines[id]
	if exists {
		delete(m.pipelines, id)
	}
	m.mu.Unlock()

	if exists {
		pipeline.Stop()
	}

	log.Info(fmt.Sprintf("camera %d closed", id))
	return nil
}

// NextFrame pops the oldest annotated frame for the camera, blocking up to
// timeout. The second return value is false when no frame arrived.
func (m *Manager) NextFrame(id int, timeout time.Duration) (*image.RGBA, bool) {
	if !m.registry.Valid(id) {
		return nil, false
	}
	return m.sinks[id].Pop(timeout)
}

// StopAll stops every running pipeline, used on shutdown
func (m *Manager) StopAll() {
	m.mu.Lock()
	pipelines := make([]*Pipeline, 0, len(m.pipelines))
	for id, pipeline := range m.pipelines {
		pipelines = append(pipelines, pipeline)
		delete(m.pipelines, id)
	}
	m.mu.Unlock()

	for _, pipeline := range pipelines {
		pipeline.Stop()
	}
}
