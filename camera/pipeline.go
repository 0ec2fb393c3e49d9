package camera

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"fallwatch/common/config"
	"fallwatch/common/log"
	"fallwatch/common/metrics"
	"fallwatch/overlay"
	"fallwatch/sink"
	"fallwatch/source"
	"fallwatch/vision"
)

type pipelineState int

const (
	stateIdle pipelineState = iota
	stateRunning
	stateStopped
)

// Pipeline drives one camera's frame processing: source -> detector -> fall
// classifier -> annotator -> sink, with the status registry updated after
// every frame. A pipeline instance runs at most once; stopping it is final
// and a fresh instance is built for the next source.
type Pipeline struct {
	cameraID  int
	detector  vision.Detector
	annotator *overlay.Annotator
	sink      *sink.FrameSink
	registry  *StatusRegistry
	metrics   *metrics.Metrics

	stats RunningStats

	mu       sync.Mutex
	state    pipelineState
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewPipeline creates an idle pipeline for the given camera slot
func NewPipeline(cameraID int, detector vision.Detector, frameSink *sink.FrameSink, registry *StatusRegistry, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cameraID:  cameraID,
		detector:  detector,
		annotator: overlay.NewAnnotator(cameraID),
		sink:      frameSink,
		registry:  registry,
		metrics:   m,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Stats exposes the running counters, mainly for tests and diagnostics
func (p *Pipeline) Stats() *RunningStats {
	return &p.stats
}

// Start opens the source and launches the worker. Valid only while the
// pipeline is idle.
func (p *Pipeline) Start(src source.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateIdle {
		return fmt.Errorf("pipeline for camera %d already started", p.cameraID)
	}

	if err := src.Open(); err != nil {
		return fmt.Errorf("failed to open source for camera %d: %v", p.cameraID, err)
	}

	p.state = stateRunning
	go p.run(src)

	return nil
}

// run is the worker loop. It ends when the source is exhausted, a persistent
// source error occurs, or Stop is called.
func (p *Pipeline) run(src source.Source) {
	p.metrics.ActivePipelines.Inc()
	label := metrics.CameraLabel(p.cameraID)

	defer func() {
		src.Close()
		p.metrics.ActivePipelines.Dec()
		close(p.done)
		log.Info(fmt.Sprintf("camera %d worker stopped after %d frames", p.cameraID, p.stats.Frames()))
	}()

	// the FRAME_RATE env cap wins over the source's native cadence
	interval := src.Interval()
	if config.GlobalFrameInterval > interval {
		interval = config.GlobalFrameInterval
	}

	for {
		select {
		case <-p.stopChan:
			return
		default:
		}

		frame, err := src.Next(config.DefaultGetFrameTimeout)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info(fmt.Sprintf("camera %d source exhausted", p.cameraID))
				return
			}
			if errors.Is(err, source.ErrFrameTimeout) {
				// slow source, try again
				continue
			}
			log.Warn(fmt.Sprintf("camera %d source error: %v", p.cameraID, err))
			return
		}

		if err := p.processFrame(frame, label); err != nil {
			// keep the worker alive, a single bad frame is not fatal
			log.Error(fmt.Sprintf("camera %d frame processing failed: %v", p.cameraID, err))
		}

		select {
		case <-p.stopChan:
			return
		case <-time.After(interval):
		}
	}
}

// processFrame runs one frame through detection, classification and
// annotation, then publishes the result. Panics are contained here so a bad
// frame never kills the camera worker.
func (p *Pipeline) processFrame(frame *source.Frame, label string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	detections := frame.Detections
	count := len(detections)
	if detections == nil {
		// the source did not supply detections, ask the model
		count, detections = p.detector.Detect(frame.Image)
	}

	bounds := frame.Image.Bounds()
	verdict := vision.ClassifyFall(detections, bounds.Dx(), bounds.Dy())

	p.stats.Update(count)

	annotated := p.annotator.Annotate(frame.Image, detections, count, verdict, overlay.Stats{
		Avg: p.stats.Avg(),
		Max: p.stats.Max(),
	})

	if dropped := p.sink.Push(annotated); dropped {
		p.metrics.FramesDropped.WithLabelValues(label).Inc()
	}

	p.registry.UpdateFrame(p.cameraID, count, verdict.IsFall)

	p.metrics.FramesProcessed.WithLabelValues(label).Inc()
	p.metrics.PeopleDetected.WithLabelValues(label).Add(float64(count))
	if verdict.IsFall {
		p.metrics.FallsDetected.WithLabelValues(label).Inc()
	}

	return nil
}

// Stop signals the worker to end, waits for it with a bounded timeout and
// drains the sink so no stale frame survives into the next pipeline
// generation. The running stats are deliberately left untouched.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	started := p.state == stateRunning
	p.state = stateStopped
	p.mu.Unlock()

	p.stopOnce.Do(func() {
		close(p.stopChan)
	})

	if started {
		select {
		case <-p.done:
		case <-time.After(config.PipelineJoinTimeout):
			log.Warn(fmt.Sprintf("camera %d worker did not stop within %v, proceeding", p.cameraID, config.PipelineJoinTimeout))
		}
	}

	p.sink.Drain()
}
