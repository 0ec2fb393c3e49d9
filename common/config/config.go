package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"fallwatch/common/log"

	"github.com/pkg/errors"
)

const (
	UploadsDir     = "uploads"
	DefaultWebPort = 5000

	// CameraCount is the number of camera slots the platform manages.
	CameraCount = 4

	// FrameQueueSize bounds the per-camera annotated frame queue.
	FrameQueueSize = 10

	// PersonConfidenceThreshold filters weak detections from the model.
	PersonConfidenceThreshold = 0.5

	// PersonClass is the only detection class the platform cares about.
	PersonClass = "person"

	// Fall heuristic thresholds: a box counts as a fall when it is wider
	// than tall, sits low in the frame and covers a large vertical span.
	FallAspectRatioMax  = 0.8
	FallCenterYFraction = 0.6
	FallHeightFraction  = 0.3

	// SyntheticFrameInterval is the cadence of the simulated IP camera feed.
	SyntheticFrameInterval = 33 * time.Millisecond

	// DefaultFileFPS is used when the source file does not report a frame rate.
	DefaultFileFPS = 30

	// PipelineJoinTimeout bounds how long Stop waits for a worker to exit.
	PipelineJoinTimeout = 2 * time.Second

	DefaultGetFrameTimeout = 1 * time.Second
)

var (
	GlobalFrameRate     int
	GlobalFrameInterval time.Duration
	GlobalDebugMode     bool
)

// Config application configuration structure
type Config struct {
	InferenceURL string `json:"inference_url"` // person detection server, empty disables detection
	WebPort      int    `json:"web_port"`      // web interface port
	UploadsDir   string `json:"uploads_dir"`   // uploaded video storage
	DebugMode    bool   `json:"debug_mode"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		InferenceURL: "",
		WebPort:      DefaultWebPort,
		UploadsDir:   UploadsDir,
		DebugMode:    false,
	}
}

// Load loads configuration from file, creating a default file when missing
func Load(filename string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		// config file does not exist, create default config file
		if err := Save(config, filename); err != nil {
			return nil, errors.Wrap(err, "failed to create default config")
		}
		log.Info(fmt.Sprintf("created default config file: %s", filename))
		return config, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	if config.UploadsDir == "" {
		config.UploadsDir = UploadsDir
	}
	if config.WebPort <= 0 {
		config.WebPort = DefaultWebPort
	}

	return config, nil
}

// Save saves configuration to file
func Save(config *Config, filename string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	return nil
}

// InitFrameRate initializes frame rate configuration from environment variable
func InitFrameRate() {
	// Read frame rate from environment variable, default to 30
	frameRateStr := os.Getenv("FRAME_RATE")
	if frameRateStr == "" {
		GlobalFrameRate = DefaultFileFPS
	} else {
		if fps, err := strconv.Atoi(frameRateStr); err != nil {
			log.Warn(fmt.Sprintf("invalid FRAME_RATE value '%s', using default %d FPS", frameRateStr, DefaultFileFPS))
			GlobalFrameRate = DefaultFileFPS
		} else if fps <= 0 || fps > 120 {
			log.Warn(fmt.Sprintf("FRAME_RATE %d out of range (1-120), using default %d FPS", fps, DefaultFileFPS))
			GlobalFrameRate = DefaultFileFPS
		} else {
			GlobalFrameRate = fps
		}
	}

	GlobalFrameInterval = time.Duration(1000/GlobalFrameRate) * time.Millisecond

	log.Info(fmt.Sprintf("frame rate limit: %d FPS (interval: %v)", GlobalFrameRate, GlobalFrameInterval))
}

// InitDebugMode initializes DEBUG mode from environment variable
func InitDebugMode() {
	debugStr := os.Getenv("DEBUG")
	GlobalDebugMode = debugStr != "" && debugStr != "0" && debugStr != "false"

	if GlobalDebugMode {
		log.Info("DEBUG MODE ENABLED - per-frame detection details will be logged")
	}
}
