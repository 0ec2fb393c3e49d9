package vision

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"sync"
	"time"

	"fallwatch/common/config"
	"fallwatch/common/log"
)

// Detector produces person detections for a single frame. Implementations
// must never fail the caller: when the underlying model is unavailable they
// degrade to zero detections.
type Detector interface {
	Detect(img image.Image) (int, []Detection)
}

// InferenceDetector sends frames to an HTTP inference server for person
// detection. An empty server URL disables detection entirely.
type InferenceDetector struct {
	serverURL string
	client    *http.Client
	warnOnce  sync.Once
}

// InferenceRequest represents the request to the inference server
type InferenceRequest struct {
	Image     string `json:"image"`      // Base64 encoded JPEG
	ModelType string `json:"model_type"` // Model type to use
}

// InferenceResponse represents the response from the inference server
type InferenceResponse struct {
	Errno   int               `json:"errno"`
	ErrMsg  string            `json:"err_msg"`
	Results []DetectionResult `json:"results"`
}

// DetectionResult represents a single detection result from the server
type DetectionResult struct {
	Name     string   `json:"name"`  // class name, e.g. "person"
	Score    float64  `json:"score"` // confidence in [0,1]
	Location Location `json:"location"`
}

// Location represents the normalized location of a detected object
type Location struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewInferenceDetector creates a detector backed by the given inference
// server URL. An empty URL yields a detector that always reports no people.
func NewInferenceDetector(serverURL string) *InferenceDetector {
	return &InferenceDetector{
		serverURL: serverURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Detect returns the people count and detections for one frame. Any failure
// (server down, malformed response) degrades to (0, nil) after a warn log so
// the camera worker keeps running.
func (d *InferenceDetector) Detect(img image.Image) (int, []Detection) {
	if d.serverURL == "" {
		d.warnOnce.Do(func() {
			log.Warn("no inference server configured, person detection disabled")
		})
		return 0, nil
	}

	detections, err := d.detect(img)
	if err != nil {
		log.Warn(fmt.Sprintf("person detection failed: %v", err))
		return 0, nil
	}

	return len(detections), detections
}

func (d *InferenceDetector) detect(img image.Image) ([]Detection, error) {
	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %v", err)
	}

	request := InferenceRequest{
		Image:     base64.StdEncoding.EncodeToString(jpegBuf.Bytes()),
		ModelType: config.PersonClass,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	resp, err := d.client.Post(d.serverURL, "application/json", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to send request to inference server: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > 0 && body[0] == '<' {
			return nil, fmt.Errorf("inference server returned HTML (status %d) - check if service is running at %s", resp.StatusCode, d.serverURL)
		}
		return nil, fmt.Errorf("inference server returned status %d: %s", resp.StatusCode, string(body))
	}

	var response InferenceResponse
	if err := json.Unmarshal(body, &response); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, fmt.Errorf("failed to parse response: %v (response preview: %s)", err, preview)
	}

	if response.Errno != 0 {
		return nil, fmt.Errorf("inference failed: %s (errno: %d)", response.ErrMsg, response.Errno)
	}

	bounds := img.Bounds()
	imgWidth := bounds.Dx()
	imgHeight := bounds.Dy()

	// The server returns normalized coordinates [0,1]; convert to pixels
	// and keep only confident person detections.
	var detections []Detection
	for _, result := range response.Results {
		if result.Name != config.PersonClass {
			continue
		}
		if result.Score <= config.PersonConfidenceThreshold {
			continue
		}

		x1 := int(result.Location.Left * float64(imgWidth))
		y1 := int(result.Location.Top * float64(imgHeight))
		x2 := int((result.Location.Left + result.Location.Width) * float64(imgWidth))
		y2 := int((result.Location.Top + result.Location.Height) * float64(imgHeight))

		if x1 < 0 {
			x1 = 0
		}
		if y1 < 0 {
			y1 = 0
		}
		if x2 > imgWidth {
			x2 = imgWidth
		}
		if y2 > imgHeight {
			y2 = imgHeight
		}

		if x2 <= x1 || y2 <= y1 {
			log.Debug(fmt.Sprintf("skipping invalid box coordinates: (%d,%d,%d,%d)", x1, y1, x2, y2))
			continue
		}

		detections = append(detections, Detection{
			Class:      config.PersonClass,
			Confidence: result.Score,
			X1:         x1,
			Y1:         y1,
			X2:         x2,
			Y2:         y2,
			Index:      len(detections),
		})
	}

	if config.GlobalDebugMode && len(detections) > 0 {
		log.Debug(fmt.Sprintf("detected %d people from inference server", len(detections)))
	}

	return detections, nil
}
