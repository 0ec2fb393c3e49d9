package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fallwatch/camera"
	"fallwatch/common/config"
	"fallwatch/common/log"
	"fallwatch/common/metrics"
	"fallwatch/overlay"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// WebServer is the thin HTTP layer in front of the camera manager: status
// feed, source control and the MJPEG stream of annotated frames.
type WebServer struct {
	manager    *camera.Manager
	metrics    *metrics.Metrics
	uploadsDir string
	port       int
}

// APIResponse is the JSON envelope for control endpoints
type APIResponse struct {
	Success  bool        `json:"success"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	CameraID int         `json:"camera_id,omitempty"`
}

// NewWebServer creates a web server bound to the given manager
func NewWebServer(manager *camera.Manager, m *metrics.Metrics, uploadsDir string, port int) *WebServer {
	return &WebServer{
		manager:    manager,
		metrics:    m,
		uploadsDir: uploadsDir,
		port:       port,
	}
}

// Start serves the API until the listener fails
func (ws *WebServer) Start() error {
	log.Info(fmt.Sprintf("starting web server on port %d", ws.port))
	return http.ListenAndServe(fmt.Sprintf(":%d", ws.port), ws.Router())
}

// Router builds the HTTP routes
func (ws *WebServer) Router() *mux.Router {
	router := mux.NewRouter()

	// Add CORS middleware
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/", ws.handleIndex).Methods("GET")
	router.HandleFunc("/status", ws.handleStatus).Methods("GET")
	router.HandleFunc("/set_ip", ws.handleSetIP).Methods("POST", "OPTIONS")
	router.HandleFunc("/upload", ws.handleUpload).Methods("POST", "OPTIONS")
	router.HandleFunc("/close_camera/{id}", ws.handleCloseCamera).Methods("POST", "OPTIONS")
	router.HandleFunc("/video_feed/{id}", ws.handleVideoFeed).Methods("GET")
	router.HandleFunc("/uploads/{filename}", ws.handleUploadedFile).Methods("GET")
	router.Handle("/metrics", ws.metrics.Handler()).Methods("GET")

	return router
}

// handleIndex serves a minimal landing page
func (ws *WebServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Write([]byte(`<!DOCTYPE html>
<html><head><title>Fall Detection System</title></head>
<body><h1>Fall Detection System</h1>
<p><a href="/status">Camera Status</a></p>
<p><a href="/video_feed/1">Camera 1 Feed</a></p>
<p><a href="/metrics">Metrics</a></p>
</body></html>`))
}

// handleStatus returns the status of all camera slots
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ws.manager.StatusAll())
}

type setIPRequest struct {
	CameraID int    `json:"camera_id"`
	IP       string `json:"ip"`
}

// handleSetIP attaches a (simulated) IP camera to a slot
func (ws *WebServer) handleSetIP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req setIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.IP == "" {
		writeError(w, http.StatusBadRequest, "IP address required", nil)
		return
	}

	if err := ws.manager.SetSource(req.CameraID, camera.SourceIPCamera, req.IP); err != nil {
		writeError(w, http.StatusBadRequest, "failed to start camera", err)
		return
	}

	json.NewEncoder(w).Encode(APIResponse{
		Success:  true,
		Message:  fmt.Sprintf("IP camera %s set for Camera %d", req.IP, req.CameraID),
		CameraID: req.CameraID,
	})
}

// handleUpload stores the uploaded video and attaches it to the slot
func (ws *WebServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file part", err)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no selected file", nil)
		return
	}

	cameraID := 1
	if idStr := r.FormValue("camera_id"); idStr != "" {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid camera_id", err)
			return
		}
		cameraID = id
	}

	if err := os.MkdirAll(ws.uploadsDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create uploads directory", err)
		return
	}

	// unique name keeps repeated uploads of the same file apart
	timestamp := time.Now().Format("20060102_150405")
	shortID := strings.Split(uuid.New().String(), "-")[0]
	ext := filepath.Ext(header.Filename)
	filename := fmt.Sprintf("camera_%d_%s_%s%s", cameraID, timestamp, shortID, ext)
	path := filepath.Join(ws.uploadsDir, filename)

	out, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save file", err)
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		writeError(w, http.StatusInternalServerError, "failed to save file", err)
		return
	}
	out.Close()

	if err := ws.manager.SetSource(cameraID, camera.SourceVideoFile, path); err != nil {
		writeError(w, http.StatusBadRequest, "failed to start camera", err)
		return
	}

	json.NewEncoder(w).Encode(APIResponse{
		Success:  true,
		Message:  "File uploaded successfully",
		Data:     map[string]string{"filename": filename},
		CameraID: cameraID,
	})
}

// handleCloseCamera stops the camera and marks it offline
func (ws *WebServer) handleCloseCamera(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := cameraIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid camera id", err)
		return
	}

	if err := ws.manager.Close(id); err != nil {
		writeError(w, http.StatusNotFound, "camera not found", err)
		return
	}

	json.NewEncoder(w).Encode(APIResponse{
		Success:  true,
		Message:  fmt.Sprintf("Camera %d closed", id),
		CameraID: id,
	})
}

// handleVideoFeed streams annotated frames as multipart MJPEG. When the
// sink stays empty a placeholder frame is substituted and the loop backs
// off, mirroring a camera without feed.
func (ws *WebServer) handleVideoFeed(w http.ResponseWriter, r *http.Request) {
	id, err := cameraIDFromPath(r)
	if err != nil {
		http.Error(w, "invalid camera id", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		frame, ok := ws.manager.NextFrame(id, config.DefaultGetFrameTimeout)

		var buf bytes.Buffer
		if ok {
			err = jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 90})
		} else {
			err = jpeg.Encode(&buf, overlay.Placeholder(id), &jpeg.Options{Quality: 90})
		}
		if err != nil {
			log.Warn(fmt.Sprintf("failed to encode frame for camera %d: %v", id, err))
			return
		}

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
			return
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
			return
		}
		flusher.Flush()

		if ok {
			time.Sleep(config.SyntheticFrameInterval) // ~30 FPS
		} else {
			time.Sleep(time.Second)
		}
	}
}

// handleUploadedFile serves previously uploaded videos
func (ws *WebServer) handleUploadedFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filename := filepath.Base(vars["filename"])
	http.ServeFile(w, r, filepath.Join(ws.uploadsDir, filename))
}

func cameraIDFromPath(r *http.Request) (int, error) {
	vars := mux.Vars(r)
	return strconv.Atoi(vars["id"])
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
	}
	if err != nil {
		response.Error = err.Error()
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
