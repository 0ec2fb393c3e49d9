package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fallwatch/camera"
	"fallwatch/common/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *WebServer {
	t.Helper()
	m := metrics.New()
	manager := camera.NewManager(camera.NewStatusRegistry(), m, "")
	t.Cleanup(manager.StopAll)
	return NewWebServer(manager, m, t.TempDir(), 0)
}

func doJSON(t *testing.T, ws *WebServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ws.Router().ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	ws := newTestServer(t)

	rec := doJSON(t, ws, "GET", "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]camera.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Len(t, status, 4)
	for _, s := range status {
		assert.Equal(t, camera.SourceOffline, s.Type)
	}
}

func TestSetIPStartsSimulatedCamera(t *testing.T) {
	ws := newTestServer(t)

	rec := doJSON(t, ws, "POST", "/set_ip", map[string]interface{}{
		"camera_id": 1,
		"ip":        "192.168.1.42",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.CameraID)

	status, err := ws.manager.Status(1)
	require.NoError(t, err)
	assert.Equal(t, camera.SourceIPCamera, status.Type)
	assert.Equal(t, "192.168.1.42", status.URL)
}

func TestSetIPValidation(t *testing.T) {
	ws := newTestServer(t)

	rec := doJSON(t, ws, "POST", "/set_ip", map[string]interface{}{"camera_id": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, ws, "POST", "/set_ip", map[string]interface{}{
		"camera_id": 9,
		"ip":        "10.0.0.1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest("POST", "/set_ip", strings.NewReader("{not json"))
	rec2 := httptest.NewRecorder()
	ws.Router().ServeHTTP(rec2, req)
	assert.Equal(t, http.StatusBadRequest, rec2.Code)
}

func TestCloseCamera(t *testing.T) {
	ws := newTestServer(t)

	rec := doJSON(t, ws, "POST", "/set_ip", map[string]interface{}{
		"camera_id": 2,
		"ip":        "10.0.0.5",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, ws, "POST", "/close_camera/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status, err := ws.manager.Status(2)
	require.NoError(t, err)
	assert.Equal(t, camera.SourceOffline, status.Type)
}

func TestCloseCameraInvalidID(t *testing.T) {
	ws := newTestServer(t)

	rec := doJSON(t, ws, "POST", "/close_camera/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, ws, "POST", "/close_camera/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRequiresFilePart(t *testing.T) {
	ws := newTestServer(t)

	req := httptest.NewRequest("POST", "/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
	rec := httptest.NewRecorder()
	ws.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ws := newTestServer(t)

	rec := doJSON(t, ws, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fallwatch_active_pipelines")
}

func TestCORSPreflight(t *testing.T) {
	ws := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/set_ip", nil)
	rec := httptest.NewRecorder()
	ws.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
