package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataconf/stratum"
	"github.com/strataconf/stratum/pkg/adapters/memsource"
	"github.com/strataconf/stratum/pkg/config"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	src := memsource.New()
	require.NoError(t, src.AddClass("common", "applications: [ssh]"))
	require.NoError(t, src.AddNode("web01", "classes: [common]\nparameters:\n  role: web"))

	svc, err := stratum.New("", stratum.WithSource(src), stratum.WithConfig(config.Default()))
	require.NoError(t, err)
	return NewHandler(svc, svc.Metrics())
}

func TestGetHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	newTestHandler(t).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok\n", rr.Body.String())
}

func TestGetNodeYAML(t *testing.T) {
	rr := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nodes/web01", nil)
	newTestHandler(t).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/yaml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "role: web")
	assert.Contains(t, rr.Body.String(), "classes:")
}

func TestGetNodeJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nodes/web01", nil)
	req.Header.Set("Accept", "application/json")
	newTestHandler(t).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json"))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp, "parameters")
	assert.Contains(t, resp, "__reclass__")
}

func TestGetNodeNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nodes/ghost", nil)
	newTestHandler(t).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetMetrics(t *testing.T) {
	handler := newTestHandler(t)

	rr := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/nodes/web01", nil)
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `stratum_node_resolutions_total{outcome="ok"} 1`)
}

func TestGetInventory(t *testing.T) {
	rr := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/inventory", nil)
	newTestHandler(t).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "nodes:")
	assert.Contains(t, body, "web01")
	assert.Contains(t, body, "applications:")
}
