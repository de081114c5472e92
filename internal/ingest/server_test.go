package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/metricbridge/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingDispatcher struct {
	batches [][]model.Sample
	err     error
}

func (d *recordingDispatcher) Process(ctx context.Context, batch []model.Sample) error {
	d.batches = append(d.batches, batch)
	return d.err
}

func newTestServer(t *testing.T) (*recordingDispatcher, *gin.Engine) {
	t.Helper()
	dispatcher := &recordingDispatcher{}
	srv := NewServer("", dispatcher, nil)
	srv.startTime = time.Now()

	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/v1/batch", srv.handleBatch)
	r.GET("/healthz", srv.handleHealth)

	return dispatcher, r
}

func TestBatchEndpoint(t *testing.T) {
	dispatcher, r := newTestServer(t)

	body := `[
		{"resource_id": "r1", "counter_name": "cpu_util", "counter_volume": 12.5, "timestamp": "2026-08-01T12:00:00Z"},
		{"resource_id": "r1", "counter_name": "memory", "counter_volume": 512, "timestamp": "2026-08-01T12:00:00Z"}
	]`
	req := httptest.NewRequest(http.MethodPost, "/v1/batch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("batch status = %d, want %d; body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["accepted"] != float64(2) {
		t.Errorf("accepted = %v, want 2", resp["accepted"])
	}

	if len(dispatcher.batches) != 1 {
		t.Fatalf("dispatched batches = %d, want 1", len(dispatcher.batches))
	}
	got := dispatcher.batches[0]
	if len(got) != 2 || got[0].CounterName != "cpu_util" || got[1].CounterVolume != 512 {
		t.Errorf("dispatched batch = %+v", got)
	}
}

func TestBatchEndpoint_InvalidJSON(t *testing.T) {
	dispatcher, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/batch", bytes.NewBufferString(`{"not": "an array"`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if len(dispatcher.batches) != 0 {
		t.Errorf("dispatched batches = %d, want 0", len(dispatcher.batches))
	}
}

func TestBatchEndpoint_DispatchFailure(t *testing.T) {
	dispatcher, r := newTestServer(t)
	dispatcher.err = errors.New("identity service unreachable")

	req := httptest.NewRequest(http.MethodPost, "/v1/batch", bytes.NewBufferString(`[{"resource_id": "r1", "counter_name": "cpu_util"}]`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// The sender should retry the whole batch later.
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("dispatch failure status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestBatchEndpoint_WrongMethod(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/batch", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("batch GET status = %d, want 405 or 404", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
}
