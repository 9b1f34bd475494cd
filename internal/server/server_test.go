package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/nextlevelbuilder/lingorelay/internal/config"
)

type fakeStats struct{ routes, correlations int }

func (f fakeStats) Routes() int       { return f.routes }
func (f fakeStats) Correlations() int { return f.correlations }

// TestHandleHealth verifies the liveness payload shape.
func TestHandleHealth(t *testing.T) {
	s := New(config.ServerConfig{}, fakeStats{routes: 3, correlations: 42}, "1.2.3")

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status       string `json:"status"`
		Version      string `json:"version"`
		Routes       int    `json:"routes"`
		Correlations int    `json:"correlations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" || body.Version != "1.2.3" || body.Routes != 3 || body.Correlations != 42 {
		t.Fatalf("body = %+v", body)
	}
}
