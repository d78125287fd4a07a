package dashboard

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/enterprise/anomaly-engine/internal/dashauth"
	"github.com/enterprise/anomaly-engine/internal/metrics"
	"github.com/enterprise/anomaly-engine/internal/models"
)

func newTestServer(t *testing.T) (*Server, *dashauth.JWTManager) {
	t.Helper()
	jwtManager := dashauth.NewJWTManager("test-secret", time.Hour)
	hash, err := dashauth.HashPassword("test-password")
	if err != nil {
		t.Fatalf("HashPassword() returned error: %v", err)
	}
	cfg := Config{
		Environment:       "test",
		AdminUsername:     "operator",
		AdminPasswordHash: hash,
	}
	return New(cfg, metrics.New(), nil, jwtManager, nil), jwtManager
}

func doRequest(s *Server, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/health", nil, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/health = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS header on JSON response")
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if healthy, ok := body["healthy"].(bool); !ok || !healthy {
		t.Errorf(`body["healthy"] = %v, want true`, body["healthy"])
	}
	if _, ok := body["timestamp"]; !ok {
		t.Errorf("body missing timestamp field")
	}
	if _, ok := body["processing_rate"]; !ok {
		t.Errorf("body missing processing_rate field")
	}
	if body["uptime_check"] != "OK" {
		t.Errorf(`body["uptime_check"] = %v, want "OK"`, body["uptime_check"])
	}
}

func TestHealthEndpointReturns503WhenUnhealthy(t *testing.T) {
	s, _ := newTestServer(t)
	s.metrics.RecordProcessed(&models.AnomalyResult{TransactionID: "t1"}, time.Millisecond)
	s.metrics.SetSystemLoad(0.99)

	rec := doRequest(s, http.MethodGet, "/api/health", nil, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /api/health with high system load = %d, want 503", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if healthy, ok := body["healthy"].(bool); !ok || healthy {
		t.Errorf(`body["healthy"] = %v, want false`, body["healthy"])
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/nope", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /nope = %d, want 404", rec.Code)
	}
}

func TestWrongMethodReturns405(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodDelete, "/api/metrics", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/metrics = %d, want 405", rec.Code)
	}
}

func TestAdminThresholdRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(map[string]float64{"anomaly_threshold": 0.5})
	rec := doRequest(s, http.MethodPost, "/api/admin/threshold", body, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("POST /api/admin/threshold without token = %d, want 401", rec.Code)
	}
}

func TestAdminLoginAndThresholdFlow(t *testing.T) {
	s, _ := newTestServer(t)

	loginBody, _ := json.Marshal(map[string]string{"username": "operator", "password": "test-password"})
	loginRec := doRequest(s, http.MethodPost, "/api/admin/login", loginBody, map[string]string{"Content-Type": "application/json"})
	if loginRec.Code != http.StatusOK {
		t.Fatalf("POST /api/admin/login = %d, want 200, body=%s", loginRec.Code, loginRec.Body.String())
	}

	var loginResp loginResponse
	if err := json.Unmarshal(loginRec.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if loginResp.Token == "" {
		t.Fatalf("login response carried no token")
	}

	thresholdBody, _ := json.Marshal(map[string]float64{"anomaly_threshold": 0.42})
	thresholdRec := doRequest(s, http.MethodPost, "/api/admin/threshold", thresholdBody, map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + loginResp.Token,
	})
	if thresholdRec.Code != http.StatusOK {
		t.Fatalf("POST /api/admin/threshold with valid token = %d, want 200, body=%s", thresholdRec.Code, thresholdRec.Body.String())
	}

	got, ok := s.LastThreshold()
	if !ok || got != 0.42 {
		t.Errorf("LastThreshold() = (%v, %v), want (0.42, true)", got, ok)
	}
}

func TestResultLookupWithoutCacheReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/results/does-not-exist", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/results/:id without cache = %d, want 404", rec.Code)
	}
}
