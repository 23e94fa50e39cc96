package runtime

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestReadyzReportsFailingChecks(t *testing.T) {
	r := NewBaseRouterWithReady(
		ReadyCheck{Name: "db", Check: func(context.Context) error { return nil }},
		ReadyCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	)

	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
	if !strings.Contains(rw.Body.String(), `"redis":"connection refused"`) || !strings.Contains(rw.Body.String(), `"db":"ok"`) {
		t.Fatalf("unexpected body %q", rw.Body.String())
	}
}

func TestReadyzOKWithoutChecks(t *testing.T) {
	rw := httptest.NewRecorder()
	NewBaseRouterWithReady().ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rw.Code != http.StatusOK || !strings.Contains(rw.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected response %d %q", rw.Code, rw.Body.String())
	}
}

func TestHealthzAlwaysOK(t *testing.T) {
	r := NewBaseRouterWithReady()
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG").String() != "DEBUG" {
		t.Fatal("expected debug level")
	}
	if ParseLevel("").String() != "INFO" {
		t.Fatal("expected info default")
	}
}
