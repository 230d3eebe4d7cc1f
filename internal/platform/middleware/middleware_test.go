package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/platform/auth"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not one JSON line: %v (%q)", err, buf.String())
	}
	return entry
}

func TestLoggerIncludesAuthenticatedUser(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()

	handler := Logger(logger)(auth.DevAuthMiddleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "rid-1")

	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := logLine(t, &buf)
	if entry["user"] != "Dev User" {
		t.Errorf("user = %v, want Dev User", entry["user"])
	}
	if entry["request_id"] != "rid-1" {
		t.Errorf("request_id = %v, want rid-1", entry["request_id"])
	}
	if entry["path"] != "/api/v1/appointments" {
		t.Errorf("path = %v", entry["path"])
	}
}

func TestLoggerOmitsUserWhenAnonymous(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()

	handler := Logger(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := logLine(t, &buf)["user"]; ok {
		t.Error("anonymous request must not log a user field")
	}
}

func TestLoggerMarksErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()

	handler := Logger(logger)(func(c echo.Context) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler(c); err == nil {
		t.Fatal("expected the handler error to propagate")
	}

	entry := logLine(t, &buf)
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
	if entry["error"] != "boom" {
		t.Errorf("error = %v, want boom", entry["error"])
	}
}

func TestRecoveryConvertsPanicTo500(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()

	handler := Recovery(logger)(func(c echo.Context) error {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/encounters", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "rid-2")

	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 HTTPError, got %v", err)
	}

	entry := logLine(t, &buf)
	if entry["panic"] != "kaboom" {
		t.Errorf("panic = %v, want kaboom", entry["panic"])
	}
	if entry["request_id"] != "rid-2" {
		t.Errorf("request_id = %v, want rid-2", entry["request_id"])
	}
	if entry["path"] != "/api/v1/encounters" {
		t.Errorf("path = %v", entry["path"])
	}
}
