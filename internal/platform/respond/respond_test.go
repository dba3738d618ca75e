package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"camera-overlay/internal/platform/apperr"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body["error"]
}

func TestError_validation(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, nil, apperr.Validation("Missing 'text'."))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got != "Missing 'text'." {
		t.Errorf("unexpected error message %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
}

func TestError_hidesUnclassifiedInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, nil, errors.New("connection refused: mongo:27017"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if got := decodeError(t, rec); got != GenericInternalMessage {
		t.Errorf("expected generic message, got %q", got)
	}
}

func TestError_exposesClassifiedInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, nil, apperr.Internal(errors.New("fork/exec ffmpeg: no such file or directory")))

	if got := decodeError(t, rec); got != "fork/exec ffmpeg: no such file or directory" {
		t.Errorf("expected underlying message, got %q", got)
	}
}

func TestMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Message(rec, http.StatusOK, "Overlay deleted")

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["message"] != "Overlay deleted" {
		t.Errorf("unexpected body %v", body)
	}
}
