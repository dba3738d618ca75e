// Package respond writes JSON response bodies and maps application errors
// to the {"error": "..."} body shape.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"camera-overlay/internal/platform/apperr"
)

// GenericInternalMessage is sent for internal errors whose detail must not
// reach the client.
const GenericInternalMessage = "internal server error"

// JSON writes v as a JSON body with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// ErrorMessage writes {"error": msg}.
func ErrorMessage(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Error maps err to a status code and writes {"error": ...}. Internal errors
// are logged; their message is replaced with GenericInternalMessage unless
// err is an *apperr.Error of internal kind, which carries a message meant
// for the client.
func Error(w http.ResponseWriter, log *slog.Logger, err error) {
	status := apperr.StatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		var ae *apperr.Error
		if !errors.As(err, &ae) {
			msg = GenericInternalMessage
		}
		if log != nil {
			log.Error("request failed", slog.String("error", err.Error()))
		}
	}
	ErrorMessage(w, status, msg)
}
