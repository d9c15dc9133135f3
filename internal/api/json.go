package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/export"
)

const maxJSONBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", apperr.ErrInvalidInput)
	}
	return nil
}

// statusOf maps domain errors to HTTP statuses and client-safe messages.
func statusOf(err error) (int, string) {
	var ee *export.Error
	switch {
	case errors.As(err, &ee):
		switch ee.Kind {
		case export.KindConfiguration:
			return http.StatusBadRequest, ee.UserMessage()
		case export.KindCancelled:
			return http.StatusConflict, ee.UserMessage()
		case export.KindTransient:
			return http.StatusServiceUnavailable, ee.UserMessage()
		}
		return http.StatusInternalServerError, ee.UserMessage()
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrFilterNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, "checksum mismatch"
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, apperr.ErrLayerLocked):
		return http.StatusLocked, "layer is locked"
	case errors.Is(err, apperr.ErrLimitExceeded):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperr.ErrInvalidProjectData):
		return http.StatusBadRequest, "invalid project data"
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrImageLoad):
		return http.StatusUnprocessableEntity, "image could not be loaded"
	}
	return http.StatusInternalServerError, "internal error"
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(msg))
}
