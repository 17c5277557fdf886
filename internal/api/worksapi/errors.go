package worksapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/pkg/errors"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrUpstreamUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		// детали серверных ошибок наружу не отдаём
		msg = "server error"
	}
	writeJSON(w, code, messageResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, dst any) error {
	return decode(r, dst, false)
}

// decodeOptionalBody допускает пустое тело запроса.
func decodeOptionalBody(r *http.Request, dst any) error {
	return decode(r, dst, true)
}

func decode(r *http.Request, dst any, allowEmpty bool) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Wrap(models.ErrInvalidInput, "malformed json body")
	}
	if err := validate.Struct(dst); err != nil {
		return errors.Wrap(models.ErrInvalidInput, err.Error())
	}
	return nil
}
