package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/yourorg/portfolio-tracker/internal/domain"
)

type errorResponse struct {
	Error string      `json:"error"`
	Kind  domain.Kind `json:"kind"`
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDuplicate:
		return http.StatusConflict
	case domain.KindAuthentication:
		return http.StatusUnauthorized
	case domain.KindQuoteUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err for the caller. Internal errors are logged with the
// request id and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var derr *domain.Error
	kind := domain.KindOf(err)
	msg := "internal error"
	if kind == domain.KindInternal {
		logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method, "path", r.URL.Path, "err", err)
	} else if errors.As(err, &derr) {
		msg = derr.Message
	}
	writeJSON(w, statusFor(kind), errorResponse{Error: msg, Kind: kind})
}
