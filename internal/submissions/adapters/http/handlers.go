package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dejobratic/ordersubmit/internal/submissions/app"
	"github.com/dejobratic/ordersubmit/internal/submissions/validation"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HeaderReplayed tells the client whether the body is a replay of an
// earlier commit for the same key.
const HeaderReplayed = "Idempotent-Replayed"

const (
	msgMissingKey     = "Missing Idempotency-Key header"
	msgInvalidPayload = "invalid order payload"
	msgInternalError  = "internal server error"

	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

// Handler exposes the order submission endpoint.
type Handler struct {
	submitter app.Submitter
	logger    *slog.Logger
}

func NewHandler(submitter app.Submitter, logger *slog.Logger) *Handler {
	return &Handler{submitter: submitter, logger: logger}
}

// Register binds the submission routes to the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/submit", h.submit)
	r.Post("/v1/orders/submit", h.submit)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	key, payload, err := validation.Request(r)
	if err != nil {
		h.writeValidationError(w, err)
		return
	}

	submission, err := h.submitter.Submit(ctx, key, payload)
	if err != nil {
		if errors.Is(err, validation.ErrMissingKey) {
			writeError(w, http.StatusBadRequest, msgMissingKey)
			return
		}
		h.logger.ErrorContext(ctx, "submit order failed",
			"error", err,
			"request_id", middleware.GetReqID(ctx),
		)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	body, err := json.Marshal(submission.Result)
	if err != nil {
		h.logger.ErrorContext(ctx, "encode stored result failed", "error", err)
		writeError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	w.Header().Set(headerContentType, contentTypeJSON)
	w.Header().Set(HeaderReplayed, strconv.FormatBool(submission.Replayed()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, validation.ErrMissingKey):
		writeError(w, http.StatusBadRequest, msgMissingKey)
	case errors.Is(err, validation.ErrMalformedPayload):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  msgInvalidPayload,
			"detail": err.Error(),
		})
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
