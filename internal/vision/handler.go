package vision

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"till/internal/platform/middleware"
	id "till/pkg/domain"
	"till/pkg/platform/httputil"
	"till/pkg/requestcontext"
)

// Handler exposes the recognizer. The request body (the captured frame in a
// real deployment) is ignored by the simulation.
type Handler struct {
	recognizer *Recognizer
	logger     *slog.Logger
}

func NewHandler(recognizer *Recognizer, logger *slog.Logger) *Handler {
	return &Handler{recognizer: recognizer, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequirePermissions(id.PermProductsRead)).
		Post("/vision/recognize", h.handleRecognize)
}

func (h *Handler) handleRecognize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	candidates, err := h.recognizer.Recognize(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "recognition failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{"candidates": candidates})
}
