package settings

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"till/internal/audit"
	"till/internal/platform/middleware"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/platform/httputil"
	"till/pkg/requestcontext"
)

// Handler exposes GET/PUT of the settings record.
type Handler struct {
	store   Store
	auditor *audit.Publisher
	logger  *slog.Logger
}

func NewHandler(store Store, auditor *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{store: store, auditor: auditor, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.With(middleware.RequirePermissions(id.PermSettingsRead)).
		Get("/settings", h.handleGet)
	r.With(middleware.RequirePermissions(id.PermSettingsUpdate)).
		Put("/settings", h.handlePut)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	current, err := h.store.Get(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "read settings failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read settings"))
		return
	}
	httputil.WriteData(w, http.StatusOK, current)
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := in.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	current, err := h.store.Get(ctx)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read settings"))
		return
	}
	updated := &Settings{
		StoreID:       current.StoreID,
		StoreName:     in.StoreName,
		Currency:      in.Currency,
		ReceiptFooter: in.ReceiptFooter,
		UpdatedAt:     requestcontext.Now(ctx),
	}
	if err := h.store.Put(ctx, updated); err != nil {
		h.logger.ErrorContext(ctx, "write settings failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save settings"))
		return
	}

	if h.auditor != nil {
		if err := h.auditor.Emit(ctx, audit.ActionSettingsUpdated, updated.StoreID.String(), updated.StoreName); err != nil {
			h.logger.WarnContext(ctx, "audit emit failed", "error", err)
		}
	}
	httputil.WriteData(w, http.StatusOK, updated)
}
