// Package handler exposes the transaction lifecycle over HTTP. Route access
// is declared next to each route with the permission gate; the handler
// itself only parses, delegates, and renders the envelope.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"till/internal/platform/middleware"
	"till/internal/sales/models"
	"till/internal/sales/service"
	"till/internal/sales/store"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/platform/httputil"
	"till/pkg/requestcontext"
)

// Service defines the transaction operations the handler needs.
type Service interface {
	Checkout(ctx context.Context, in service.CheckoutInput) (*models.Transaction, error)
	Get(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	List(ctx context.Context, filter store.ListFilter) ([]*models.Transaction, error)
	AddPayment(ctx context.Context, txID id.TransactionID, in service.PaymentInput) (*models.Transaction, error)
	Complete(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	Void(ctx context.Context, txID id.TransactionID, reason string) (*models.Transaction, error)
	Update(ctx context.Context, txID id.TransactionID, in service.UpdateInput) (*models.Transaction, error)
}

type Handler struct {
	sales  Service
	logger *slog.Logger
}

func New(sales Service, logger *slog.Logger) *Handler {
	return &Handler{sales: sales, logger: logger}
}

// Register mounts the transaction routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/transactions", func(r chi.Router) {
		r.With(middleware.RequirePermissions(id.PermTransactionsCreate)).
			Post("/", h.handleCheckout)
		r.With(middleware.RequirePermissions(id.PermTransactionsRead)).
			Get("/", h.handleList)
		r.With(middleware.RequirePermissions(id.PermTransactionsRead)).
			Get("/{transactionID}", h.handleGet)
		r.With(middleware.RequirePermissions(id.PermTransactionsUpdate)).
			Put("/{transactionID}", h.handleUpdate)
		r.With(middleware.RequirePermissions(id.PermTransactionsUpdate)).
			Post("/{transactionID}/payments", h.handleAddPayment)
		r.With(middleware.RequirePermissions(id.PermTransactionsUpdate)).
			Post("/{transactionID}/complete", h.handleComplete)
		r.With(middleware.RequirePermissions(id.PermTransactionsVoid)).
			Post("/{transactionID}/void", h.handleVoid)
	})
}

type checkoutRequest struct {
	Lines      []service.CheckoutLine `json:"lines"`
	Discount   decimal.Decimal        `json:"discount"`
	CustomerID string                 `json:"customer_id"`
	Notes      string                 `json:"notes"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tx, err := h.sales.Checkout(ctx, service.CheckoutInput{
		Lines:      req.Lines,
		Discount:   req.Discount,
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(ctx, w, err, "checkout failed")
		return
	}
	httputil.WriteData(w, http.StatusCreated, tx)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.sales.List(ctx, filter)
	if err != nil {
		h.fail(ctx, w, err, "list transactions failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	tx, err := h.sales.Get(ctx, txID)
	if err != nil {
		h.fail(ctx, w, err, "get transaction failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, tx)
}

type updateRequest struct {
	CustomerID *string `json:"customer_id"`
	Notes      *string `json:"notes"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	tx, err := h.sales.Update(ctx, txID, service.UpdateInput{
		CustomerID: req.CustomerID,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(ctx, w, err, "update transaction failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, tx)
}

type paymentRequest struct {
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (h *Handler) handleAddPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	tx, err := h.sales.AddPayment(ctx, txID, service.PaymentInput{
		Type:      req.Type,
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		h.fail(ctx, w, err, "add payment failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, tx)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	tx, err := h.sales.Complete(ctx, txID)
	if err != nil {
		h.fail(ctx, w, err, "complete transaction failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, tx)
}

type voidRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleVoid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txID, err := id.ParseTransactionID(chi.URLParam(r, "transactionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// The reason is optional; a bodyless void is fine.
	var req voidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	tx, err := h.sales.Void(ctx, txID, req.Reason)
	if err != nil {
		h.fail(ctx, w, err, "void transaction failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, tx)
}

func parseListFilter(r *http.Request) (store.ListFilter, error) {
	query := r.URL.Query()
	filter := store.ListFilter{}

	if raw := query.Get("status"); raw != "" {
		switch status := models.Status(raw); status {
		case models.StatusPending, models.StatusCompleted, models.StatusVoided:
			filter.Status = status
		default:
			return filter, dErrors.Newf(dErrors.CodeValidation, "unknown status %q", raw)
		}
	}
	if raw := query.Get("employee_id"); raw != "" {
		employeeID, err := id.ParseUserID(raw)
		if err != nil {
			return filter, err
		}
		filter.EmployeeID = employeeID
	}
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "from must be RFC 3339")
		}
		filter.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "to must be RFC 3339")
		}
		filter.To = to
	}
	return filter, nil
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
