// Package handler exposes the product catalog over HTTP.
//
// Note the coexistence of /products/{productID} with the static
// /products/search and /products/category/... routes: the router always
// prefers a static segment over a parameter, so a product whose ID is
// literally "search" is unreachable by ID. Product IDs are validated
// elsewhere; the routing rule is the documented tiebreak.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"till/internal/catalog/models"
	"till/internal/catalog/service"
	"till/internal/platform/middleware"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/platform/httputil"
	"till/pkg/requestcontext"
)

// Service defines the catalog operations the handler needs.
type Service interface {
	Create(ctx context.Context, in service.CreateProductInput) (*models.Product, error)
	Update(ctx context.Context, productID id.ProductID, in service.UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, productID id.ProductID) error
	Get(ctx context.Context, productID id.ProductID) (*models.Product, error)
	List(ctx context.Context) ([]*models.Product, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Product, error)
	Search(ctx context.Context, query string) ([]*models.Product, error)
	Available(ctx context.Context, productID id.ProductID) (int, error)
}

type Handler struct {
	catalog Service
	logger  *slog.Logger
}

func New(catalog Service, logger *slog.Logger) *Handler {
	return &Handler{catalog: catalog, logger: logger}
}

// Register mounts the product routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.With(middleware.RequirePermissions(id.PermProductsRead)).Group(func(r chi.Router) {
			r.Get("/", h.handleList)
			r.Get("/search", h.handleSearch)
			r.Get("/search/{query}", h.handleSearch)
			r.Get("/category/{category}", h.handleListByCategory)
			r.Get("/{productID}", h.handleGet)
			r.Get("/{productID}/stock", h.handleStock)
		})
		r.With(middleware.RequirePermissions(id.PermProductsCreate)).
			Post("/", h.handleCreate)
		r.With(middleware.RequirePermissions(id.PermProductsUpdate)).
			Put("/{productID}", h.handleUpdate)
		r.With(middleware.RequirePermissions(id.PermProductsDelete)).
			Delete("/{productID}", h.handleDelete)
	})
}

type productRequest struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Barcode        string          `json:"barcode"`
	Price          decimal.Decimal `json:"price"`
	TaxRatePercent decimal.Decimal `json:"tax_rate_percent"`
	InitialStock   int             `json:"initial_stock"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	product, err := h.catalog.Create(ctx, service.CreateProductInput{
		ID:             id.ProductID(req.ID),
		Name:           req.Name,
		Category:       req.Category,
		Barcode:        req.Barcode,
		Price:          req.Price,
		TaxRatePercent: req.TaxRatePercent,
		InitialStock:   req.InitialStock,
	})
	if err != nil {
		h.fail(ctx, w, err, "create product failed")
		return
	}
	httputil.WriteData(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	product, err := h.catalog.Update(ctx, productID, service.UpdateProductInput{
		Name:           req.Name,
		Category:       req.Category,
		Barcode:        req.Barcode,
		Price:          req.Price,
		TaxRatePercent: req.TaxRatePercent,
	})
	if err != nil {
		h.fail(ctx, w, err, "update product failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.catalog.Delete(ctx, productID); err != nil {
		h.fail(ctx, w, err, "delete product failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": productID.String()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	product, err := h.catalog.Get(ctx, productID)
	if err != nil {
		h.fail(ctx, w, err, "get product failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.catalog.List(ctx)
	if err != nil {
		h.fail(ctx, w, err, "list products failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

func (h *Handler) handleListByCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.catalog.ListByCategory(ctx, chi.URLParam(r, "category"))
	if err != nil {
		h.fail(ctx, w, err, "list products by category failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := chi.URLParam(r, "query")
	if query == "" {
		query = r.URL.Query().Get("q")
	}
	products, err := h.catalog.Search(ctx, query)
	if err != nil {
		h.fail(ctx, w, err, "search products failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, products)
}

func (h *Handler) handleStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := id.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	qty, err := h.catalog.Available(ctx, productID)
	if err != nil {
		h.fail(ctx, w, err, "read stock failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"quantity":   qty,
	})
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
