package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	catalogservice "till/internal/catalog/service"
	catalogstore "till/internal/catalog/store"
	"till/internal/sales/service"
	"till/internal/sales/store"
	"till/internal/stock"
	id "till/pkg/domain"
	"till/pkg/platform/httputil"
	"till/pkg/requestcontext"
)

type SalesHandlerSuite struct {
	suite.Suite
	catalog *catalogservice.Service
	svc     *service.Service
	handler *Handler
}

func TestSalesHandlerSuite(t *testing.T) {
	suite.Run(t, new(SalesHandlerSuite))
}

func (s *SalesHandlerSuite) SetupTest() {
	ledger := stock.NewInMemory()
	var err error
	s.catalog, err = catalogservice.New(catalogstore.NewInMemory(), ledger)
	s.Require().NoError(err)
	s.svc, err = service.New(store.NewInMemory(), s.catalog, ledger, "store-001")
	s.Require().NoError(err)
	s.handler = New(s.svc, slog.New(slog.DiscardHandler))

	_, err = s.catalog.Create(context.Background(), catalogservice.CreateProductInput{
		ID:             "p-1",
		Name:           "Americano",
		Category:       "drinks",
		Price:          decimal.NewFromFloat(9.99),
		TaxRatePercent: decimal.NewFromFloat(7.5),
		InitialStock:   10,
	})
	s.Require().NoError(err)
}

// asRole simulates what the authentication middleware does for a logged-in
// user of the given role. An empty role leaves the request unauthenticated.
func asRole(role id.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if role != "" {
				ctx = requestcontext.WithUserID(ctx, id.UserID(uuid.New()))
				ctx = requestcontext.WithSessionID(ctx, id.SessionID(uuid.New()))
				ctx = requestcontext.WithRole(ctx, role)
				ctx = requestcontext.WithPermissions(ctx, id.DefaultPermissions(role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *SalesHandlerSuite) serve(role id.Role, method, target string, body any) (*httptest.ResponseRecorder, httputil.Envelope) {
	router := chi.NewRouter()
	router.Use(asRole(role))
	s.handler.Register(router)

	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env httputil.Envelope
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&env), "body: %s", rec.Body.String())
	return rec, env
}

func (s *SalesHandlerSuite) checkoutBody(qty int) map[string]any {
	return map[string]any{
		"lines": []map[string]any{{
			"product_id":             "p-1",
			"quantity":               qty,
			"recognition_method":     "manual",
			"recognition_confidence": 1.0,
		}},
	}
}

func (s *SalesHandlerSuite) draftTransaction() string {
	rec, env := s.serve(id.RoleCashier, http.MethodPost, "/transactions", s.checkoutBody(3))
	s.Require().Equal(http.StatusCreated, rec.Code)
	data := env.Data.(map[string]any)
	return data["id"].(string)
}

func (s *SalesHandlerSuite) TestCheckout() {
	s.Run("creates a transaction", func() {
		rec, env := s.serve(id.RoleCashier, http.MethodPost, "/transactions", s.checkoutBody(3))

		s.Equal(http.StatusCreated, rec.Code)
		s.True(env.Success)
		data := env.Data.(map[string]any)
		s.Equal("pending", data["status"])
		s.Equal("32.22", data["total"])
	})

	s.Run("rejects a malformed body", func() {
		router := chi.NewRouter()
		router.Use(asRole(id.RoleCashier))
		s.handler.Register(router)
		req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("surfaces stock conflicts as 400", func() {
		rec, env := s.serve(id.RoleCashier, http.MethodPost, "/transactions", s.checkoutBody(999))
		s.Equal(http.StatusBadRequest, rec.Code)
		s.False(env.Success)
		s.Contains(env.Message, "insufficient stock")
	})

	s.Run("requires authentication", func() {
		rec, env := s.serve("", http.MethodPost, "/transactions", s.checkoutBody(1))
		s.Equal(http.StatusUnauthorized, rec.Code)
		s.False(env.Success)
	})
}

func (s *SalesHandlerSuite) TestLifecycleRoutes() {
	txID := s.draftTransaction()

	s.Run("get returns the transaction", func() {
		rec, env := s.serve(id.RoleCashier, http.MethodGet, "/transactions/"+txID, nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal(txID, env.Data.(map[string]any)["id"])
	})

	s.Run("get with a non-uuid id is 400", func() {
		rec, _ := s.serve(id.RoleCashier, http.MethodGet, "/transactions/not-a-uuid", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("get of an unknown transaction is 404", func() {
		rec, env := s.serve(id.RoleCashier, http.MethodGet, "/transactions/"+uuid.NewString(), nil)
		s.Equal(http.StatusNotFound, rec.Code)
		s.False(env.Success)
	})

	s.Run("payment then complete", func() {
		rec, _ := s.serve(id.RoleCashier, http.MethodPost,
			fmt.Sprintf("/transactions/%s/payments", txID),
			map[string]any{"type": "cash", "amount": "40.00"})
		s.Equal(http.StatusOK, rec.Code)

		rec, env := s.serve(id.RoleCashier, http.MethodPost,
			fmt.Sprintf("/transactions/%s/complete", txID), nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("completed", env.Data.(map[string]any)["status"])
	})

	s.Run("list filters by status", func() {
		rec, env := s.serve(id.RoleCashier, http.MethodGet, "/transactions?status=completed", nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Len(env.Data.([]any), 1)
	})

	s.Run("list rejects unknown status values", func() {
		rec, _ := s.serve(id.RoleCashier, http.MethodGet, "/transactions?status=bogus", nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

// Voiding requires transactions:void, which cashiers do not hold.
func (s *SalesHandlerSuite) TestVoidPermissions() {
	txID := s.draftTransaction()
	target := fmt.Sprintf("/transactions/%s/void", txID)

	s.Run("cashier gets 403 with the missing permission named", func() {
		rec, env := s.serve(id.RoleCashier, http.MethodPost, target,
			map[string]any{"reason": "test"})
		s.Equal(http.StatusForbidden, rec.Code)
		s.False(env.Success)
		s.Contains(env.Message, "transactions:void")
	})

	s.Run("unauthenticated gets 401", func() {
		rec, _ := s.serve("", http.MethodPost, target, nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("manager may void", func() {
		rec, env := s.serve(id.RoleManager, http.MethodPost, target,
			map[string]any{"reason": "damaged goods"})
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("voided", env.Data.(map[string]any)["status"])
	})

	s.Run("second void is refused", func() {
		rec, env := s.serve(id.RoleManager, http.MethodPost, target, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(env.Message, "already voided")
	})
}
