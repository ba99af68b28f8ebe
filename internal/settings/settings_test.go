package settings

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "till/pkg/domain"
	"till/pkg/platform/httputil"
	"till/pkg/requestcontext"
)

type SettingsSuite struct {
	suite.Suite
	handler *Handler
}

func TestSettingsSuite(t *testing.T) {
	suite.Run(t, new(SettingsSuite))
}

func (s *SettingsSuite) SetupTest() {
	s.handler = NewHandler(NewInMemory("store-001"), nil, slog.New(slog.DiscardHandler))
}

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

func (s *SettingsSuite) serve(role id.Role, method string, body any) (*httptest.ResponseRecorder, httputil.Envelope) {
	router := chi.NewRouter()
	router.Use(asRole(role))
	s.handler.Register(router)

	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/settings", &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env httputil.Envelope
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func (s *SettingsSuite) TestGet() {
	s.Run("returns defaults before any save", func() {
		rec, env := s.serve(id.RoleManager, http.MethodGet, nil)
		s.Equal(http.StatusOK, rec.Code)
		data := env.Data.(map[string]any)
		s.Equal("store-001", data["store_id"])
		s.Equal("USD", data["currency"])
	})

	s.Run("cashier may read but not change settings", func() {
		rec, env := s.serve(id.RoleCashier, http.MethodGet, nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("USD", env.Data.(map[string]any)["currency"])
	})
}

func (s *SettingsSuite) TestPut() {
	s.Run("saves and echoes the new record", func() {
		rec, env := s.serve(id.RoleManager, http.MethodPut, map[string]string{
			"store_name":     "Corner Espresso",
			"currency":       "EUR",
			"receipt_footer": "Thanks for visiting!",
		})
		s.Equal(http.StatusOK, rec.Code)
		data := env.Data.(map[string]any)
		s.Equal("Corner Espresso", data["store_name"])
		s.Equal("EUR", data["currency"])

		rec, env = s.serve(id.RoleManager, http.MethodGet, nil)
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("Corner Espresso", env.Data.(map[string]any)["store_name"])
	})

	s.Run("rejects invalid input listing every rule", func() {
		rec, env := s.serve(id.RoleManager, http.MethodPut, map[string]string{
			"store_name": "",
			"currency":   "EURO",
		})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(env.Message, "store name")
		s.Contains(env.Message, "currency")
	})

	s.Run("cashier may not update settings", func() {
		rec, env := s.serve(id.RoleCashier, http.MethodPut, map[string]string{
			"store_name": "Nope", "currency": "USD",
		})
		s.Equal(http.StatusForbidden, rec.Code)
		s.Contains(env.Message, "settings:update")
	})
}
