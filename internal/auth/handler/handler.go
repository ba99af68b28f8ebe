// Package handler exposes login, logout, and employee management over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"till/internal/auth/models"
	"till/internal/auth/service"
	"till/internal/platform/middleware"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/platform/httputil"
	"till/pkg/requestcontext"
)

// Service defines the auth operations the handler needs.
type Service interface {
	Login(ctx context.Context, username, password string) (*service.LoginResult, error)
	Logout(ctx context.Context) error
	CreateUser(ctx context.Context, in service.CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, userID id.UserID, in service.UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, userID id.UserID) error
	GetUser(ctx context.Context, userID id.UserID) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register mounts the auth and user management routes. Login is the only
// public route in the service; logout needs a session but no permission.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)

	r.Route("/users", func(r chi.Router) {
		r.With(middleware.RequirePermissions(id.PermUsersRead)).
			Get("/", h.handleList)
		r.With(middleware.RequirePermissions(id.PermUsersRead)).
			Get("/{userID}", h.handleGet)
		r.With(middleware.RequirePermissions(id.PermUsersCreate)).
			Post("/", h.handleCreate)
		r.With(middleware.RequirePermissions(id.PermUsersUpdate)).
			Put("/{userID}", h.handleUpdate)
		r.With(middleware.RequirePermissions(id.PermUsersDelete)).
			Delete("/{userID}", h.handleDelete)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	result, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		h.fail(ctx, w, err, "login failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.auth.Logout(ctx); err != nil {
		h.fail(ctx, w, err, "logout failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleMe returns the authenticated user's own record.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !requestcontext.Authenticated(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	user, err := h.auth.GetUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, err, "load own user failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

type createUserRequest struct {
	Username         string   `json:"username"`
	Name             string   `json:"name"`
	Password         string   `json:"password"`
	Role             string   `json:"role"`
	ExtraPermissions []string `json:"extra_permissions"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	extra, err := parsePermissions(req.ExtraPermissions)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.auth.CreateUser(ctx, service.CreateUserInput{
		Username:         req.Username,
		Name:             req.Name,
		Password:         req.Password,
		Role:             id.Role(req.Role),
		ExtraPermissions: extra,
	})
	if err != nil {
		h.fail(ctx, w, err, "create user failed")
		return
	}
	httputil.WriteData(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	Name             *string   `json:"name"`
	Password         *string   `json:"password"`
	Role             *string   `json:"role"`
	ExtraPermissions *[]string `json:"extra_permissions"`
	Active           *bool     `json:"active"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	in := service.UpdateUserInput{
		Name:     req.Name,
		Password: req.Password,
		Active:   req.Active,
	}
	if req.Role != nil {
		role, err := id.ParseRole(*req.Role)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.Role = &role
	}
	if req.ExtraPermissions != nil {
		extra, err := parsePermissions(*req.ExtraPermissions)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.ExtraPermissions = &extra
	}

	user, err := h.auth.UpdateUser(ctx, userID, in)
	if err != nil {
		h.fail(ctx, w, err, "update user failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.auth.DeleteUser(ctx, userID); err != nil {
		h.fail(ctx, w, err, "delete user failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, map[string]string{"id": userID.String()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		h.fail(ctx, w, err, "get user failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, user)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.auth.ListUsers(ctx)
	if err != nil {
		h.fail(ctx, w, err, "list users failed")
		return
	}
	httputil.WriteData(w, http.StatusOK, users)
}

func parsePermissions(raw []string) ([]id.Permission, error) {
	perms := make([]id.Permission, 0, len(raw))
	for _, item := range raw {
		p, err := id.ParsePermission(item)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
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
