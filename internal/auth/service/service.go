// Package service implements login, logout, and employee account
// management.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"till/internal/audit"
	"till/internal/auth/models"
	"till/internal/platform/metrics"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/platform/sentinel"
	"till/pkg/requestcontext"
)

// UserStore is the persistence port for employee accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// SessionStore is the persistence port for login sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, sessionID id.SessionID) error
	Active(ctx context.Context, sessionID id.SessionID) (bool, error)
	DeleteAllForUser(ctx context.Context, userID id.UserID) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Generate(userID id.UserID, sessionID id.SessionID, role id.Role,
		perms id.PermissionSet, now time.Time, ttl time.Duration) (string, error)
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// CreateUserInput carries everything needed to provision an employee.
type CreateUserInput struct {
	Username         string
	Name             string
	Password         string
	Role             id.Role
	ExtraPermissions []id.Permission
}

// UpdateUserInput carries replacement values; nil fields are left unchanged.
type UpdateUserInput struct {
	Name             *string
	Password         *string
	Role             *id.Role
	ExtraPermissions *[]id.Permission
	Active           *bool
}

type Service struct {
	users      UserStore
	sessions   SessionStore
	tokens     TokenIssuer
	sessionTTL time.Duration
	metrics    *metrics.Metrics
	auditor    *audit.Publisher
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a *audit.Publisher) Option {
	return func(s *Service) { s.auditor = a }
}

func New(users UserStore, sessions SessionStore, tokens TokenIssuer, sessionTTL time.Duration, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if sessionTTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	svc := &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Login verifies credentials and opens a session. Unknown usernames and
// wrong passwords produce the same error so the endpoint cannot be used to
// probe for valid accounts.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	credentialErr := dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emit(ctx, audit.ActionLoginFailed, username, "unknown username")
			return nil, credentialErr
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.CheckPassword(password) {
		s.emit(ctx, audit.ActionLoginFailed, username, "wrong password")
		return nil, credentialErr
	}
	if !user.Active {
		s.emit(ctx, audit.ActionLoginFailed, username, "account deactivated")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "account is deactivated")
	}

	now := requestcontext.Now(ctx)
	session := &models.Session{
		ID:        id.SessionID(uuid.New()),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	token, err := s.tokens.Generate(user.ID, session.ID, user.Role,
		user.EffectivePermissions(), now, s.sessionTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}

	s.count(func(m *metrics.Metrics) { m.Logins.Inc() })
	s.emit(ctx, audit.ActionLoginSucceeded, user.ID.String(), username)
	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Logout revokes the caller's session. Idempotent: a second logout of the
// same session succeeds.
func (s *Service) Logout(ctx context.Context) error {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke session")
	}
	s.emit(ctx, audit.ActionLogout, sessionID.String(), "")
	return nil
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	user, err := models.NewUser(id.UserID(uuid.New()), in.Username, in.Name, in.Password,
		in.Role, in.ExtraPermissions, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "username %q is taken", in.Username)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.emit(ctx, audit.ActionUserCreated, user.ID.String(), user.Username)
	return user, nil
}

func (s *Service) UpdateUser(ctx context.Context, userID id.UserID, in UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Password != nil {
		if err := user.SetPassword(*in.Password, now); err != nil {
			return nil, err
		}
	}
	if in.Role != nil {
		role, err := id.ParseRole(in.Role.String())
		if err != nil {
			return nil, err
		}
		user.Role = role
	}
	if in.ExtraPermissions != nil {
		user.ExtraPermissions = *in.ExtraPermissions
	}
	deactivated := false
	if in.Active != nil {
		deactivated = user.Active && !*in.Active
		user.Active = *in.Active
	}
	user.UpdatedAt = now

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "user %s not found", userID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
	}

	// Role changes and deactivation must bite before old tokens expire.
	if deactivated || in.Role != nil || in.ExtraPermissions != nil {
		if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "failed to revoke sessions after user update",
				"user_id", userID.String(),
				"error", err,
			)
		}
	}

	s.emit(ctx, audit.ActionUserUpdated, userID.String(), user.Username)
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, userID id.UserID) error {
	if userID == requestcontext.UserID(ctx) {
		return dErrors.New(dErrors.CodeConflict, "cannot delete your own account")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "user %s not found", userID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke sessions after user delete",
			"user_id", userID.String(),
			"error", err,
		)
	}
	s.emit(ctx, audit.ActionUserDeleted, userID.String(), "")
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "user %s not found", userID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

func (s *Service) count(inc func(*metrics.Metrics)) {
	if s.metrics != nil {
		inc(s.metrics)
	}
}

func (s *Service) emit(ctx context.Context, action audit.Action, subject, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, action, subject, detail); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", string(action),
			"subject", subject,
			"error", err,
		)
	}
}
