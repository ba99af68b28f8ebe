package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/platform/httputil"
	"till/pkg/requestcontext"
)

// Claims is what the token validator yields for a live session token.
type Claims struct {
	UserID      id.UserID
	SessionID   id.SessionID
	Role        id.Role
	Permissions id.PermissionSet
}

// TokenValidator validates a bearer token and returns its claims. Expired or
// malformed tokens fail with CodeUnauthorized.
type TokenValidator interface {
	Validate(tokenString string) (*Claims, error)
}

// SessionChecker reports whether a session is still live. Logout revokes a
// session before its token expires.
type SessionChecker interface {
	Active(ctx context.Context, sessionID id.SessionID) (bool, error)
}

// Authenticate resolves the caller's session when an Authorization header is
// present and attaches its claims to the context. Requests without a header
// pass through unauthenticated; the permission gate decides whether that is
// acceptable for the matched route. A header that is present but invalid is
// rejected immediately.
func Authenticate(validator TokenValidator, sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.WarnContext(ctx, "rejected token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			active, err := sessions.Active(ctx, claims.SessionID)
			if err != nil {
				logger.ErrorContext(ctx, "session lookup failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				return
			}
			if !active {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session has been revoked"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			ctx = requestcontext.WithPermissions(ctx, claims.Permissions)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermissions is the permission gate. The caller must hold every
// listed permission; a route that requires nothing should simply not use
// this middleware. Unauthenticated callers get 401, authenticated callers
// missing any permission get 403.
func RequirePermissions(required ...id.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if !requestcontext.Authenticated(ctx) {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			perms := requestcontext.Permissions(ctx)
			if missing := perms.Missing(required...); len(missing) > 0 {
				names := make([]string, len(missing))
				for i, p := range missing {
					names[i] = p.String()
				}
				httputil.WriteError(w, dErrors.Newf(dErrors.CodeForbidden,
					"missing permission: %s", strings.Join(names, ", ")))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
