// Package token issues and validates session access tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"till/internal/platform/middleware"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
)

// Claims are the JWT claims for a session token. Role and permissions ride
// in the token so the permission gate never needs a user lookup; logout
// still bites because the middleware checks session liveness separately.
type Claims struct {
	UserID      string   `json:"user_id"`
	SessionID   string   `json:"session_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Service signs and validates HS256 session tokens.
type Service struct {
	signingKey []byte
	issuer     string
}

func New(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Generate signs a token for the session.
func (s *Service) Generate(userID id.UserID, sessionID id.SessionID, role id.Role,
	perms id.PermissionSet, now time.Time, ttl time.Duration) (string, error) {
	permissions := make([]string, 0, len(perms))
	for _, p := range perms.Slice() {
		permissions = append(permissions, p.String())
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:      userID.String(),
		SessionID:   sessionID.String(),
		Role:        role.String(),
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// Validate parses and verifies a token, returning middleware claims. All
// failure modes collapse to CodeUnauthorized; the distinction only matters
// in logs.
func (s *Service) Validate(tokenString string) (*middleware.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	perms := make(id.PermissionSet, len(claims.Permissions))
	for _, raw := range claims.Permissions {
		p, err := id.ParsePermission(raw)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
		}
		perms[p] = struct{}{}
	}

	return &middleware.Claims{
		UserID:      userID,
		SessionID:   sessionID,
		Role:        role,
		Permissions: perms,
	}, nil
}
