package token

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
)

type JWTSuite struct {
	suite.Suite
	svc *Service
	now time.Time
}

func TestJWTSuite(t *testing.T) {
	suite.Run(t, new(JWTSuite))
}

func (s *JWTSuite) SetupTest() {
	s.svc = New("test-signing-key-32-bytes-long!!", "till")
	s.now = time.Now()
}

func (s *JWTSuite) TestRoundTrip() {
	userID := id.UserID(uuid.New())
	sessionID := id.SessionID(uuid.New())
	perms := id.DefaultPermissions(id.RoleCashier)

	tokenString, err := s.svc.Generate(userID, sessionID, id.RoleCashier, perms, s.now, time.Hour)
	s.Require().NoError(err)

	claims, err := s.svc.Validate(tokenString)
	s.Require().NoError(err)
	s.Equal(userID, claims.UserID)
	s.Equal(sessionID, claims.SessionID)
	s.Equal(id.RoleCashier, claims.Role)
	s.True(claims.Permissions.Has(id.PermProductsRead))
	s.False(claims.Permissions.Has(id.PermTransactionsVoid))
}

func (s *JWTSuite) TestRejections() {
	userID := id.UserID(uuid.New())
	sessionID := id.SessionID(uuid.New())
	perms := id.DefaultPermissions(id.RoleCashier)

	s.Run("expired token", func() {
		tokenString, err := s.svc.Generate(userID, sessionID, id.RoleCashier, perms,
			s.now.Add(-2*time.Hour), time.Hour)
		s.Require().NoError(err)

		_, err = s.svc.Validate(tokenString)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Contains(err.Error(), "expired")
	})

	s.Run("garbage token", func() {
		_, err := s.svc.Validate("not.a.token")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("token signed with another key", func() {
		other := New("a-different-signing-key-entirely", "till")
		tokenString, err := other.Generate(userID, sessionID, id.RoleCashier, perms, s.now, time.Hour)
		s.Require().NoError(err)

		_, err = s.svc.Validate(tokenString)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
