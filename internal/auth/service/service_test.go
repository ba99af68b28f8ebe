package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"till/internal/auth/models"
	"till/internal/auth/store/session"
	"till/internal/auth/store/user"
	"till/internal/auth/token"
	id "till/pkg/domain"
	dErrors "till/pkg/domain-errors"
	"till/pkg/requestcontext"
)

type AuthServiceSuite struct {
	suite.Suite
	svc      *Service
	users    *user.InMemory
	sessions *session.InMemory
	tokens   *token.Service
	ctx      context.Context
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.users = user.NewInMemory()
	s.sessions = session.NewInMemory()
	s.tokens = token.New("test-signing-key-32-bytes-long!!", "till")

	var err error
	s.svc, err = New(s.users, s.sessions, s.tokens, 8*time.Hour)
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *AuthServiceSuite) createUser(username string, role id.Role) *models.User {
	created, err := s.svc.CreateUser(s.ctx, CreateUserInput{
		Username: username,
		Name:     "Test " + username,
		Password: "correct horse",
		Role:     role,
	})
	s.Require().NoError(err)
	return created
}

func (s *AuthServiceSuite) TestCreateUser() {
	s.Run("creates an active user with a usable password", func() {
		created := s.createUser("alice", id.RoleManager)
		s.True(created.Active)
		s.True(created.CheckPassword("correct horse"))
		s.False(created.CheckPassword("wrong"))
	})

	s.Run("usernames are unique case-insensitively", func() {
		s.createUser("bob", id.RoleCashier)
		_, err := s.svc.CreateUser(s.ctx, CreateUserInput{
			Username: "BOB", Name: "Other Bob", Password: "long enough", Role: id.RoleCashier,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("validation lists every violated rule", func() {
		_, err := s.svc.CreateUser(s.ctx, CreateUserInput{
			Username: "", Name: "", Password: "short", Role: "royalty",
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Contains(err.Error(), "username")
		s.Contains(err.Error(), "password")
		s.Contains(err.Error(), "role")
	})
}

func (s *AuthServiceSuite) TestLogin() {
	created := s.createUser("alice", id.RoleCashier)

	s.Run("valid credentials yield a working token", func() {
		result, err := s.svc.Login(s.ctx, "alice", "correct horse")
		s.Require().NoError(err)
		s.NotEmpty(result.Token)
		s.Equal(created.ID, result.User.ID)

		claims, err := s.tokens.Validate(result.Token)
		s.Require().NoError(err)
		s.Equal(created.ID, claims.UserID)
		s.Equal(id.RoleCashier, claims.Role)

		active, err := s.sessions.Active(s.ctx, claims.SessionID)
		s.Require().NoError(err)
		s.True(active)
	})

	s.Run("unknown username and wrong password are indistinguishable", func() {
		_, unknownErr := s.svc.Login(s.ctx, "nobody", "whatever pass")
		_, wrongErr := s.svc.Login(s.ctx, "alice", "wrong password")

		s.True(dErrors.HasCode(unknownErr, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(wrongErr, dErrors.CodeUnauthorized))
		s.Equal(unknownErr.Error(), wrongErr.Error())
	})

	s.Run("deactivated accounts cannot log in", func() {
		inactive := false
		_, err := s.svc.UpdateUser(s.ctx, created.ID, UpdateUserInput{Active: &inactive})
		s.Require().NoError(err)

		_, err = s.svc.Login(s.ctx, "alice", "correct horse")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AuthServiceSuite) TestLogout() {
	created := s.createUser("alice", id.RoleCashier)
	result, err := s.svc.Login(s.ctx, "alice", "correct horse")
	s.Require().NoError(err)
	claims, err := s.tokens.Validate(result.Token)
	s.Require().NoError(err)

	s.Run("requires an authenticated context", func() {
		err := s.svc.Logout(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("revokes the session and is idempotent", func() {
		ctx := requestcontext.WithSessionID(s.ctx, claims.SessionID)
		ctx = requestcontext.WithUserID(ctx, created.ID)

		s.Require().NoError(s.svc.Logout(ctx))
		active, err := s.sessions.Active(s.ctx, claims.SessionID)
		s.Require().NoError(err)
		s.False(active, "token must stop working at logout, not at expiry")

		s.Require().NoError(s.svc.Logout(ctx))
	})
}

func (s *AuthServiceSuite) TestUpdateUser() {
	created := s.createUser("alice", id.RoleCashier)

	s.Run("role change revokes existing sessions", func() {
		result, err := s.svc.Login(s.ctx, "alice", "correct horse")
		s.Require().NoError(err)
		claims, err := s.tokens.Validate(result.Token)
		s.Require().NoError(err)

		role := id.RoleManager
		updated, err := s.svc.UpdateUser(s.ctx, created.ID, UpdateUserInput{Role: &role})
		s.Require().NoError(err)
		s.Equal(id.RoleManager, updated.Role)

		active, err := s.sessions.Active(s.ctx, claims.SessionID)
		s.Require().NoError(err)
		s.False(active, "stale tokens must not keep the old permission set alive")
	})

	s.Run("extra permissions extend the role set", func() {
		extra := []id.Permission{id.PermTransactionsVoid}
		updated, err := s.svc.UpdateUser(s.ctx, created.ID, UpdateUserInput{ExtraPermissions: &extra})
		s.Require().NoError(err)
		s.True(updated.EffectivePermissions().Has(id.PermTransactionsVoid))
	})

	s.Run("unknown user is not found", func() {
		name := "ghost"
		_, err := s.svc.UpdateUser(s.ctx, id.UserID(uuid.New()), UpdateUserInput{Name: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AuthServiceSuite) TestDeleteUser() {
	created := s.createUser("alice", id.RoleCashier)

	s.Run("self-deletion is refused", func() {
		ctx := requestcontext.WithUserID(s.ctx, created.ID)
		err := s.svc.DeleteUser(ctx, created.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("deletion revokes sessions and frees the username", func() {
		result, err := s.svc.Login(s.ctx, "alice", "correct horse")
		s.Require().NoError(err)
		claims, err := s.tokens.Validate(result.Token)
		s.Require().NoError(err)

		s.Require().NoError(s.svc.DeleteUser(s.ctx, created.ID))

		active, err := s.sessions.Active(s.ctx, claims.SessionID)
		s.Require().NoError(err)
		s.False(active)

		_, err = s.svc.GetUser(s.ctx, created.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		s.createUser("alice", id.RoleManager)
	})
}

func (s *AuthServiceSuite) TestListUsers() {
	s.createUser("carol", id.RoleCashier)
	s.createUser("alice", id.RoleAdmin)
	s.createUser("bob", id.RoleManager)

	users, err := s.svc.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal("alice", users[0].Username)
	s.Equal("bob", users[1].Username)
	s.Equal("carol", users[2].Username)
}
