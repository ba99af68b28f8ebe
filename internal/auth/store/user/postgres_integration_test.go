//go:build integration

package user_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"till/internal/auth/models"
	"till/internal/auth/store/user"
	id "till/pkg/domain"
	"till/pkg/platform/sentinel"
	"till/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(s.postgres.Apply(context.Background(), user.Schema))
	s.store = user.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresStoreSuite) newUser(username string, role id.Role) *models.User {
	account, err := models.NewUser(id.UserID(uuid.New()), username, "Test User",
		"correct horse", role, nil, time.Now().UTC())
	s.Require().NoError(err)
	return account
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	account := s.newUser("alice", id.RoleManager)
	account.ExtraPermissions = []id.Permission{id.PermTransactionsVoid}
	s.Require().NoError(s.store.Create(ctx, account))

	found, err := s.store.FindByID(ctx, account.ID)
	s.Require().NoError(err)
	s.Equal("alice", found.Username)
	s.Equal(id.RoleManager, found.Role)
	s.Equal([]id.Permission{id.PermTransactionsVoid}, found.ExtraPermissions)
	s.True(found.Active)
	s.NoError(found.CheckPassword("correct horse"), "the bcrypt hash survives the BYTEA round trip")
}

func (s *PostgresStoreSuite) TestUsernameLookupIsCaseInsensitive() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("Alice", id.RoleCashier)))

	found, err := s.store.FindByUsername(ctx, "aLiCe")
	s.Require().NoError(err)
	s.Equal("Alice", found.Username)

	s.ErrorIs(s.store.Create(ctx, s.newUser("ALICE", id.RoleCashier)), sentinel.ErrAlreadyExists)
}

func (s *PostgresStoreSuite) TestConcurrentUsernameClaim() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, s.newUser("contested", id.RoleCashier))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyExists):
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one claim should win")
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	alice := s.newUser("alice", id.RoleCashier)
	bob := s.newUser("bob", id.RoleCashier)
	s.Require().NoError(s.store.Create(ctx, alice))
	s.Require().NoError(s.store.Create(ctx, bob))

	alice.Role = id.RoleManager
	alice.Active = false
	s.Require().NoError(s.store.Update(ctx, alice))

	found, err := s.store.FindByID(ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal(id.RoleManager, found.Role)
	s.False(found.Active)

	s.Run("renaming onto a taken username conflicts", func() {
		bob.Username = "ALICE"
		s.ErrorIs(s.store.Update(ctx, bob), sentinel.ErrAlreadyExists)
	})

	s.Run("updating a missing user is not found", func() {
		ghost := s.newUser("ghost", id.RoleCashier)
		s.ErrorIs(s.store.Update(ctx, ghost), sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestDeleteFreesUsername() {
	ctx := context.Background()
	alice := s.newUser("alice", id.RoleCashier)
	s.Require().NoError(s.store.Create(ctx, alice))
	s.Require().NoError(s.store.Delete(ctx, alice.ID))

	_, err := s.store.FindByID(ctx, alice.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.store.Create(ctx, s.newUser("alice", id.RoleCashier)))
}

func (s *PostgresStoreSuite) TestListSortsByUsername() {
	ctx := context.Background()
	for _, username := range []string{"carol", "Alice", "bob"} {
		s.Require().NoError(s.store.Create(ctx, s.newUser(username, id.RoleCashier)))
	}

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("Alice", all[0].Username)
	s.Equal("bob", all[1].Username)
	s.Equal("carol", all[2].Username)
}
