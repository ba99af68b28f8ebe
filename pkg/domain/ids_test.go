package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "till/pkg/domain-errors"
)

// Parsing enforces the invariant that IDs arriving over the wire are valid,
// non-empty, non-nil UUIDs before they reach any store.
func TestParseUUIDBackedIDs(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseTransactionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseSessionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseTransactionID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, TransactionID(valid), id)
	})
}

func TestParseProductID(t *testing.T) {
	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseProductID("")
		require.Error(t, err)
	})

	t.Run("rejects oversized", func(t *testing.T) {
		_, err := ParseProductID(strings.Repeat("x", 65))
		require.Error(t, err)
	})

	t.Run("accepts barcode-style ids", func(t *testing.T) {
		id, err := ParseProductID("4006381333931")
		require.NoError(t, err)
		assert.Equal(t, ProductID("4006381333931"), id)
	})
}

func TestPermissionSet(t *testing.T) {
	t.Run("HasAll requires every permission", func(t *testing.T) {
		set := DefaultPermissions(RoleCashier)
		assert.True(t, set.HasAll(PermProductsRead, PermTransactionsCreate))
		assert.False(t, set.HasAll(PermTransactionsRead, PermTransactionsVoid))
	})

	t.Run("Missing names the absent permissions", func(t *testing.T) {
		set := DefaultPermissions(RoleCashier)
		missing := set.Missing(PermTransactionsVoid, PermUsersDelete)
		assert.Equal(t, []Permission{PermTransactionsVoid, PermUsersDelete}, missing)
	})

	t.Run("admin holds the full surface", func(t *testing.T) {
		set := DefaultPermissions(RoleAdmin)
		assert.True(t, set.HasAll(
			PermProductsDelete, PermTransactionsVoid, PermUsersDelete, PermSettingsUpdate,
		))
	})

	t.Run("empty set for unknown role", func(t *testing.T) {
		assert.Empty(t, DefaultPermissions(Role("intern")))
	})
}

// Roles and recognition methods travel as strings in JWT claims, audit
// events, and line snapshots; parsing and String must round-trip.
func TestRoleAndMethodRoundTrip(t *testing.T) {
	role, err := ParseRole("cashier")
	require.NoError(t, err)
	assert.Equal(t, "cashier", role.String())

	_, err = ParseRole("owner")
	require.Error(t, err)

	method, err := ParseRecognitionMethod("vision")
	require.NoError(t, err)
	assert.Equal(t, "vision", method.String())

	_, err = ParseRecognitionMethod("telepathy")
	require.Error(t, err)
}

func TestParsePermission(t *testing.T) {
	_, err := ParsePermission("productsread")
	require.Error(t, err)

	p, err := ParsePermission("products:read")
	require.NoError(t, err)
	assert.Equal(t, PermProductsRead, p)
}
