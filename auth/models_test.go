package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthContextHasPermissionAndExpiry(t *testing.T) {
	ctx := AuthContext{
		Permissions: []Permission{PermissionWorkflowRead},
		ExpiresAt:   time.Now().UTC().Add(time.Hour),
	}
	require.True(t, ctx.HasPermission(PermissionWorkflowRead))
	require.False(t, ctx.HasPermission(PermissionWorkflowWrite))
	require.False(t, ctx.IsExpired())

	expired := AuthContext{ExpiresAt: time.Now().UTC().Add(-time.Hour)}
	require.True(t, expired.IsExpired())
}

func TestAuthContextRequirePermission(t *testing.T) {
	ctx := AuthContext{Permissions: []Permission{PermissionWorkflowRead}}
	require.NoError(t, ctx.RequirePermission(PermissionWorkflowRead))

	err := ctx.RequirePermission(PermissionWorkflowWrite)
	var insufficient *InsufficientPermissionsError
	require.ErrorAs(t, err, &insufficient)
}

func TestPermissionsForRole(t *testing.T) {
	require.ElementsMatch(t, []Permission{PermissionWorkflowRead, PermissionExecutionRead}, PermissionsForRole("viewer"))
	require.Equal(t, AllPermissions(), PermissionsForRole("admin"))
	require.Nil(t, PermissionsForRole("unknown"))
}
