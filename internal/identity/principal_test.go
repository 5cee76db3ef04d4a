// AngelaMos | 2026
// principal_test.go

package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleIsPlatformLevel(t *testing.T) {
	require.True(t, RoleSuperAdmin.IsPlatformLevel())
	require.False(t, RoleAdmin.IsPlatformLevel())
	require.False(t, RoleFieldAgent.IsPlatformLevel())
	require.False(t, RoleMember.IsPlatformLevel())
}

func TestHasAllPermissions(t *testing.T) {
	p := &Principal{Permissions: []string{"issues:read", "issues:write"}}

	require.True(t, p.HasAllPermissions(nil))
	require.True(t, p.HasAllPermissions([]string{"issues:read"}))
	require.True(t, p.HasAllPermissions([]string{"issues:read", "issues:write"}))
	require.False(t, p.HasAllPermissions([]string{"issues:read", "reports:read"}))
}

func TestNormalizePermissions(t *testing.T) {
	require.Nil(t, NormalizePermissions(nil))
	require.Nil(t, NormalizePermissions([]string{}))

	got := NormalizePermissions([]string{
		"issues:read", "reports:read", "issues:read", "issues:write",
	})
	require.Equal(t, []string{"issues:read", "reports:read", "issues:write"}, got)
}
