// AngelaMos | 2026
// guard_test.go

package guard

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civiclens/console-client/internal/identity"
	"github.com/civiclens/console-client/internal/routes"
	"github.com/civiclens/console-client/internal/session"
)

func member() *identity.Principal {
	return &identity.Principal{
		ID:          "u1",
		Role:        identity.RoleMember,
		Permissions: []string{"issues:read"},
	}
}

func TestEvaluateWaitsWhileLoading(t *testing.T) {
	state := session.State{Loading: true}

	decision := Evaluate(state, routes.DashboardPath, Requirement{
		Roles: []identity.Role{identity.RoleAdmin},
	})

	require.Equal(t, Wait, decision.Action,
		"never redirect while the identity check is in flight")
}

func TestEvaluateLoadingWinsOverEverything(t *testing.T) {
	// Loading with no user must not fall through to the login redirect.
	state := session.State{Loading: true, Authenticated: false}

	decision := Evaluate(state, routes.IssuesPath, Requirement{
		Permissions: []string{"issues:write"},
	})

	require.Equal(t, Wait, decision.Action)
	require.Empty(t, decision.Target)
}

func TestEvaluateUnauthenticatedRedirectsToLoginWithOrigin(t *testing.T) {
	decision := Evaluate(session.State{}, routes.IssuesPath, Requirement{
		Permissions: []string{"issues:read"},
	})

	require.Equal(t, Redirect, decision.Action)
	require.Equal(t, routes.LoginPath, decision.Target)
	require.Equal(t, routes.IssuesPath, decision.From,
		"the requested path must survive the redirect")

	// After login the landing resolver returns the visitor to exactly
	// the path the guard captured.
	require.Equal(
		t,
		routes.IssuesPath,
		routes.Landing(identity.RoleFieldAgent, decision.From),
	)
}

func TestEvaluateRoleMismatchIsUnauthorizedNotLogin(t *testing.T) {
	state := session.State{Authenticated: true, User: member()}

	decision := Evaluate(state, routes.DashboardPath, Requirement{
		Roles: []identity.Role{identity.RoleAdmin},
	})

	require.Equal(t, Redirect, decision.Action)
	require.Equal(t, routes.UnauthorizedPath, decision.Target,
		"an authenticated principal is never bounced to the login screen")
}

func TestEvaluateMissingPermission(t *testing.T) {
	state := session.State{Authenticated: true, User: member()}

	decision := Evaluate(state, routes.IssuesPath, Requirement{
		Permissions: []string{"issues:read", "issues:write"},
	})

	require.Equal(t, Redirect, decision.Action)
	require.Equal(t, routes.UnauthorizedPath, decision.Target)
}

func TestEvaluateAllowsMatchingRoleAndPermissions(t *testing.T) {
	state := session.State{
		Authenticated: true,
		User: &identity.Principal{
			ID:          "u2",
			Role:        identity.RoleFieldAgent,
			Permissions: []string{"issues:read", "issues:write"},
		},
	}

	decision := Evaluate(state, routes.IssuesPath, RequirementFor(routes.IssuesPath))

	require.Equal(t, Allow, decision.Action)
}

func TestEvaluateEmptyRequirementAdmitsAnyAuthenticated(t *testing.T) {
	state := session.State{Authenticated: true, User: member()}

	decision := Evaluate(state, routes.MyIssuesPath, Requirement{})

	require.Equal(t, Allow, decision.Action)
}
