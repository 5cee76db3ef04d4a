// AngelaMos | 2026
// requirements.go

package guard

import (
	"github.com/civiclens/console-client/internal/identity"
	"github.com/civiclens/console-client/internal/routes"
)

// RouteRequirements maps the console's protected routes to their
// declared access rules. Routes absent from the map admit any
// authenticated principal.
var RouteRequirements = map[string]Requirement{
	routes.TenantsPath: {
		Roles: []identity.Role{identity.RoleSuperAdmin},
	},
	routes.DashboardPath: {
		Roles: []identity.Role{identity.RoleSuperAdmin, identity.RoleAdmin},
	},
	routes.IssuesPath: {
		Roles: []identity.Role{
			identity.RoleAdmin,
			identity.RoleFieldAgent,
		},
		Permissions: []string{"issues:read"},
	},
	routes.MyIssuesPath: {},
}

// RequirementFor looks up a route's declared rules.
func RequirementFor(path string) Requirement {
	return RouteRequirements[path]
}
