// AngelaMos | 2026
// landing.go

package routes

import (
	"github.com/civiclens/console-client/internal/identity"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	HomePath         = "/home"

	TenantsPath   = "/tenants"
	DashboardPath = "/dashboard"
	IssuesPath    = "/issues"
	MyIssuesPath  = "/my-issues"
)

var landingByRole = map[identity.Role]string{
	identity.RoleSuperAdmin: TenantsPath,
	identity.RoleAdmin:      DashboardPath,
	identity.RoleFieldAgent: IssuesPath,
	identity.RoleMember:     MyIssuesPath,
}

// Landing resolves where a principal goes after authentication. A path
// captured by the route guard's redirect wins, unless it is the login
// screen itself; otherwise the role's fixed default applies, with a
// generic landing for roles this build does not know.
func Landing(role identity.Role, requestedPath string) string {
	if requestedPath != "" && requestedPath != LoginPath {
		return requestedPath
	}

	if path, ok := landingByRole[role]; ok {
		return path
	}

	return HomePath
}
