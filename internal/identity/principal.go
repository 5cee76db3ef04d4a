// AngelaMos | 2026
// principal.go

package identity

type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleFieldAgent Role = "FieldAgent"
	RoleMember     Role = "Member"
)

func (r Role) IsPlatformLevel() bool {
	return r == RoleSuperAdmin
}

// Principal is the authenticated identity the server vouches for.
// It lives only in memory; the bearer token is the durable artifact.
type Principal struct {
	ID          string   `json:"user_id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        Role     `json:"role"`
	TenantID    *string  `json:"tenant_id"`
	UserType    string   `json:"user_type"`
	Permissions []string `json:"permissions"`
}

func (p *Principal) HasPermission(permission string) bool {
	for _, have := range p.Permissions {
		if have == permission {
			return true
		}
	}
	return false
}

func (p *Principal) HasAllPermissions(required []string) bool {
	for _, want := range required {
		if !p.HasPermission(want) {
			return false
		}
	}
	return true
}

// NormalizePermissions deduplicates while preserving first-seen order.
func NormalizePermissions(permissions []string) []string {
	if len(permissions) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(permissions))
	out := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	return out
}
