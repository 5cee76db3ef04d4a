// AngelaMos | 2026
// guard.go

package guard

import (
	"github.com/civiclens/console-client/internal/identity"
	"github.com/civiclens/console-client/internal/routes"
	"github.com/civiclens/console-client/internal/session"
)

// Requirement declares who may see a route. Empty sets mean "any
// authenticated principal".
type Requirement struct {
	Roles       []identity.Role
	Permissions []string
}

type Action int

const (
	// Allow renders the protected content.
	Allow Action = iota
	// Wait renders a neutral waiting state; never redirect while the
	// identity check is still in flight.
	Wait
	// Redirect sends the visitor to Target; From preserves the path the
	// visitor originally asked for.
	Redirect
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the guard's verdict. The caller performs any navigation;
// evaluation itself is pure.
type Decision struct {
	Action Action
	Target string
	From   string
}

// Evaluate gates a route against the current session snapshot.
// Ordering is load-bearing: loading before authentication before
// authorization, so a slow identity check never surfaces as a false
// "unauthorized" and an about-to-be-authenticated visitor is never
// bounced to the login screen.
func Evaluate(state session.State, path string, req Requirement) Decision {
	if state.Loading {
		return Decision{Action: Wait, From: path}
	}

	if !state.Authenticated || state.User == nil {
		return Decision{
			Action: Redirect,
			Target: routes.LoginPath,
			From:   path,
		}
	}

	if len(req.Permissions) > 0 && !state.User.HasAllPermissions(req.Permissions) {
		return Decision{
			Action: Redirect,
			Target: routes.UnauthorizedPath,
			From:   path,
		}
	}

	if len(req.Roles) > 0 && !roleAllowed(state.User.Role, req.Roles) {
		return Decision{
			Action: Redirect,
			Target: routes.UnauthorizedPath,
			From:   path,
		}
	}

	return Decision{Action: Allow, From: path}
}

func roleAllowed(role identity.Role, allowed []identity.Role) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}
