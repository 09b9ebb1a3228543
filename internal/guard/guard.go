// Package guard decides what a route should do with the current visitor.
// It is a pure function over (auth state, route requirements, roles); the
// HTTP layer maps decisions to responses and the frontend maps them to
// navigation. Re-evaluated on every request, so a session cleared elsewhere
// flips protected routes to a login redirect on the next evaluation.
package guard

import "github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"

// AuthState is the resolved authentication status of the visitor.
type AuthState int

const (
	// StateLoading means the session check has not resolved yet; the caller
	// must keep a neutral loading state rather than act on a decision.
	StateLoading AuthState = iota
	StateAnonymous
	StateAuthenticated
)

// Kind enumerates the possible outcomes.
type Kind int

const (
	// SuspendLoading: not a navigation decision yet.
	SuspendLoading Kind = iota
	Render
	RedirectToLogin
	RedirectToHome
)

// Decision is the guard verdict. Target is set for the redirect kinds.
type Decision struct {
	Kind   Kind
	Target string
}

// Route paths the guard redirects to. They mirror the frontend router.
const (
	RootPath         = "/"
	LoginPath        = "/signin"
	CustomerHomePath = "/user/home"
	PharmacyHomePath = "/pharmacy/home"
)

// HomePath returns the role-appropriate landing route.
func HomePath(r domain.Role) (string, bool) {
	switch r {
	case domain.RoleCustomer:
		return CustomerHomePath, true
	case domain.RolePharmacy:
		return PharmacyHomePath, true
	default:
		return "", false
	}
}

// homeForAny picks the home of the first recognized role.
func homeForAny(roles []domain.Role) (string, bool) {
	for _, r := range roles {
		if p, ok := HomePath(r); ok {
			return p, true
		}
	}
	return "", false
}

// Decide maps the visitor and the route's requirements to a decision.
// Rules apply in order:
//  1. session check unresolved → suspend
//  2. protected route, anonymous visitor → login
//  3. protected route, required role missing → home of whichever role the
//     visitor does hold; no recognized role → login
//  4. public-only route (e.g. the sign-in page), authenticated visitor →
//     role home; no recognized role → root
//  5. otherwise → render
func Decide(state AuthState, requiresAuth bool, required domain.Role, roles []domain.Role) Decision {
	if state == StateLoading {
		return Decision{Kind: SuspendLoading}
	}

	authenticated := state == StateAuthenticated

	if requiresAuth && !authenticated {
		return Decision{Kind: RedirectToLogin, Target: LoginPath}
	}

	if requiresAuth && required != "" && !domain.HasRole(roles, required) {
		if home, ok := homeForAny(roles); ok {
			return Decision{Kind: RedirectToHome, Target: home}
		}
		return Decision{Kind: RedirectToLogin, Target: LoginPath}
	}

	if !requiresAuth && authenticated {
		if home, ok := homeForAny(roles); ok {
			return Decision{Kind: RedirectToHome, Target: home}
		}
		// Authenticated but no recognized role: park at the root rather
		// than bouncing back to the sign-in page they just left.
		return Decision{Kind: RedirectToHome, Target: RootPath}
	}

	return Decision{Kind: Render}
}
