package domain

import "strings"

// ============================================================
// Roles
// ============================================================

// Role is the closed set of roles recognized by the gateway.
// The upstream API is inconsistent across deployments ("ROLE_CUSTOMER" in
// newer snapshots, bare "Customer" in older ones); ParseRole normalizes both
// spellings once, at the authorization boundary. Everything past domain
// works with the enum only.
type Role string

const (
	RoleCustomer Role = "ROLE_CUSTOMER"
	RolePharmacy Role = "ROLE_PHARMACY"
)

// ParseRole maps an upstream role string to the canonical enum.
func ParseRole(s string) (Role, bool) {
	switch strings.ToUpper(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "ROLE_")) {
	case "CUSTOMER":
		return RoleCustomer, true
	case "PHARMACY":
		return RolePharmacy, true
	default:
		return "", false
	}
}

// ParseRoles normalizes an upstream role list, dropping unrecognized entries
// and duplicates while preserving order.
func ParseRoles(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	seen := map[Role]bool{}
	for _, s := range raw {
		r, ok := ParseRole(s)
		if !ok || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// HasRole reports whether r is present in roles.
func HasRole(roles []Role, r Role) bool {
	for _, have := range roles {
		if have == r {
			return true
		}
	}
	return false
}

// ============================================================
// Profile & session
// ============================================================

// UserProfile is the identity cached alongside the upstream token.
// Replaced wholesale on login, never mutated.
type UserProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Roles     []Role `json:"roles"`
}

// PrimaryRole returns the first recognized role, used to pick the
// role-appropriate home route.
func (p UserProfile) PrimaryRole() (Role, bool) {
	if len(p.Roles) == 0 {
		return "", false
	}
	return p.Roles[0], true
}

// Session is the pair held by the session store: the upstream bearer token
// and the cached profile. Invariant: both halves present or neither.
type Session struct {
	Token   string
	Profile UserProfile
}

// ============================================================
// Auth — request / response types (gateway HTTP contract)
// ============================================================

// SignInRequest is the body for POST /v1/auth/signin.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignInResponse is the body for 200 from POST /v1/auth/signin.
// SessionToken is the gateway-issued JWT the browser sends back on every
// authenticated call; the upstream bearer token never leaves the gateway.
type SignInResponse struct {
	SessionToken string      `json:"sessionToken"`
	ExpiresIn    int         `json:"expiresIn"`
	User         UserProfile `json:"user"`
}

// ForgotPasswordRequest is the body for POST /v1/auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body for POST /v1/auth/reset-password.
// ConfirmPassword is checked at the gateway and never forwarded upstream.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// ChangePasswordRequest is the body for POST /v1/auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// RegisterCustomerRequest is the body for POST /v1/auth/register/customer.
// Field names follow the upstream /users/register contract; ConfirmPassword
// is checked at the gateway and cleared before the request goes upstream.
type RegisterCustomerRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Street          string `json:"street"`
	Number          string `json:"number"`
	Complement      string `json:"complement,omitempty"`
	Neighborhood    string `json:"neighborhood"`
	City            string `json:"city"`
	State           string `json:"state"`
	ZipCode         string `json:"zipCode"`
}

// RegisterPharmacyRequest is the body for POST /v1/auth/register/pharmacy.
// Follows the upstream /pharmacy/register contract: the pharmacy's legal
// identity plus the administrator account that will operate it.
type RegisterPharmacyRequest struct {
	Name            string `json:"name"`
	CNPJ            string `json:"cnpj"`
	PhoneNumber     string `json:"phoneNumber"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
	AdminFirstName  string `json:"adminFirstName"`
	AdminLastName   string `json:"adminLastName"`
	Street          string `json:"street"`
	Number          string `json:"number"`
	Complement      string `json:"complement,omitempty"`
	Neighborhood    string `json:"neighborhood"`
	City            string `json:"city"`
	State           string `json:"state"`
	ZipCode         string `json:"zipCode"`
}

// SuccessResponse is a generic message envelope.
type SuccessResponse struct {
	Message string `json:"message"`
}

// SignInPayload is the upstream body returned by POST /auth/signin.
type SignInPayload struct {
	Token     string   `json:"token"`
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Roles     []string `json:"roles"`
}
