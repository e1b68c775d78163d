package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/AaronLay10/zbxport/internal/config"
)

// Role is what an authenticated caller may do. Admins export and read the
// audit log; operators check imports and follow events.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

type account struct {
	config.Credentials
	role Role
}

// authConfig lists the accounts allowed in. No accounts means
// authentication is off and every caller acts as admin.
type authConfig struct {
	accounts []account
}

var auth *authConfig

// newAuthConfig enables authentication only when admin credentials are
// complete. Operator credentials are optional.
func newAuthConfig(admin, operator config.Credentials) *authConfig {
	if !admin.Set() {
		return &authConfig{}
	}
	c := &authConfig{accounts: []account{{admin, RoleAdmin}}}
	if operator.Set() {
		c.accounts = append(c.accounts, account{operator, RoleOperator})
	}
	return c
}

// InitAuth loads credentials from ZBXPORT_ADMIN_USER/PASS and
// ZBXPORT_OPERATOR_USER/PASS, each honoring the *_FILE convention.
func InitAuth() error {
	admin, err := config.ResolveCredentials("ZBXPORT_ADMIN")
	if err != nil {
		return fmt.Errorf("resolve admin credentials: %w", err)
	}
	operator, err := config.ResolveCredentials("ZBXPORT_OPERATOR")
	if err != nil {
		return fmt.Errorf("resolve operator credentials: %w", err)
	}
	auth = newAuthConfig(admin, operator)
	return nil
}

// IsAuthEnabled reports whether requests must authenticate.
func IsAuthEnabled() bool {
	return auth != nil && len(auth.accounts) > 0
}

// principal is who made a request, filled in once authenticated.
type principal struct {
	user string
	role Role
}

type principalKey struct{}

// withPrincipal gives r a slot that RequireRole fills, so outer middleware
// can see who the caller turned out to be.
func withPrincipal(r *http.Request) (*http.Request, *principal) {
	p := &principal{}
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, p)), p
}

func recordPrincipal(r *http.Request, user string, role Role) {
	if p, ok := r.Context().Value(principalKey{}).(*principal); ok {
		p.user, p.role = user, role
	}
}

// authenticate returns the caller's user and role, or an empty role when
// the credentials match no account.
func authenticate(r *http.Request) (string, Role) {
	if !IsAuthEnabled() {
		return "", RoleAdmin
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return "", ""
	}
	for _, a := range auth.accounts {
		// Both compares always run so timing does not reveal which failed.
		userOK := secureCompare(user, a.User)
		passOK := secureCompare(pass, a.Pass)
		if userOK && passOK {
			return user, a.role
		}
	}
	return user, ""
}

// secureCompare performs constant-time string comparison.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="zbxport"`)
	writeError(w, http.StatusUnauthorized, errors.New("authentication required"))
}

// RequireRole wraps a handler and requires one of allowedRoles.
func RequireRole(handler http.HandlerFunc, allowedRoles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, role := authenticate(r)
		if role == "" {
			requireAuth(w)
			return
		}
		recordPrincipal(r, user, role)
		for _, allowed := range allowedRoles {
			if role == allowed {
				handler(w, r)
				return
			}
		}
		writeError(w, http.StatusForbidden, fmt.Errorf("%s may not access %s", role, r.URL.Path))
	}
}

// RequireAnyRole admits admins and operators.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}

// RequireAdmin admits admins only. Exports carry media type credentials.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
