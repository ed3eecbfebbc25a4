package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/AaronLay10/TorchBridge/internal/config"
)

// Role is what a set of basic-auth credentials may do.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// Credential prefixes; each resolves <prefix>_USER and <prefix>_PASS
// (or their _FILE variants).
const (
	EnvAdminPrefix    = "TORCH_ADMIN"
	EnvOperatorPrefix = "TORCH_OPERATOR"
)

type authConfig struct {
	admin    config.Credentials
	operator config.Credentials
}

func (a *authConfig) enabled() bool {
	return a != nil && a.admin.Set()
}

var auth *authConfig

// InitAuth loads credentials from the environment. Without admin
// credentials authentication stays off and every request is treated as admin.
func InitAuth() error {
	admin, err := config.ResolveCredentials(EnvAdminPrefix)
	if err != nil {
		return fmt.Errorf("admin credentials: %w", err)
	}
	operator, err := config.ResolveCredentials(EnvOperatorPrefix)
	if err != nil {
		return fmt.Errorf("operator credentials: %w", err)
	}
	auth = &authConfig{admin: admin, operator: operator}
	return nil
}

// IsAuthEnabled returns true if authentication is configured.
func IsAuthEnabled() bool {
	return auth.enabled()
}

// authenticate returns the caller's role, or "" for bad credentials.
func authenticate(r *http.Request) Role {
	if !auth.enabled() {
		return RoleAdmin
	}

	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	if matches(auth.admin, user, pass) {
		return RoleAdmin
	}
	if auth.operator.Set() && matches(auth.operator, user, pass) {
		return RoleOperator
	}
	return ""
}

func matches(c config.Credentials, user, pass string) bool {
	// evaluate both so timing does not reveal which half was wrong
	u := secureCompare(user, c.User)
	p := secureCompare(pass, c.Pass)
	return u && p
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="TorchBridge"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RequireRole wraps a handler and requires one of the specified roles.
func RequireRole(handler http.HandlerFunc, allowedRoles ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			requireAuth(w)
			return
		}
		for _, allowed := range allowedRoles {
			if role == allowed {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole lets admins and operators through.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleOperator)
}

// RequireAdmin lets admins through.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
