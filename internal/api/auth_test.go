package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AaronLay10/zbxport/internal/config"
)

func resetAuth() {
	auth = nil
}

// useAccounts enables admin:secret and operator:opsecret.
func useAccounts() {
	auth = newAuthConfig(
		config.Credentials{User: "admin", Pass: "secret"},
		config.Credentials{User: "operator", Pass: "opsecret"},
	)
}

// call runs handler for a request carrying the given basic credentials,
// skipped when user is empty, and reports whether handler ran.
func call(handler func(http.HandlerFunc) http.HandlerFunc, user, pass string) (bool, *httptest.ResponseRecorder) {
	called := false
	h := handler(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodPost, "/export", nil)
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return called, w
}

func TestAuthDisabledAdmitsEveryone(t *testing.T) {
	auth = newAuthConfig(config.Credentials{}, config.Credentials{User: "operator", Pass: "opsecret"})
	defer resetAuth()

	if IsAuthEnabled() {
		t.Fatal("auth should be disabled without admin credentials")
	}
	called, w := call(RequireAdmin, "", "")
	if !called || w.Code != http.StatusOK {
		t.Errorf("expected anonymous admin access, got called=%v status=%d", called, w.Code)
	}
}

func TestRoleChecks(t *testing.T) {
	useAccounts()
	defer resetAuth()

	tests := []struct {
		name    string
		handler func(http.HandlerFunc) http.HandlerFunc
		user    string
		pass    string
		want    int
	}{
		{"no credentials", RequireAnyRole, "", "", http.StatusUnauthorized},
		{"admin any role", RequireAnyRole, "admin", "secret", http.StatusOK},
		{"operator any role", RequireAnyRole, "operator", "opsecret", http.StatusOK},
		{"wrong password", RequireAnyRole, "admin", "wrongpassword", http.StatusUnauthorized},
		{"swapped passwords", RequireAnyRole, "operator", "secret", http.StatusUnauthorized},
		{"admin exports", RequireAdmin, "admin", "secret", http.StatusOK},
		{"operator cannot export", RequireAdmin, "operator", "opsecret", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, w := call(tt.handler, tt.user, tt.pass)
			if w.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, w.Code)
			}
			if called != (tt.want == http.StatusOK) {
				t.Errorf("handler called=%v for status %d", called, w.Code)
			}
			if tt.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
		})
	}
}

func TestOperatorOptional(t *testing.T) {
	auth = newAuthConfig(config.Credentials{User: "admin", Pass: "secret"}, config.Credentials{User: "operator"})
	defer resetAuth()

	if called, _ := call(RequireAnyRole, "admin", "secret"); !called {
		t.Error("admin should be admitted")
	}
	if called, w := call(RequireAnyRole, "operator", ""); called || w.Code != http.StatusUnauthorized {
		t.Errorf("incomplete operator account should not exist, got status %d", w.Code)
	}
}

func TestRequireRoleRecordsPrincipal(t *testing.T) {
	useAccounts()
	defer resetAuth()

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.SetBasicAuth("operator", "opsecret")
	req, who := withPrincipal(req)
	RequireAdmin(func(http.ResponseWriter, *http.Request) {})(httptest.NewRecorder(), req)

	if who.user != "operator" || who.role != RoleOperator {
		t.Errorf("expected operator/operator, got %q/%q", who.user, who.role)
	}
}

func TestSecureCompare(t *testing.T) {
	if !secureCompare("test", "test") {
		t.Error("identical strings should match")
	}
	if secureCompare("test", "Test") {
		t.Error("different case should not match")
	}
	if secureCompare("", "test") {
		t.Error("empty vs non-empty should not match")
	}
}

func TestInitAuthFromEnv(t *testing.T) {
	defer resetAuth()
	t.Setenv("ZBXPORT_ADMIN_USER", "admin")
	t.Setenv("ZBXPORT_ADMIN_PASS", "secret")
	t.Setenv("ZBXPORT_OPERATOR_USER", "")
	t.Setenv("ZBXPORT_OPERATOR_PASS", "")

	if err := InitAuth(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsAuthEnabled() {
		t.Error("auth should be enabled when admin credentials are set")
	}
	if len(auth.accounts) != 1 {
		t.Errorf("expected only the admin account, got %d", len(auth.accounts))
	}
}

func TestInitAuthWithoutAdminDisabled(t *testing.T) {
	defer resetAuth()
	t.Setenv("ZBXPORT_ADMIN_USER", "")
	t.Setenv("ZBXPORT_ADMIN_PASS", "")
	t.Setenv("ZBXPORT_OPERATOR_USER", "operator")
	t.Setenv("ZBXPORT_OPERATOR_PASS", "opsecret")

	if err := InitAuth(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsAuthEnabled() {
		t.Error("auth should stay disabled without admin credentials")
	}
}

func TestInitAuthUnreadableSecretFile(t *testing.T) {
	defer resetAuth()
	t.Setenv("ZBXPORT_ADMIN_USER_FILE", "/nonexistent/admin-user")

	if err := InitAuth(); err == nil {
		t.Error("expected error for unreadable secret file")
	}
}
