package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Client credentials the fake identity server expects as basic auth.
const (
	TestClientID     = "test-client"
	TestClientSecret = "test-secret"
	TestPassword     = "pw"
)

// FakeIdentity is an OAuth2 token endpoint supporting the password and refresh_token grants.
//
// Passwords equal to [TestPassword] are accepted; refresh tokens previously issued are accepted.
// Override OnPassword or OnRefresh to script responses.
type FakeIdentity struct {
	Server *httptest.Server

	OnPassword func(w http.ResponseWriter, username, password string)
	OnRefresh  func(w http.ResponseWriter, refreshToken string)

	t             testing.TB
	mu            sync.Mutex
	passwordCalls int
	refreshCalls  int
	issued        int
	valid         map[string]bool
}

// NewFakeIdentity starts a [FakeIdentity]; it is closed when the test ends.
func NewFakeIdentity(t testing.TB) *FakeIdentity {
	t.Helper()
	f := &FakeIdentity{t: t, valid: map[string]bool{}}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// TokenURL returns the token endpoint URL.
func (f *FakeIdentity) TokenURL() string {
	return f.Server.URL + "/oauth/token"
}

// PasswordCalls returns how many password grants were received.
func (f *FakeIdentity) PasswordCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.passwordCalls
}

// RefreshCalls returns how many refresh grants were received.
func (f *FakeIdentity) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func (f *FakeIdentity) serve(w http.ResponseWriter, r *http.Request) {
	id, secret, ok := r.BasicAuth()
	if !ok || id != TestClientID || secret != TestClientSecret {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_client"})
		return
	}

	if err := r.ParseForm(); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "password":
		f.mu.Lock()
		f.passwordCalls++
		f.mu.Unlock()

		username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
		if f.OnPassword != nil {
			f.OnPassword(w, username, password)
			return
		}
		if password != TestPassword {
			WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid_grant"})
			return
		}
		WriteJSON(w, http.StatusOK, f.issue(username))
	case "refresh_token":
		f.mu.Lock()
		f.refreshCalls++
		f.mu.Unlock()

		refresh := r.PostForm.Get("refresh_token")
		if f.OnRefresh != nil {
			f.OnRefresh(w, refresh)
			return
		}
		f.mu.Lock()
		known := f.valid[refresh]
		f.mu.Unlock()
		if !known {
			WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
			return
		}
		WriteJSON(w, http.StatusOK, f.issue("refreshed@example.com"))
	default:
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "unsupported_grant_type"})
	}
}

// Issue mints a token response for username and remembers its refresh token.
func (f *FakeIdentity) issue(username string) map[string]any {
	f.mu.Lock()
	f.issued++
	n := f.issued
	refresh := fmt.Sprintf("R%d", n)
	f.valid[refresh] = true
	f.mu.Unlock()

	return map[string]any{
		"access_token":  MakeToken(f.t, map[string]any{"user_id": fmt.Sprintf("u-%d", n), "acc_id": 1000 + n, "user_name": username}),
		"refresh_token": refresh,
		"expires_in":    3600,
		"token_type":    "bearer",
	}
}

// WriteJSON writes v as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
