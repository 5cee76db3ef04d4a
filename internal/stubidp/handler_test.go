// AngelaMos | 2026
// handler_test.go

package stubidp

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	accounts, err := DevAccounts()
	require.NoError(t, err)

	issuer, err := NewTokenIssuer("test-idp", "test-console", 15*time.Minute)
	require.NoError(t, err)

	handler := NewHandler(
		NewAccountStore(accounts),
		issuer,
		NewLoginLimiter(600, 100),
		nil,
	)

	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server
}

func postJSON(
	t *testing.T,
	url, token string,
	payload any,
) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getMe(t *testing.T, baseURL, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, baseURL+"/auth/me", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func login(t *testing.T, baseURL, email, password string) map[string]any {
	t.Helper()

	resp := postJSON(t, baseURL+"/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func TestLoginIssuesTokenWithPrincipalFields(t *testing.T) {
	server := newTestServer(t)

	decoded := login(
		t,
		server.URL,
		"agent@springfield.civiclens.dev",
		"agentpass-dev-1",
	)

	require.NotEmpty(t, decoded["access_token"])
	require.Equal(t, "FieldAgent", decoded["role"])
	require.Equal(t, "tenant-springfield", decoded["tenant_id"])
	require.Contains(t, decoded["permissions"], "issues:read")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/auth/login", "", map[string]string{
		"email":    "agent@springfield.civiclens.dev",
		"password": "wrong-password",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, "UNAUTHORIZED", envelope.Error.Code)
}

func TestMeReflectsLogout(t *testing.T) {
	server := newTestServer(t)

	decoded := login(
		t,
		server.URL,
		"member@springfield.civiclens.dev",
		"memberpass-dev-1",
	)
	token, _ := decoded["access_token"].(string)

	me := getMe(t, server.URL, token)
	me.Body.Close()
	require.Equal(t, http.StatusOK, me.StatusCode)

	logout := postJSON(t, server.URL+"/auth/logout", token, nil)
	logout.Body.Close()
	require.Equal(t, http.StatusNoContent, logout.StatusCode)

	// The token still parses, but the session is gone.
	meAfter := getMe(t, server.URL, token)
	meAfter.Body.Close()
	require.Equal(t, http.StatusUnauthorized, meAfter.StatusCode)
}

func TestLogoutTwiceIsAlreadyInvalid(t *testing.T) {
	server := newTestServer(t)

	decoded := login(
		t,
		server.URL,
		"member@springfield.civiclens.dev",
		"memberpass-dev-1",
	)
	token, _ := decoded["access_token"].(string)

	first := postJSON(t, server.URL+"/auth/logout", token, nil)
	first.Body.Close()
	require.Equal(t, http.StatusNoContent, first.StatusCode)

	second := postJSON(t, server.URL+"/auth/logout", token, nil)
	second.Body.Close()
	require.Equal(t, http.StatusUnauthorized, second.StatusCode,
		"a revoked session cannot go through the normal logout path")
}

func TestForcedLogoutAlwaysSucceeds(t *testing.T) {
	server := newTestServer(t)

	decoded := login(
		t,
		server.URL,
		"member@springfield.civiclens.dev",
		"memberpass-dev-1",
	)
	token, _ := decoded["access_token"].(string)

	// Revoke normally first, then force; then force again with garbage.
	logout := postJSON(t, server.URL+"/auth/logout", token, nil)
	logout.Body.Close()

	force := postJSON(t, server.URL+"/auth/logout-force", token, nil)
	force.Body.Close()
	require.Equal(t, http.StatusOK, force.StatusCode)

	garbage := postJSON(t, server.URL+"/auth/logout-force", "not-a-jwt", nil)
	garbage.Body.Close()
	require.Equal(t, http.StatusOK, garbage.StatusCode)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	server := newTestServer(t)

	decoded := login(
		t,
		server.URL,
		"admin@springfield.civiclens.dev",
		"adminpass-dev-1",
	)
	token, _ := decoded["access_token"].(string)

	wrong := postJSON(t, server.URL+"/auth/change-password", token, map[string]string{
		"old": "not-the-password",
		"new": "new-password-1",
	})
	wrong.Body.Close()
	require.Equal(t, http.StatusUnauthorized, wrong.StatusCode)

	right := postJSON(t, server.URL+"/auth/change-password", token, map[string]string{
		"old": "adminpass-dev-1",
		"new": "new-password-1",
	})
	right.Body.Close()
	require.Equal(t, http.StatusNoContent, right.StatusCode)

	relogin := postJSON(t, server.URL+"/auth/login", "", map[string]string{
		"email":    "admin@springfield.civiclens.dev",
		"password": "new-password-1",
	})
	relogin.Body.Close()
	require.Equal(t, http.StatusOK, relogin.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	accounts, err := DevAccounts()
	require.NoError(t, err)

	issuer, err := NewTokenIssuer("test-idp", "test-console", time.Minute)
	require.NoError(t, err)

	handler := NewHandler(
		NewAccountStore(accounts),
		issuer,
		NewLoginLimiter(600, 100),
		nil,
	)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	request := postJSON(t, server.URL+"/auth/password-reset", "", map[string]string{
		"email": "member@springfield.civiclens.dev",
	})
	request.Body.Close()
	require.Equal(t, http.StatusOK, request.StatusCode)

	// The reset token is only surfaced through the dev log; reach into
	// the handler for it.
	handler.mu.Lock()
	require.Len(t, handler.resetTokens, 1)
	var resetToken string
	for token := range handler.resetTokens {
		resetToken = token
	}
	handler.mu.Unlock()

	confirm := postJSON(t, server.URL+"/auth/password-reset/confirm", "", map[string]string{
		"token": resetToken,
		"new":   "fresh-password-1",
	})
	confirm.Body.Close()
	require.Equal(t, http.StatusOK, confirm.StatusCode)

	reuse := postJSON(t, server.URL+"/auth/password-reset/confirm", "", map[string]string{
		"token": resetToken,
		"new":   "fresh-password-2",
	})
	reuse.Body.Close()
	require.Equal(t, http.StatusBadRequest, reuse.StatusCode,
		"reset tokens are single use")

	relogin := postJSON(t, server.URL+"/auth/login", "", map[string]string{
		"email":    "member@springfield.civiclens.dev",
		"password": "fresh-password-1",
	})
	relogin.Body.Close()
	require.Equal(t, http.StatusOK, relogin.StatusCode)
}

func TestResetForUnknownAccountLeaksNothing(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/auth/password-reset", "", map[string]string{
		"email": "nobody@springfield.civiclens.dev",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginRateLimit(t *testing.T) {
	accounts, err := DevAccounts()
	require.NoError(t, err)

	issuer, err := NewTokenIssuer("test-idp", "test-console", time.Minute)
	require.NoError(t, err)

	handler := NewHandler(
		NewAccountStore(accounts),
		issuer,
		NewLoginLimiter(1, 2),
		nil,
	)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	payload := map[string]string{
		"email":    "member@springfield.civiclens.dev",
		"password": "wrong-password-1",
	}

	for i := 0; i < 2; i++ {
		resp := postJSON(t, server.URL+"/auth/login", "", payload)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	limited := postJSON(t, server.URL+"/auth/login", "", payload)
	defer limited.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, limited.StatusCode)
	require.NotEmpty(t, limited.Header.Get("Retry-After"))
}
