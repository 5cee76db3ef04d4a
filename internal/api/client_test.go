// AngelaMos | 2026
// client_test.go

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civiclens/console-client/internal/credentials"
	"github.com/civiclens/console-client/internal/identity"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func TestClientAttachesBearerWhenTokenPresent(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // test helper
		_ = json.NewEncoder(w).Encode(identity.Principal{ID: "u1"})
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:     server.URL,
		Credentials: staticTokens("tok-abc"),
	})

	_, err := client.CurrentPrincipal(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-abc", gotAuth)
	require.NotEmpty(t, gotRequestID, "every call carries a correlation id")
}

func TestClientOmitsBearerWhenNoToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:     server.URL,
		Credentials: credentials.NewStore(t.TempDir()),
	})

	_, err := client.CurrentPrincipal(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Empty(t, gotAuth, "absent token means no header, not an error")
}

func TestClientDecodesErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		//nolint:errcheck // test helper
		_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"not yours"}}`))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})

	err := client.Logout(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.Status)
	require.Equal(t, "FORBIDDEN", apiErr.Code)
	require.Equal(t, "not yours", UserMessage(err))
}

func TestClientLoginRejectionIsInvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		//nolint:errcheck // test helper
		_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED","message":"invalid email or password"}}`))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})

	_, err := client.Login(context.Background(), LoginRequest{
		Email:    "member@springfield.civiclens.dev",
		Password: "wrong-password",
	})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.NotErrorIs(t, err, ErrUnauthorized,
		"a rejected login must not look like a dead session")
	require.Equal(t, "invalid email or password", UserMessage(err))
}

func TestClientValidatesBeforeTheWire(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL})

	_, err := client.Login(context.Background(), LoginRequest{
		Email:    "not-an-email",
		Password: "short",
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Zero(t, calls.Load())
}

func TestClientRetriesIdempotentCalls(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck // test helper
		_ = json.NewEncoder(w).Encode(identity.Principal{ID: "u1"})
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, MaxRetries: 2})

	principal, err := client.CurrentPrincipal(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", principal.ID)
	require.Equal(t, int64(2), calls.Load())
}

func TestClientNeverRetriesLogin(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, MaxRetries: 3})

	_, err := client.Login(context.Background(), LoginRequest{
		Email:    "member@springfield.civiclens.dev",
		Password: "memberpass-dev-1",
	})
	require.Error(t, err)
	require.Equal(t, int64(1), calls.Load(), "POSTs are not replayed")
}
