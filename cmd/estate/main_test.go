package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/activitymap"
)

const testWallet = "0x71562b71999873db5b286df957af199ec94617f7"

type backendStub struct {
	mu      sync.Mutex
	users   map[string]auth.User
	logouts int
}

func newBackendStub(t *testing.T) (*backendStub, *httptest.Server) {
	t.Helper()
	b := &backendStub{users: map[string]auth.User{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Wallet string `json:"wallet"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		u, ok := b.users[req.Wallet]
		b.mu.Unlock()
		if !ok {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"user": u})
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var req auth.NewUserRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		u := auth.User{ID: "7", Wallet: req.Wallet, Name: req.Name, Role: req.Role}
		b.users[req.Wallet] = u
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(u)
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.logouts++
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(auth.HealthStatus{Status: "ok", Message: "ready"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ESTATE_LOG_LEVEL", "error")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeView(t *testing.T, raw string) sessionView {
	t.Helper()
	var v sessionView
	require.NoError(t, json.Unmarshal([]byte(raw), &v), raw)
	return v
}

func TestLoginWhoamiLogout(t *testing.T) {
	stub, srv := newBackendStub(t)
	session := filepath.Join(t.TempDir(), "session.json")
	common := []string{"--backend.url", srv.URL, "--session.driver", "file", "--session.path", session}

	out, err := execute(t, append([]string{"login", testWallet, "--name", "Alice"}, common...)...)
	require.NoError(t, err)
	view := decodeView(t, out)
	assert.True(t, view.Authenticated)
	require.NotNil(t, view.User)
	assert.Equal(t, "Alice", view.User.Name)
	assert.Equal(t, auth.RoleUser, view.User.Role)
	assert.True(t, view.Permissions["canAccessDashboard"])
	assert.False(t, view.Permissions["canAccessAdmin"])

	out, err = execute(t, append([]string{"whoami"}, common...)...)
	require.NoError(t, err)
	view = decodeView(t, out)
	assert.True(t, view.Authenticated)
	assert.Equal(t, auth.PhaseAuthenticated, view.Phase)

	out, err = execute(t, append([]string{"logout"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "signed out")
	assert.Equal(t, 1, stub.logouts)

	out, err = execute(t, append([]string{"whoami"}, common...)...)
	require.NoError(t, err)
	assert.False(t, decodeView(t, out).Authenticated)
}

func TestLoginWithSQLiteSession(t *testing.T) {
	_, srv := newBackendStub(t)
	db := filepath.Join(t.TempDir(), "estate.db")
	common := []string{"--backend.url", srv.URL, "--session.driver", "sqlite", "--session.path", db}

	_, err := execute(t, append([]string{"login", testWallet}, common...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"whoami"}, common...)...)
	require.NoError(t, err)
	view := decodeView(t, out)
	assert.True(t, view.Authenticated)
	assert.Equal(t, auth.DisplayNameFor(testWallet), view.User.Name)
}

func TestLoginRejectsMalformedWallet(t *testing.T) {
	_, srv := newBackendStub(t)
	_, err := execute(t, "login", "nope", "--backend.url", srv.URL, "--session.driver", "memory")
	require.Error(t, err)
	assert.True(t, auth.IsValidation(err))
}

func TestHealth(t *testing.T) {
	_, srv := newBackendStub(t)
	out, err := execute(t, "health", "--backend.url", srv.URL, "--session.driver", "memory")
	require.NoError(t, err)
	var status auth.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status), out)
	assert.Equal(t, "ok", status.Status)
}

func TestGrantRoleRequiresSession(t *testing.T) {
	_, srv := newBackendStub(t)
	_, err := execute(t, "grant-role", "--backend.url", srv.URL, "--session.driver", "memory",
		"--user-id", "7", "--grantee", testWallet, "--role", "MANAGER_ROLE", "--properties", "1")
	require.Error(t, err)
	assert.True(t, auth.IsUnauthorized(err))
}

func TestActivityListsLoginEvents(t *testing.T) {
	_, srv := newBackendStub(t)
	db := filepath.Join(t.TempDir(), "estate.db")
	common := []string{"--backend.url", srv.URL, "--session.driver", "sqlite", "--session.path", db}

	_, err := execute(t, append([]string{"login", testWallet}, common...)...)
	require.NoError(t, err)

	out, err := execute(t, append([]string{"activity", "--limit", "10"}, common...)...)
	require.NoError(t, err)

	var entries []activitymap.Normalized
	require.NoError(t, json.Unmarshal([]byte(out), &entries), out)
	verbs := make([]string, 0, len(entries))
	for _, e := range entries {
		verbs = append(verbs, e.Verb)
	}
	assert.Contains(t, verbs, string(auth.ActivityEventUserProvisioned))
	assert.Contains(t, verbs, string(auth.ActivityEventLoginSuccess))
}

func TestActivityNeedsDatabase(t *testing.T) {
	_, srv := newBackendStub(t)
	_, err := execute(t, "activity", "--backend.url", srv.URL, "--session.driver", "memory")
	require.Error(t, err)
	assert.True(t, auth.IsValidation(err))
}

func TestRolesRejectsBadAccount(t *testing.T) {
	_, srv := newBackendStub(t)
	_, err := execute(t, "roles", "--account", "nope", "--backend.url", srv.URL, "--session.driver", "memory")
	require.Error(t, err)
	assert.True(t, auth.IsValidation(err))
}
