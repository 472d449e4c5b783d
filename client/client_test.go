package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	auth "github.com/tokenestate/go-estate-auth"
	"github.com/tokenestate/go-estate-auth/client"
)

const wallet = "0x1234567890abcdef1234567890abcdef12345678"

func newClient(t *testing.T, handler http.HandlerFunc, opts ...client.Option) *client.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]client.Option{client.WithLogger(auth.NopLogger())}, opts...)
	c, err := client.New(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestLoginDecodesUser(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, wallet, r.Header.Get(client.HeaderWallet))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, wallet, body["wallet"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "7", "wallet": wallet, "name": "Ada", "role": "manager"},
		})
	})

	user, err := c.Login(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)
	assert.Equal(t, auth.RoleManager, user.Role)
}

func TestLoginAcceptsBareUser(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "8", "wallet": wallet, "role": "admin"})
	})

	user, err := c.Login(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, "8", user.ID)
	assert.Equal(t, auth.RoleAdmin, user.Role)
}

func TestLoginWithoutUserIsNotFound(t *testing.T) {
	bodies := map[string]string{
		"empty":         "",
		"empty object":  "{}",
		"empty wrapper": `{"user":{}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(body))
			})

			user, err := c.Login(context.Background(), wallet)
			require.Error(t, err)
			assert.Nil(t, user)
			assert.True(t, auth.IsNotFound(err))
		})
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, auth.IsNotFound},
		{"unauthorized", http.StatusUnauthorized, auth.IsUnauthorized},
		{"bad request", http.StatusBadRequest, auth.IsValidation},
		{"forbidden", http.StatusForbidden, client.IsForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			})

			_, err := c.Login(context.Background(), wallet)
			require.Error(t, err)
			assert.True(t, tt.check(err), "%v", err)
			assert.Contains(t, err.Error(), "nope")
		})
	}

	t.Run("server error is neither identity kind", func(t *testing.T) {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := c.Login(context.Background(), wallet)
		require.Error(t, err)
		assert.False(t, auth.IsNotFound(err))
		assert.False(t, auth.IsUnauthorized(err))
		assert.False(t, auth.IsNetwork(err))
		assert.ErrorIs(t, err, client.ErrBackend)
	})
}

func TestTransportFailureIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := client.New(url, client.WithLogger(auth.NopLogger()))
	require.NoError(t, err)

	_, err = c.Login(context.Background(), wallet)
	require.Error(t, err)
	assert.True(t, auth.IsNetwork(err))
	assert.Equal(t, auth.TextCodeNetwork, auth.ErrorKind(err))
}

func TestTimeoutIsNetwork(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, client.WithTimeout(20*time.Millisecond))

	_, err := c.Login(context.Background(), wallet)
	require.Error(t, err)
	assert.True(t, auth.IsNetwork(err))
}

func TestCreateUserSendsIdempotencyKey(t *testing.T) {
	key := auth.ProvisionKey(wallet)
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, key, r.Header.Get(client.HeaderIdempotencyKey))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user", body["role"])
		assert.NotContains(t, body, "IdempotencyKey")

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "9", "wallet": wallet, "role": "user"})
	})

	user, err := c.CreateUser(context.Background(), auth.NewUserRequest{
		Wallet:         wallet,
		Name:           auth.DisplayNameFor(wallet),
		Role:           auth.RoleUser,
		IdempotencyKey: key,
	})
	require.NoError(t, err)
	assert.Equal(t, "9", user.ID)
}

func TestUpdateUserRoleUsesSessionToken(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/users/42/role", r.URL.Path)
		assert.Equal(t, "Bearer "+wallet, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "manager", body["role"])

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "role": "manager"})
	}, client.WithTokenSource(func() (string, bool) { return wallet, true }))

	user, err := c.UpdateUserRole(context.Background(), "42", auth.RoleManager)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManager, user.Role)

	_, err = c.UpdateUserRole(context.Background(), " ", auth.RoleManager)
	assert.True(t, auth.IsValidation(err))
}

func TestListEndpoints(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users":
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "1", "role": "admin"}, {"id": "2", "role": "user"}})
		case "/properties/public", "/api/properties":
			_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "p1", "name": "Loft", "on_chain_id": 3}})
		case "/health":
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "message": "up"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	users, err := c.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	props, err := c.PublicProperties(ctx)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.True(t, props[0].IsOnChain())

	props, err = c.Properties(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Loft", props[0].Name)

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestLogoutAcceptsEmptyBody(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/logout", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.Logout(context.Background(), wallet))
}

func TestRateLimitWaitHonoursContext(t *testing.T) {
	calls := 0
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}, client.WithRateLimit(0.001, 1))

	require.NoError(t, c.Logout(context.Background(), wallet))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Logout(ctx, wallet)
	require.Error(t, err)
	assert.True(t, auth.IsNetwork(err))
	assert.Equal(t, 1, calls)
}

func TestNewRejectsInvalidURL(t *testing.T) {
	_, err := client.New("not a url")
	assert.True(t, auth.IsValidation(err))
}
