package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_PersistsCredentialsAndProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ada@example.com", req.Email)
		assert.Equal(t, "hunter2", req.Password)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"token": "access-1",
			"refreshToken": "refresh-1",
			"email": "ada@example.com",
			"userName": "ada",
			"storageUsed": 100,
			"storageLimit": 1000
		}`))
	}))
	defer srv.Close()

	store := &memStore{}
	client := NewClient(srv.URL, http.DefaultClient, store, nil)

	resp, err := client.Login(context.Background(), LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "access-1", resp.Token)

	assert.Equal(t, "access-1", store.AccessToken())
	assert.Equal(t, "refresh-1", store.RefreshToken())
	assert.True(t, client.LoggedIn())

	cached := client.CachedUser()
	require.NotNil(t, cached)
	assert.Equal(t, "ada", cached.UserName)
	assert.Equal(t, int64(100), cached.StorageUsed)
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid email or password"}`))
	}))
	defer srv.Close()

	store := &memStore{}
	client := NewClient(srv.URL, http.DefaultClient, store, nil)

	_, err := client.Login(context.Background(), LoginRequest{Email: "x", Password: "y"})
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", ErrorMessage(err))
	assert.False(t, client.LoggedIn())
}

func TestLogin_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"email":"x@example.com"}`))
	}))
	defer srv.Close()

	store := &memStore{}
	client := NewClient(srv.URL, http.DefaultClient, store, nil)

	_, err := client.Login(context.Background(), LoginRequest{Email: "x", Password: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing token")
	assert.Empty(t, store.AccessToken())
}

func TestLogout_ClearsStore(t *testing.T) {
	store := &memStore{accessToken: "a", refreshToken: "r", user: &UserProfile{UserName: "ada"}}
	client := NewClient("http://unused.invalid", http.DefaultClient, store, nil)

	require.True(t, client.LoggedIn())
	require.NoError(t, client.Logout())

	assert.False(t, client.LoggedIn())
	assert.Empty(t, store.RefreshToken())
	assert.Nil(t, client.CachedUser())
}

// A login 401 must not trigger the refresh machinery — there is nothing to
// refresh yet.
func TestLogin_UnauthorizedDoesNotRefresh(t *testing.T) {
	mux := http.NewServeMux()

	refreshHit := false

	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		refreshHit = true
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	// No stored credentials, so no refresh token either.
	store := &memStore{}
	client := NewClient(srv.URL, http.DefaultClient, store, nil)

	_, err := client.Login(context.Background(), LoginRequest{Email: "x", Password: "y"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, refreshHit)
}
