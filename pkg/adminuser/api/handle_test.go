package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-admin/pkg/adminuser"
	"github.com/tendant/simple-admin/pkg/auth"
)

// withTestUser injects the caller directly, standing in for the token
// middleware.
func withTestUser(user *auth.AuthUser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithAuthUser(r.Context(), user)))
		})
	}
}

func setupServer(t *testing.T, user *auth.AuthUser) (*httptest.Server, *adminuser.InMemoryRepository) {
	repo := adminuser.NewInMemoryRepository()
	service, err := adminuser.NewAdminUserService(repo, nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	if user != nil {
		r.Use(withTestUser(user))
	}
	SecureRoutes(r, NewHandle(service), "admin")

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, repo
}

func adminUser() *auth.AuthUser {
	return &auth.AuthUser{UserId: "test-admin", Roles: []string{"admin"}}
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCreateAndGetUser(t *testing.T) {
	server, _ := setupServer(t, adminUser())

	resp := postJSON(t, server.URL+"/users", map[string]interface{}{
		"user_name":  "alice",
		"email":      "alice@example.com",
		"first_name": "Alice",
		"last_name":  "Smith",
		"password":   "p@ss123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID     string                 `json:"id"`
		Result map[string]interface{} `json:"result"`
	}
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.Result["UserName"])
	assert.Equal(t, "Alice Smith", created.Result["DisplayName"])
	_, hasHash := created.Result["PasswordHash"]
	assert.False(t, hasHash)

	resp, err := http.Get(server.URL + "/users/" + created.ID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched struct {
		ID     string                 `json:"id"`
		Result map[string]interface{} `json:"result"`
	}
	decodeBody(t, resp, &fetched)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "alice@example.com", fetched.Result["Email"])
}

func TestCreateUserConflict(t *testing.T) {
	server, repo := setupServer(t, adminUser())
	repo.SeedUser(adminuser.UserAuth{UserName: "alice", Email: "alice@example.com"})

	resp := postJSON(t, server.URL+"/users", map[string]interface{}{
		"user_name": "alice",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body ErrorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "ALREADY_EXISTS", body.Status.Code)
	assert.Equal(t, "UserName", body.Status.Details["field"])
}

func TestGetUserNotFound(t *testing.T) {
	server, _ := setupServer(t, adminUser())

	resp, err := http.Get(server.URL + "/users/no-such-id")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body ErrorResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "USER_NOT_FOUND", body.Status.Code)
}

func TestQueryUsersEndpoint(t *testing.T) {
	server, repo := setupServer(t, adminUser())
	repo.SeedUser(adminuser.UserAuth{UserName: "alice"})
	repo.SeedUser(adminuser.UserAuth{UserName: "bob"})
	repo.SeedUser(adminuser.UserAuth{UserName: "carol"})

	resp, err := http.Get(server.URL + "/users?orderBy=-UserName&skip=1&take=1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Results []map[string]interface{} `json:"results"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "bob", body.Results[0]["UserName"])
}

func TestUpdateUserEndpoint(t *testing.T) {
	server, repo := setupServer(t, adminUser())
	id := repo.SeedUser(adminuser.UserAuth{UserName: "alice", FirstName: "Alice"})

	data, err := json.Marshal(map[string]interface{}{"last_name": "Smith"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, server.URL+"/users/"+id, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Result map[string]interface{} `json:"result"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Smith", body.Result["LastName"])
	assert.Equal(t, "Alice", body.Result["FirstName"])
}

func TestDeleteUserEndpoint(t *testing.T) {
	server, repo := setupServer(t, adminUser())
	id := repo.SeedUser(adminuser.UserAuth{UserName: "alice"})

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/users/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, id, body.ID)

	resp, err = http.Get(server.URL + "/users/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInfoEndpoint(t *testing.T) {
	server, _ := setupServer(t, adminUser())

	resp, err := http.Get(server.URL + "/info")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		AccessRole string   `json:"access_role"`
		Enabled    []string `json:"enabled"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "admin", body.AccessRole)
	assert.Equal(t, []string{"query", "manageRoles"}, body.Enabled)
}

func TestRoutesRequireAdminRole(t *testing.T) {
	server, _ := setupServer(t, &auth.AuthUser{UserId: "mallory", Roles: []string{"employee"}})

	resp, err := http.Get(server.URL + "/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRoutesRequireAuthentication(t *testing.T) {
	server, _ := setupServer(t, nil)

	resp, err := http.Get(server.URL + "/users")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
