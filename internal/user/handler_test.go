package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sebuszqo/ExpenseTracker/internal/db/dbtest"
	"github.com/sebuszqo/ExpenseTracker/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHandler(t *testing.T) (*Handler, Service) {
	t.Helper()
	db := dbtest.New(t)
	service := NewUserService(NewUserRepository(db.Conn()), db, NewBcryptHasher(bcrypt.MinCost), &otherCategoryProvisioner{}, nil, nil)
	return NewHandler(service, respondJSON, respondError), service
}

func serve(handler http.HandlerFunc, method, target, pattern string, body any, actor *policy.Actor) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if actor != nil {
		req = req.WithContext(policy.WithActor(req.Context(), *actor))
	}

	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handler)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestHandleGetCurrentUser(t *testing.T) {
	handler, service := newTestHandler(t)
	alice, err := service.Register(context.Background(), CreateUserInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	actor := alice.Actor()

	w := serve(handler.HandleGetCurrentUser, http.MethodGet, "/api/protected/users", "GET /api/protected/users", nil, &actor)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "alice", data["username"])
	assert.NotContains(t, data, "PasswordHash")
}

func TestHandleGetCurrentUser_Unauthorized(t *testing.T) {
	handler, _ := newTestHandler(t)

	w := serve(handler.HandleGetCurrentUser, http.MethodGet, "/api/protected/users", "GET /api/protected/users", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleUpdateUser_CrossAdminForbidden(t *testing.T) {
	handler, service := newTestHandler(t)
	ctx := context.Background()
	x, err := service.CreateAdmin(ctx, CreateUserInput{Username: "admin-x", Password: "password123"})
	require.NoError(t, err)
	_, err = service.CreateAdmin(ctx, CreateUserInput{Username: "admin-y", Password: "password123"})
	require.NoError(t, err)
	actor := x.Actor()

	w := serve(handler.HandleUpdateUser, http.MethodPut, "/api/protected/users/2", "PUT /api/protected/users/{userID}",
		map[string]string{"display_name": "Renamed"}, &actor)

	assert.Equal(t, http.StatusForbidden, w.Code)
	response := decode(t, w)
	assert.Equal(t, "error", response["status"])
	assert.Equal(t, msgCannotUpdateOtherAdmin, response["message"])
}

func TestHandleUpdateUser_InvalidID(t *testing.T) {
	handler, _ := newTestHandler(t)
	actor := policy.Actor{ID: 1, Role: policy.RoleAdmin}

	w := serve(handler.HandleUpdateUser, http.MethodPut, "/api/protected/users/abc", "PUT /api/protected/users/{userID}",
		map[string]string{"display_name": "Renamed"}, &actor)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDeleteCurrentUser_WrongPassword(t *testing.T) {
	handler, service := newTestHandler(t)
	alice, err := service.Register(context.Background(), CreateUserInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	actor := alice.Actor()

	w := serve(handler.HandleDeleteCurrentUser, http.MethodDelete, "/api/protected/users", "DELETE /api/protected/users",
		map[string]string{"password": "nope-nope"}, &actor)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(handler.HandleDeleteCurrentUser, http.MethodDelete, "/api/protected/users", "DELETE /api/protected/users",
		map[string]string{"password": "password123"}, &actor)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleListUsers_RequiresAdmin(t *testing.T) {
	handler, service := newTestHandler(t)
	alice, err := service.Register(context.Background(), CreateUserInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	actor := alice.Actor()

	w := serve(handler.HandleListUsers, http.MethodGet, "/api/protected/users/all", "GET /api/protected/users/all", nil, &actor)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNewHandler_RequiresResponseFunctions(t *testing.T) {
	_, service := newTestHandler(t)

	assert.Panics(t, func() { NewHandler(service, nil, respondError) })
	assert.Panics(t, func() { NewHandler(service, respondJSON, nil) })
}
