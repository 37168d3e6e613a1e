package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/amberops/ambulance-dispatch-api/api"
	"github.com/amberops/ambulance-dispatch-api/databases"
	mocksdb "github.com/amberops/ambulance-dispatch-api/databases/mocks"
	"github.com/amberops/ambulance-dispatch-api/models"
)

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func authWithUser(role string) (api.Auth, primitive.ObjectID) {
	userID := primitive.NewObjectID()

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).ID = userID
		(*arg).Details.Role = role
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "users").Return(conn)

	return api.Auth{DB: databases.NewUserDatabase(db), Secret: "test-secret"}, userID
}

func TestMiddlewareMissingHeader(t *testing.T) {
	auth, _ := authWithUser(models.RoleUser)
	next, called := okHandler()

	req := httptest.NewRequest("GET", "/api/v1/ambulances", nil)
	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, *called)

	var resp models.ErrorMessageResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "missing authorization header", resp.Message)
}

func TestMiddlewareMalformedHeader(t *testing.T) {
	auth, _ := authWithUser(models.RoleUser)
	next, called := okHandler()

	req := httptest.NewRequest("GET", "/api/v1/ambulances", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, *called)
}

func TestMiddlewareExpiredToken(t *testing.T) {
	auth, userID := authWithUser(models.RoleUser)
	next, called := okHandler()

	token, err := api.GenerateToken(userID, models.RoleUser, "test-secret", -time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/ambulances", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, *called)

	var resp models.ErrorMessageResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "token expired", resp.Message)
}

func TestMiddlewareDeletedPrincipal(t *testing.T) {
	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(errors.New("mongo: no documents in result"))
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "users").Return(conn)

	auth := api.Auth{DB: databases.NewUserDatabase(db), Secret: "test-secret"}
	next, called := okHandler()

	token, err := api.GenerateToken(primitive.NewObjectID(), models.RoleUser, "test-secret", time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/ambulances", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, *called)
}

func TestMiddlewarePassesPrincipal(t *testing.T) {
	auth, userID := authWithUser(models.RoleDispatcher)

	var principal *models.User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ = api.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	token, err := api.GenerateToken(userID, models.RoleDispatcher, "test-secret", time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/ambulances", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotNil(t, principal)
	assert.Equal(t, userID, principal.ID)
}

// RequireRole reads the role stored on the user document, so a token minted
// with a stale role claim does not keep the old capability.
func TestRequireRoleUsesStoredRole(t *testing.T) {
	auth, userID := authWithUser(models.RoleUser)
	next, called := okHandler()

	token, err := api.GenerateToken(userID, models.RoleAdmin, "test-secret", time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Middleware(auth.RequireRole(models.RoleAdmin)(next)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, *called)

	var resp models.ErrorMessageResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "forbidden", resp.Message)
}

func TestRequireRoleAllowsMatch(t *testing.T) {
	auth, userID := authWithUser(models.RoleDispatcher)
	next, called := okHandler()

	token, err := api.GenerateToken(userID, models.RoleDispatcher, "test-secret", time.Minute)
	assert.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/v1/drivers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Middleware(auth.RequireRole(models.RoleAdmin, models.RoleDispatcher)(next)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, *called)
}
