package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/amberops/ambulance-dispatch-api/api"
	"github.com/amberops/ambulance-dispatch-api/config"
	"github.com/amberops/ambulance-dispatch-api/databases"
	mocksdb "github.com/amberops/ambulance-dispatch-api/databases/mocks"
	"github.com/amberops/ambulance-dispatch-api/models"
)

func loginMocks(t *testing.T, password string) *mocksdb.DatabaseHelper {
	t.Helper()

	hashed, err := hashPassword(password)
	assert.NoError(t, err)

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).ID = primitive.NewObjectID()
		(*arg).Details = models.UserDetails{
			Role:     models.RoleDispatcher,
			Email:    "dispatch@example.com",
			Password: hashed,
		}
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "users").Return(conn)
	return db
}

func TestUser_LoginHandlerSuccess(t *testing.T) {
	db := loginMocks(t, "opensesame1")

	body, _ := json.Marshal(map[string]interface{}{
		"email":    "dispatch@example.com",
		"password": "opensesame1",
	})
	req, err := http.NewRequest("POST", "/api/v1/users/login", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	u := User{
		DB:     databases.NewUserDatabase(db),
		Config: config.Config{JWTSecret: "test-secret", TokenTTL: time.Minute},
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.LoginHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "login successful", resp.Message)
	assert.NotEmpty(t, resp.Token)

	// the issued credential must verify against the same secret
	claims, err := api.ParseToken(resp.Token, "test-secret")
	assert.NoError(t, err)
	assert.Equal(t, models.RoleDispatcher, claims.Role)
}

func TestUser_LoginHandlerWrongPassword(t *testing.T) {
	db := loginMocks(t, "opensesame1")

	body, _ := json.Marshal(map[string]interface{}{
		"email":    "dispatch@example.com",
		"password": "not-the-password",
	})
	req, err := http.NewRequest("POST", "/api/v1/users/login", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	u := User{
		DB:     databases.NewUserDatabase(db),
		Config: config.Config{JWTSecret: "test-secret", TokenTTL: time.Minute},
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(u.LoginHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var resp models.ErrorMessageResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "invalid email or password", resp.Message)
}
