package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/amberops/ambulance-dispatch-api/api/handlers"
	"github.com/amberops/ambulance-dispatch-api/databases"
	mocksdb "github.com/amberops/ambulance-dispatch-api/databases/mocks"
	"github.com/amberops/ambulance-dispatch-api/models"
)

func TestMedic_CreateMedicHandlerAlreadyMedic(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"userID":    "5fc51f58c72ff10004dca382",
		"specialty": "trauma",
	})
	req, err := http.NewRequest("POST", "/api/v1/medics", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	db := &mocksdb.DatabaseHelper{}
	userConn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	// the duplicate check is on the user's role string, not a medic record
	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).Details.Role = models.RoleMedic
	})
	userConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "users").Return(userConn)

	m := handlers.Medic{
		DB:  databases.NewMedicDatabase(db),
		UDB: databases.NewUserDatabase(db),
		ADB: databases.NewAmbulanceDatabase(db),
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.CreateMedicHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)

	var resp models.ErrorMessageResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "user is already a medic", resp.Message)
}

func TestMedic_CreateMedicHandlerSnapshotsUserFields(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"userID":    "5fc51f58c72ff10004dca382",
		"specialty": "trauma",
	})
	req, err := http.NewRequest("POST", "/api/v1/medics", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	db := &mocksdb.DatabaseHelper{}
	userConn := &mocksdb.CollectionHelper{}
	medicConn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.User)
		(*arg).Details = models.UserDetails{
			Name:  "Sam Osei",
			Role:  models.RoleUser,
			Phone: "555-0101",
		}
	})
	userConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	userConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	medicConn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	db.On("Collection", "users").Return(userConn)
	db.On("Collection", "medics").Return(medicConn)

	m := handlers.Medic{
		DB:  databases.NewMedicDatabase(db),
		UDB: databases.NewUserDatabase(db),
		ADB: databases.NewAmbulanceDatabase(db),
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.CreateMedicHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Message string       `json:"message"`
		Medic   models.Medic `json:"medic"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "medic created successfully", resp.Message)
	assert.Equal(t, "Sam Osei", resp.Medic.Details.Name)
	assert.Equal(t, "555-0101", resp.Medic.Details.Phone)
	assert.Equal(t, "trauma", resp.Medic.Details.Specialty)
}

func TestMedic_MedicByIDHandlerBadID(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/medics/1234", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"medic_id": "1234"})

	db := &mocksdb.DatabaseHelper{}
	m := handlers.Medic{
		DB:  databases.NewMedicDatabase(db),
		UDB: databases.NewUserDatabase(db),
		ADB: databases.NewAmbulanceDatabase(db),
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.MedicByIDHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp models.ErrorMessageResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "failed to get objectID from Hex", resp.Message)
}

func TestMedic_DeleteMedicHandlerRevertsRole(t *testing.T) {
	req, err := http.NewRequest("DELETE", "/api/v1/medics/5fc51f58c72ff10004dca382", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"medic_id": "5fc51f58c72ff10004dca382"})

	db := &mocksdb.DatabaseHelper{}
	userConn := &mocksdb.CollectionHelper{}
	medicConn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Medic)
		(*arg).Details.UserID = primitive.NewObjectID()
	})
	medicConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	medicConn.On("DeleteOne", mock.Anything, mock.Anything).Return(int64(1), nil)
	userConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	db.On("Collection", "medics").Return(medicConn)
	db.On("Collection", "users").Return(userConn)

	m := handlers.Medic{
		DB:  databases.NewMedicDatabase(db),
		UDB: databases.NewUserDatabase(db),
		ADB: databases.NewAmbulanceDatabase(db),
	}

	rr := httptest.NewRecorder()
	http.HandlerFunc(m.DeleteMedicHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	userConn.AssertCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
	medicConn.AssertCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}
