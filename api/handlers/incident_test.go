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

	"github.com/amberops/ambulance-dispatch-api/api"
	"github.com/amberops/ambulance-dispatch-api/api/handlers"
	"github.com/amberops/ambulance-dispatch-api/databases"
	mocksdb "github.com/amberops/ambulance-dispatch-api/databases/mocks"
	"github.com/amberops/ambulance-dispatch-api/models"
)

func incidentHandlers(db *mocksdb.DatabaseHelper) handlers.Incident {
	return handlers.Incident{
		DB:  databases.NewIncidentDatabase(db),
		UDB: databases.NewUserDatabase(db),
		ADB: databases.NewAmbulanceDatabase(db),
	}
}

func TestIncident_ReportIncidentHandlerUnauthenticated(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"address":      "12 Harbor St",
		"coordinates":  []float64{45, 40},
		"incidentType": "cardiac",
	})
	req, err := http.NewRequest("POST", "/api/v1/incidents", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	db := &mocksdb.DatabaseHelper{}
	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.ReportIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestIncident_ReportIncidentHandlerSuccess(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"address":      "12 Harbor St",
		"coordinates":  []float64{45, 40},
		"incidentType": "cardiac",
		"priority":     2,
	})
	req, err := http.NewRequest("POST", "/api/v1/incidents", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	principal := &models.User{
		ID:      primitive.NewObjectID(),
		Details: models.UserDetails{Phone: "555-0100", Role: models.RoleUser},
	}
	req = req.WithContext(api.WithPrincipal(req.Context(), principal))

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}

	conn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	db.On("Collection", "incidents").Return(conn)

	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.ReportIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Message  string          `json:"message"`
		Incident models.Incident `json:"incident"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "incident reported successfully", resp.Message)
	assert.Equal(t, models.IncidentPending, resp.Incident.Details.Status)
	// the reporter's phone is captured at report time
	assert.Equal(t, "555-0100", resp.Incident.Details.ReporterPhone)
	assert.Equal(t, principal.ID, *resp.Incident.Details.ReporterID)
}

func TestIncident_ReportIncidentHandlerSkipsMissingAmbulance(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"address":      "12 Harbor St",
		"coordinates":  []float64{45, 40},
		"incidentType": "cardiac",
		"priority":     4,
		"ambulanceID":  "5fc51f58c72ff10004dca382",
	})
	req, err := http.NewRequest("POST", "/api/v1/incidents", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}

	principal := &models.User{ID: primitive.NewObjectID()}
	req = req.WithContext(api.WithPrincipal(req.Context(), principal))

	db := &mocksdb.DatabaseHelper{}
	incidentConn := &mocksdb.CollectionHelper{}
	ambulanceConn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	// the requested ambulance does not exist; the report still goes through
	singleResult.On("Decode", mock.Anything).Return(assert.AnError)
	ambulanceConn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	incidentConn.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)
	db.On("Collection", "ambulances").Return(ambulanceConn)
	db.On("Collection", "incidents").Return(incidentConn)

	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.ReportIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp struct {
		Incident models.Incident `json:"incident"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Nil(t, resp.Incident.Details.AmbulanceID)
}

func TestIncident_ApproveIncidentHandlerNotPending(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/incidents/5fc51f58c72ff10004dca382/approve", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"incident_id": "5fc51f58c72ff10004dca382"})

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Incident)
		(*arg).Details.Status = models.IncidentResolved
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "incidents").Return(conn)

	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.ApproveIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)

	var resp models.ErrorMessageResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "incident is not pending", resp.Message)
	conn.AssertNotCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestIncident_ApproveIncidentHandlerSuccess(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/incidents/5fc51f58c72ff10004dca382/approve", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"incident_id": "5fc51f58c72ff10004dca382"})

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Incident)
		(*arg).Details.Status = models.IncidentPending
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	db.On("Collection", "incidents").Return(conn)

	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.ApproveIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "incident approved successfully", resp["message"])
}

func TestIncident_RevokeIncidentHandlerNotPending(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/incidents/5fc51f58c72ff10004dca382/revoke", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"incident_id": "5fc51f58c72ff10004dca382"})

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Incident)
		(*arg).Details.Status = models.IncidentDispatched
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	db.On("Collection", "incidents").Return(conn)

	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.RevokeIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestIncident_MyIncidentsHandlerSuccess(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/incidents/mine", nil)
	if err != nil {
		t.Fatal(err)
	}

	principal := &models.User{ID: primitive.NewObjectID()}
	req = req.WithContext(api.WithPrincipal(req.Context(), principal))

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	cursor := &mocksdb.CursorHelper{}

	cursor.On("All", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(1).(*[]models.Incident)
		*arg = []models.Incident{{ID: primitive.NewObjectID()}}
	})
	cursor.On("Close", mock.Anything).Return(nil)
	// the newest-first sort option is passed as a third argument
	conn.On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursor, nil)
	db.On("Collection", "incidents").Return(conn)

	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.MyIncidentsHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Incidents []models.Incident `json:"incidents"`
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Len(t, resp.Incidents, 1)
}

func TestIncident_UpdateIncidentStatusHandlerNoGuard(t *testing.T) {
	// direct status writes apply no pending-only transition guard
	body, _ := json.Marshal(map[string]interface{}{"status": models.IncidentResolved})
	req, err := http.NewRequest("PATCH", "/api/v1/incidents/5fc51f58c72ff10004dca382/status", bytes.NewBuffer(body))
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"incident_id": "5fc51f58c72ff10004dca382"})

	db := &mocksdb.DatabaseHelper{}
	conn := &mocksdb.CollectionHelper{}
	singleResult := &mocksdb.SingleResultHelper{}

	singleResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Incident)
		(*arg).Details.Status = models.IncidentRequestDenied
	})
	conn.On("FindOne", mock.Anything, mock.Anything).Return(singleResult)
	conn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	db.On("Collection", "incidents").Return(conn)

	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.UpdateIncidentStatusHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	conn.AssertCalled(t, "UpdateOne", mock.Anything, mock.Anything, mock.Anything)
}

func TestIncident_DeleteIncidentHandlerBadID(t *testing.T) {
	req, err := http.NewRequest("DELETE", "/api/v1/incidents/1234", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = mux.SetURLVars(req, map[string]string{"incident_id": "1234"})

	db := &mocksdb.DatabaseHelper{}
	inc := incidentHandlers(db)

	rr := httptest.NewRecorder()
	http.HandlerFunc(inc.DeleteIncidentHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp models.ErrorMessageResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	assert.Equal(t, "failed to get objectID from Hex", resp.Message)
}
