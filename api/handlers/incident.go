package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/amberops/ambulance-dispatch-api/api"
	"github.com/amberops/ambulance-dispatch-api/api/events"
	"github.com/amberops/ambulance-dispatch-api/config"
	"github.com/amberops/ambulance-dispatch-api/databases"
	"github.com/amberops/ambulance-dispatch-api/models"
)

// Incident exported for testing purposes
type Incident struct {
	DB  databases.IncidentDatabase
	UDB databases.UserDatabase
	ADB databases.AmbulanceDatabase
	Hub *events.Hub
}

type reportIncidentRequest struct {
	Address      string    `json:"address" validate:"required"`
	Coordinates  []float64 `json:"coordinates" validate:"required"`
	IncidentType string    `json:"incidentType" validate:"required"`
	Priority     int       `json:"priority" validate:"required,gte=1,lte=5"`
	AmbulanceID  string    `json:"ambulanceID" validate:"omitempty"`
}

// ReportIncidentHandler files a new incident for the authenticated user.
// The incident always starts out pending; the reporter's phone is captured
// at report time. A requested ambulance is attached only when it exists,
// otherwise the report goes through without one.
func (i Incident) ReportIncidentHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no authenticated user on request"))
		return
	}

	var req reportIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("missing or invalid fields", http.StatusBadRequest, w, err)
		return
	}

	location, err := models.NormalizeCoordinates(req.Coordinates)
	if err != nil {
		config.ErrorStatus("invalid coordinates", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	var ambulanceID *primitive.ObjectID
	if req.AmbulanceID != "" {
		aID, err := primitive.ObjectIDFromHex(req.AmbulanceID)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		if _, err := i.ADB.FindOne(ctx, bson.M{"_id": aID}); err == nil {
			ambulanceID = &aID
		}
	}

	now := time.Now()
	reporterID := principal.ID
	incident := models.Incident{
		ID: primitive.NewObjectID(),
		Details: models.IncidentDetails{
			ReporterID:    &reporterID,
			ReporterPhone: principal.Details.Phone,
			Address:       req.Address,
			Location:      location,
			IncidentType:  req.IncidentType,
			Priority:      req.Priority,
			Status:        models.IncidentPending,
			AmbulanceID:   ambulanceID,
			ReportedAt:    primitive.NewDateTimeFromTime(now),
			CreatedAt:     primitive.NewDateTimeFromTime(now),
			UpdatedAt:     primitive.NewDateTimeFromTime(now),
		},
	}

	if _, err := i.DB.InsertOne(ctx, incident); err != nil {
		config.ErrorStatus("failed to create incident", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("incident reported",
		"incidentID", incident.ID.Hex(),
		"reporterID", reporterID.Hex(),
		"incidentType", req.IncidentType,
	)

	i.Hub.Publish(events.Event{
		Type:       events.EventIncidentCreated,
		IncidentID: incident.ID.Hex(),
		Status:     models.IncidentPending,
		At:         now,
	})

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "incident reported successfully",
		"incident": incident,
	})
}

// MyIncidentsHandler returns the authenticated user's own reports, newest
// first
func (i Incident) MyIncidentsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := api.PrincipalFromContext(r.Context())
	if !ok {
		config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, errors.New("no authenticated user on request"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	incidents, err := i.DB.Find(ctx,
		bson.M{"incident.reporterID": principal.ID},
		options.Find().SetSort(bson.M{"_id": -1}),
	)
	if err != nil {
		config.ErrorStatus("failed to get incidents", http.StatusInternalServerError, w, err)
		return
	}
	if incidents == nil {
		incidents = []models.Incident{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "incidents retrieved",
		"incidents": incidents,
	})
}

// IncidentsFindAllHandler returns every incident with reporter and ambulance
// joined in, newest first
func (i Incident) IncidentsFindAllHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	incidents, err := i.DB.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": -1}))
	if err != nil {
		config.ErrorStatus("failed to get incidents", http.StatusInternalServerError, w, err)
		return
	}

	detailed := make([]models.IncidentDetailed, 0, len(incidents))
	for _, incident := range incidents {
		detailed = append(detailed, i.join(ctx, incident))
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "incidents retrieved",
		"incidents": detailed,
	})
}

// IncidentByIDHandler returns an incident by ID with joined reporter and
// ambulance
func (i Incident) IncidentByIDHandler(w http.ResponseWriter, r *http.Request) {
	incidentID := mux.Vars(r)["incident_id"]

	iID, err := primitive.ObjectIDFromHex(incidentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	incident, err := i.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":  "incident retrieved",
		"incident": i.join(ctx, *incident),
	})
}

// ApproveIncidentHandler dispatches a pending incident. Only pending
// incidents can be approved; anything else conflicts.
func (i Incident) ApproveIncidentHandler(w http.ResponseWriter, r *http.Request) {
	i.transition(w, r, models.IncidentDispatched, "incident approved successfully")
}

// RevokeIncidentHandler denies a pending incident. Only pending incidents
// can be revoked; anything else conflicts.
func (i Incident) RevokeIncidentHandler(w http.ResponseWriter, r *http.Request) {
	i.transition(w, r, models.IncidentRequestDenied, "incident revoked successfully")
}

func (i Incident) transition(w http.ResponseWriter, r *http.Request, next, message string) {
	incidentID := mux.Vars(r)["incident_id"]

	iID, err := primitive.ObjectIDFromHex(incidentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	incident, err := i.DB.FindOne(ctx, bson.M{"_id": iID})
	if err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}
	if incident.Details.Status != models.IncidentPending {
		config.ErrorStatus("incident is not pending", http.StatusConflict, w, errors.New("incident status is "+incident.Details.Status))
		return
	}

	now := time.Now()
	err = i.DB.UpdateOne(ctx, bson.M{"_id": iID}, bson.M{"$set": bson.M{
		"incident.status":    next,
		"incident.updatedAt": primitive.NewDateTimeFromTime(now),
	}})
	if err != nil {
		config.ErrorStatus("failed to update incident status", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("incident status changed",
		"incidentID", iID.Hex(),
		"status", next,
	)

	i.Hub.Publish(events.Event{
		Type:       events.EventStatusChanged,
		IncidentID: iID.Hex(),
		Status:     next,
		At:         now,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": message,
	})
}

type updateIncidentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateIncidentStatusHandler sets an incident's status directly. Unlike
// approve and revoke this applies no transition guard; dispatchers use it to
// mark incidents resolved or to correct a bad state.
func (i Incident) UpdateIncidentStatusHandler(w http.ResponseWriter, r *http.Request) {
	incidentID := mux.Vars(r)["incident_id"]

	iID, err := primitive.ObjectIDFromHex(incidentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateIncidentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("missing or invalid fields", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := i.DB.FindOne(ctx, bson.M{"_id": iID}); err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}

	now := time.Now()
	err = i.DB.UpdateOne(ctx, bson.M{"_id": iID}, bson.M{"$set": bson.M{
		"incident.status":    req.Status,
		"incident.updatedAt": primitive.NewDateTimeFromTime(now),
	}})
	if err != nil {
		config.ErrorStatus("failed to update incident status", http.StatusInternalServerError, w, err)
		return
	}

	i.Hub.Publish(events.Event{
		Type:       events.EventStatusChanged,
		IncidentID: iID.Hex(),
		Status:     req.Status,
		At:         now,
	})

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "incident status updated successfully",
	})
}

// DeleteIncidentHandler removes an incident regardless of status
func (i Incident) DeleteIncidentHandler(w http.ResponseWriter, r *http.Request) {
	incidentID := mux.Vars(r)["incident_id"]

	iID, err := primitive.ObjectIDFromHex(incidentID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := i.DB.FindOne(ctx, bson.M{"_id": iID}); err != nil {
		config.ErrorStatus("failed to get incident by ID", http.StatusNotFound, w, err)
		return
	}

	if err := i.DB.DeleteOne(ctx, bson.M{"_id": iID}); err != nil {
		config.ErrorStatus("failed to delete incident", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "incident deleted successfully",
	})
}

func (i Incident) join(ctx context.Context, incident models.Incident) models.IncidentDetailed {
	detailed := models.IncidentDetailed{Incident: incident}
	if incident.Details.ReporterID != nil {
		if user, err := i.UDB.FindOne(ctx, bson.M{"_id": *incident.Details.ReporterID}); err == nil {
			public := user.Public()
			detailed.Reporter = &public
		}
	}
	if incident.Details.AmbulanceID != nil {
		if ambulance, err := i.ADB.FindOne(ctx, bson.M{"_id": *incident.Details.AmbulanceID}); err == nil {
			detailed.Ambulance = ambulance
		}
	}
	return detailed
}
