package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/amberops/ambulance-dispatch-api/api"
	"github.com/amberops/ambulance-dispatch-api/config"
	"github.com/amberops/ambulance-dispatch-api/databases"
	"github.com/amberops/ambulance-dispatch-api/models"
)

// Ambulance exported for testing purposes
type Ambulance struct {
	DB databases.AmbulanceDatabase
}

type createAmbulanceRequest struct {
	Plate       string    `json:"plate" validate:"required"`
	Status      string    `json:"status" validate:"required"`
	Hospital    string    `json:"hospital" validate:"required"`
	Coordinates []float64 `json:"coordinates" validate:"required"`
}

// CreateAmbulanceHandler registers a new ambulance in the fleet. Plates are
// unique across the fleet and coordinates pass through the lat/lng
// normalization before storage.
func (a Ambulance) CreateAmbulanceHandler(w http.ResponseWriter, r *http.Request) {
	var req createAmbulanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("missing or invalid fields", http.StatusBadRequest, w, err)
		return
	}
	if !models.IsValidAmbulanceStatus(req.Status) {
		config.ErrorStatus("invalid ambulance status", http.StatusBadRequest, w, errors.New("status must be one of: available, on-duty, maintenance"))
		return
	}

	location, err := models.NormalizeCoordinates(req.Coordinates)
	if err != nil {
		config.ErrorStatus("invalid coordinates", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	count, err := a.DB.CountDocuments(ctx, bson.M{"ambulance.plate": req.Plate})
	if err != nil {
		config.ErrorStatus("failed to check plate uniqueness", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("plate already registered", http.StatusConflict, w, errors.New("an ambulance with this plate already exists"))
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	ambulance := models.Ambulance{
		ID: primitive.NewObjectID(),
		Details: models.AmbulanceDetails{
			Plate:     req.Plate,
			Status:    req.Status,
			Hospital:  req.Hospital,
			Location:  location,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if _, err := a.DB.InsertOne(ctx, ambulance); err != nil {
		config.ErrorStatus("failed to create ambulance", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("ambulance registered",
		"ambulanceID", ambulance.ID.Hex(),
		"plate", req.Plate,
	)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "ambulance created successfully",
		"ambulance": ambulance,
	})
}

// AmbulancesFindAllHandler returns the whole fleet
func (a Ambulance) AmbulancesFindAllHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ambulances, err := a.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get ambulances", http.StatusInternalServerError, w, err)
		return
	}
	if ambulances == nil {
		ambulances = []models.Ambulance{}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "ambulances retrieved",
		"ambulances": ambulances,
	})
}

// AmbulanceByIDHandler returns an ambulance by ID
func (a Ambulance) AmbulanceByIDHandler(w http.ResponseWriter, r *http.Request) {
	ambulanceID := mux.Vars(r)["ambulance_id"]

	aID, err := primitive.ObjectIDFromHex(ambulanceID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	ambulance, err := a.DB.FindOne(ctx, bson.M{"_id": aID})
	if err != nil {
		config.ErrorStatus("failed to get ambulance by ID", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":   "ambulance retrieved",
		"ambulance": ambulance,
	})
}

type updateAmbulanceRequest struct {
	Plate       *string   `json:"plate"`
	Status      *string   `json:"status"`
	Hospital    *string   `json:"hospital"`
	Coordinates []float64 `json:"coordinates"`
}

// UpdateAmbulanceHandler partially updates an ambulance. Updated coordinates
// go through the same normalization as on create, and a changed plate is
// re-checked for uniqueness against the rest of the fleet.
func (a Ambulance) UpdateAmbulanceHandler(w http.ResponseWriter, r *http.Request) {
	ambulanceID := mux.Vars(r)["ambulance_id"]

	aID, err := primitive.ObjectIDFromHex(ambulanceID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateAmbulanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := a.DB.FindOne(ctx, bson.M{"_id": aID}); err != nil {
		config.ErrorStatus("failed to get ambulance by ID", http.StatusNotFound, w, err)
		return
	}

	set := bson.M{"ambulance.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Plate != nil {
		count, err := a.DB.CountDocuments(ctx, bson.M{"ambulance.plate": *req.Plate, "_id": bson.M{"$ne": aID}})
		if err != nil {
			config.ErrorStatus("failed to check plate uniqueness", http.StatusInternalServerError, w, err)
			return
		}
		if count > 0 {
			config.ErrorStatus("plate already registered", http.StatusConflict, w, errors.New("an ambulance with this plate already exists"))
			return
		}
		set["ambulance.plate"] = *req.Plate
	}
	if req.Status != nil {
		if !models.IsValidAmbulanceStatus(*req.Status) {
			config.ErrorStatus("invalid ambulance status", http.StatusBadRequest, w, errors.New("status must be one of: available, on-duty, maintenance"))
			return
		}
		set["ambulance.status"] = *req.Status
	}
	if req.Hospital != nil {
		set["ambulance.hospital"] = *req.Hospital
	}
	if req.Coordinates != nil {
		location, err := models.NormalizeCoordinates(req.Coordinates)
		if err != nil {
			config.ErrorStatus("invalid coordinates", http.StatusBadRequest, w, err)
			return
		}
		set["ambulance.location"] = location
	}

	if err := a.DB.UpdateOne(ctx, bson.M{"_id": aID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update ambulance", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "ambulance updated successfully",
	})
}

// DeleteAmbulanceHandler removes an ambulance from the fleet. References
// from drivers, medics and incidents are left in place and become dangling;
// reads simply stop joining the ambulance in.
func (a Ambulance) DeleteAmbulanceHandler(w http.ResponseWriter, r *http.Request) {
	ambulanceID := mux.Vars(r)["ambulance_id"]

	aID, err := primitive.ObjectIDFromHex(ambulanceID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := a.DB.FindOne(ctx, bson.M{"_id": aID}); err != nil {
		config.ErrorStatus("failed to get ambulance by ID", http.StatusNotFound, w, err)
		return
	}

	if err := a.DB.DeleteOne(ctx, bson.M{"_id": aID}); err != nil {
		config.ErrorStatus("failed to delete ambulance", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "ambulance deleted successfully",
	})
}
