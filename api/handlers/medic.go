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
	"go.uber.org/zap"

	"github.com/amberops/ambulance-dispatch-api/api"
	"github.com/amberops/ambulance-dispatch-api/config"
	"github.com/amberops/ambulance-dispatch-api/databases"
	"github.com/amberops/ambulance-dispatch-api/models"
)

// Medic exported for testing purposes
type Medic struct {
	DB  databases.MedicDatabase
	UDB databases.UserDatabase
	ADB databases.AmbulanceDatabase
}

type createMedicRequest struct {
	UserID      string `json:"userID" validate:"required"`
	Specialty   string `json:"specialty" validate:"required"`
	AmbulanceID string `json:"ambulanceID" validate:"omitempty"`
}

// CreateMedicHandler promotes an existing user to medic. Unlike driver
// promotion, the duplicate check is on the user's role string, not the
// existence of a medic record. Name and phone are copied from the user at
// promotion time and stay frozen afterwards.
func (m Medic) CreateMedicHandler(w http.ResponseWriter, r *http.Request) {
	var req createMedicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("missing or invalid fields", http.StatusBadRequest, w, err)
		return
	}

	uID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	user, err := m.UDB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	if user.Details.Role == models.RoleMedic {
		config.ErrorStatus("user is already a medic", http.StatusConflict, w, errors.New("user role is already medic"))
		return
	}

	var ambulanceID *primitive.ObjectID
	if req.AmbulanceID != "" {
		aID, err := primitive.ObjectIDFromHex(req.AmbulanceID)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		if _, err := m.ADB.FindOne(ctx, bson.M{"_id": aID}); err != nil {
			config.ErrorStatus("failed to get ambulance by ID", http.StatusNotFound, w, err)
			return
		}
		ambulanceID = &aID
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	medic := models.Medic{
		ID: primitive.NewObjectID(),
		Details: models.MedicDetails{
			UserID:      uID,
			Name:        user.Details.Name,
			Phone:       user.Details.Phone,
			Specialty:   req.Specialty,
			AmbulanceID: ambulanceID,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	err = m.UDB.UpdateOne(ctx, bson.M{"_id": uID}, bson.M{"$set": bson.M{"user.role": models.RoleMedic, "user.updatedAt": now}})
	if err != nil {
		config.ErrorStatus("failed to update user role", http.StatusInternalServerError, w, err)
		return
	}
	if _, err := m.DB.InsertOne(ctx, medic); err != nil {
		config.ErrorStatus("failed to create medic", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("user promoted to medic",
		"userID", user.ID.Hex(),
		"medicID", medic.ID.Hex(),
	)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "medic created successfully",
		"medic":   medic,
	})
}

// MedicsFindAllHandler returns all medics with owning user and assigned
// ambulance joined in
func (m Medic) MedicsFindAllHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	medics, err := m.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get medics", http.StatusInternalServerError, w, err)
		return
	}

	detailed := make([]models.MedicDetailed, 0, len(medics))
	for _, medic := range medics {
		detailed = append(detailed, m.join(ctx, medic))
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "medics retrieved",
		"medics":  detailed,
	})
}

// MedicByIDHandler returns a medic by ID with joined user and ambulance
func (m Medic) MedicByIDHandler(w http.ResponseWriter, r *http.Request) {
	medicID := mux.Vars(r)["medic_id"]

	mID, err := primitive.ObjectIDFromHex(medicID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	medic, err := m.DB.FindOne(ctx, bson.M{"_id": mID})
	if err != nil {
		config.ErrorStatus("failed to get medic by ID", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "medic retrieved",
		"medic":   m.join(ctx, *medic),
	})
}

type updateMedicRequest struct {
	Specialty   *string `json:"specialty"`
	AmbulanceID *string `json:"ambulanceID"`
}

// UpdateMedicHandler partially updates a medic's specialty or assigned
// ambulance
func (m Medic) UpdateMedicHandler(w http.ResponseWriter, r *http.Request) {
	medicID := mux.Vars(r)["medic_id"]

	mID, err := primitive.ObjectIDFromHex(medicID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateMedicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := m.DB.FindOne(ctx, bson.M{"_id": mID}); err != nil {
		config.ErrorStatus("failed to get medic by ID", http.StatusNotFound, w, err)
		return
	}

	set := bson.M{"medic.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.Specialty != nil {
		set["medic.specialty"] = *req.Specialty
	}
	if req.AmbulanceID != nil {
		aID, err := primitive.ObjectIDFromHex(*req.AmbulanceID)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		if _, err := m.ADB.FindOne(ctx, bson.M{"_id": aID}); err != nil {
			config.ErrorStatus("failed to get ambulance by ID", http.StatusNotFound, w, err)
			return
		}
		set["medic.ambulanceID"] = aID
	}

	if err := m.DB.UpdateOne(ctx, bson.M{"_id": mID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update medic", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "medic updated successfully",
	})
}

// DeleteMedicHandler revokes a medic: the owning user's role reverts to
// "user" and the medic record is removed
func (m Medic) DeleteMedicHandler(w http.ResponseWriter, r *http.Request) {
	medicID := mux.Vars(r)["medic_id"]

	mID, err := primitive.ObjectIDFromHex(medicID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	medic, err := m.DB.FindOne(ctx, bson.M{"_id": mID})
	if err != nil {
		config.ErrorStatus("failed to get medic by ID", http.StatusNotFound, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	err = m.UDB.UpdateOne(ctx, bson.M{"_id": medic.Details.UserID}, bson.M{"$set": bson.M{"user.role": models.RoleUser, "user.updatedAt": now}})
	if err != nil {
		config.ErrorStatus("failed to revert user role", http.StatusInternalServerError, w, err)
		return
	}
	if err := m.DB.DeleteOne(ctx, bson.M{"_id": mID}); err != nil {
		config.ErrorStatus("failed to delete medic", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "medic deleted successfully",
	})
}

func (m Medic) join(ctx context.Context, medic models.Medic) models.MedicDetailed {
	detailed := models.MedicDetailed{Medic: medic}
	if user, err := m.UDB.FindOne(ctx, bson.M{"_id": medic.Details.UserID}); err == nil {
		public := user.Public()
		detailed.User = &public
	}
	if medic.Details.AmbulanceID != nil {
		if ambulance, err := m.ADB.FindOne(ctx, bson.M{"_id": *medic.Details.AmbulanceID}); err == nil {
			detailed.Ambulance = ambulance
		}
	}
	return detailed
}
