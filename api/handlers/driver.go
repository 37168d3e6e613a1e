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

// Driver exported for testing purposes
type Driver struct {
	DB  databases.DriverDatabase
	UDB databases.UserDatabase
	ADB databases.AmbulanceDatabase
}

type createDriverRequest struct {
	UserID        string `json:"userID" validate:"required"`
	LicenseNumber string `json:"licenseNumber" validate:"required"`
	AmbulanceID   string `json:"ambulanceID" validate:"omitempty"`
}

// CreateDriverHandler promotes an existing user to driver. The user update
// and the driver insert are two separate writes; the reconciliation sweep
// repairs a crash between them.
func (d Driver) CreateDriverHandler(w http.ResponseWriter, r *http.Request) {
	var req createDriverRequest
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

	user, err := d.UDB.FindOne(ctx, bson.M{"_id": uID})
	if err != nil {
		config.ErrorStatus("failed to get user by ID", http.StatusNotFound, w, err)
		return
	}

	// a user holds at most one driver record
	count, err := d.DB.CountDocuments(ctx, bson.M{"driver.userID": uID})
	if err != nil {
		config.ErrorStatus("failed to count drivers", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("user is already a driver", http.StatusConflict, w, errors.New("driver record exists for user"))
		return
	}

	count, err = d.DB.CountDocuments(ctx, bson.M{"driver.licenseNumber": req.LicenseNumber})
	if err != nil {
		config.ErrorStatus("failed to count drivers", http.StatusInternalServerError, w, err)
		return
	}
	if count > 0 {
		config.ErrorStatus("license number already in use", http.StatusConflict, w, errors.New("duplicate license number"))
		return
	}

	var ambulanceID *primitive.ObjectID
	if req.AmbulanceID != "" {
		aID, err := primitive.ObjectIDFromHex(req.AmbulanceID)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		if _, err := d.ADB.FindOne(ctx, bson.M{"_id": aID}); err != nil {
			config.ErrorStatus("failed to get ambulance by ID", http.StatusNotFound, w, err)
			return
		}
		ambulanceID = &aID
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	driver := models.Driver{
		ID: primitive.NewObjectID(),
		Details: models.DriverDetails{
			UserID:        uID,
			LicenseNumber: req.LicenseNumber,
			AmbulanceID:   ambulanceID,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}

	err = d.UDB.UpdateOne(ctx, bson.M{"_id": uID}, bson.M{"$set": bson.M{"user.role": models.RoleDriver, "user.updatedAt": now}})
	if err != nil {
		config.ErrorStatus("failed to update user role", http.StatusInternalServerError, w, err)
		return
	}
	if _, err := d.DB.InsertOne(ctx, driver); err != nil {
		config.ErrorStatus("failed to create driver", http.StatusInternalServerError, w, err)
		return
	}

	zap.S().Infow("user promoted to driver",
		"userID", user.ID.Hex(),
		"driverID", driver.ID.Hex(),
	)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "driver created successfully",
		"driver":  driver,
	})
}

// DriversFindAllHandler returns all drivers with owning user and assigned
// ambulance joined in
func (d Driver) DriversFindAllHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	drivers, err := d.DB.Find(ctx, bson.M{})
	if err != nil {
		config.ErrorStatus("failed to get drivers", http.StatusInternalServerError, w, err)
		return
	}

	detailed := make([]models.DriverDetailed, 0, len(drivers))
	for _, driver := range drivers {
		detailed = append(detailed, d.join(ctx, driver))
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "drivers retrieved",
		"drivers": detailed,
	})
}

// DriverByIDHandler returns a driver by ID with joined user and ambulance
func (d Driver) DriverByIDHandler(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]

	dID, err := primitive.ObjectIDFromHex(driverID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	driver, err := d.DB.FindOne(ctx, bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to get driver by ID", http.StatusNotFound, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "driver retrieved",
		"driver":  d.join(ctx, *driver),
	})
}

type updateDriverRequest struct {
	LicenseNumber *string `json:"licenseNumber"`
	AmbulanceID   *string `json:"ambulanceID"`
}

// UpdateDriverHandler partially updates a driver's license or assigned
// ambulance
func (d Driver) UpdateDriverHandler(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]

	dID, err := primitive.ObjectIDFromHex(driverID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	var req updateDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if _, err := d.DB.FindOne(ctx, bson.M{"_id": dID}); err != nil {
		config.ErrorStatus("failed to get driver by ID", http.StatusNotFound, w, err)
		return
	}

	set := bson.M{"driver.updatedAt": primitive.NewDateTimeFromTime(time.Now())}
	if req.LicenseNumber != nil {
		count, err := d.DB.CountDocuments(ctx, bson.M{"driver.licenseNumber": *req.LicenseNumber, "_id": bson.M{"$ne": dID}})
		if err != nil {
			config.ErrorStatus("failed to count drivers", http.StatusInternalServerError, w, err)
			return
		}
		if count > 0 {
			config.ErrorStatus("license number already in use", http.StatusConflict, w, errors.New("duplicate license number"))
			return
		}
		set["driver.licenseNumber"] = *req.LicenseNumber
	}
	if req.AmbulanceID != nil {
		aID, err := primitive.ObjectIDFromHex(*req.AmbulanceID)
		if err != nil {
			config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
			return
		}
		if _, err := d.ADB.FindOne(ctx, bson.M{"_id": aID}); err != nil {
			config.ErrorStatus("failed to get ambulance by ID", http.StatusNotFound, w, err)
			return
		}
		set["driver.ambulanceID"] = aID
	}

	if err := d.DB.UpdateOne(ctx, bson.M{"_id": dID}, bson.M{"$set": set}); err != nil {
		config.ErrorStatus("failed to update driver", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "driver updated successfully",
	})
}

// DeleteDriverHandler revokes a driver: the owning user's role reverts to
// "user" and the driver record is removed. Two separate writes, same crash
// caveat as promotion.
func (d Driver) DeleteDriverHandler(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]

	dID, err := primitive.ObjectIDFromHex(driverID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	driver, err := d.DB.FindOne(ctx, bson.M{"_id": dID})
	if err != nil {
		config.ErrorStatus("failed to get driver by ID", http.StatusNotFound, w, err)
		return
	}

	now := primitive.NewDateTimeFromTime(time.Now())
	err = d.UDB.UpdateOne(ctx, bson.M{"_id": driver.Details.UserID}, bson.M{"$set": bson.M{"user.role": models.RoleUser, "user.updatedAt": now}})
	if err != nil {
		config.ErrorStatus("failed to revert user role", http.StatusInternalServerError, w, err)
		return
	}
	if err := d.DB.DeleteOne(ctx, bson.M{"_id": dID}); err != nil {
		config.ErrorStatus("failed to delete driver", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "driver deleted successfully",
	})
}

// join decorates a driver with the owning user's public fields and the
// assigned ambulance; lookup failures leave the field empty rather than
// failing the read
func (d Driver) join(ctx context.Context, driver models.Driver) models.DriverDetailed {
	detailed := models.DriverDetailed{Driver: driver}
	if user, err := d.UDB.FindOne(ctx, bson.M{"_id": driver.Details.UserID}); err == nil {
		public := user.Public()
		detailed.User = &public
	}
	if driver.Details.AmbulanceID != nil {
		if ambulance, err := d.ADB.FindOne(ctx, bson.M{"_id": *driver.Details.AmbulanceID}); err == nil {
			detailed.Ambulance = ambulance
		}
	}
	return detailed
}
