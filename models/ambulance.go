package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Ambulance statuses
const (
	AmbulanceAvailable   = "available"
	AmbulanceOnDuty      = "on-duty"
	AmbulanceMaintenance = "maintenance"
)

// ValidAmbulanceStatuses lists every status an ambulance can hold
var ValidAmbulanceStatuses = []string{AmbulanceAvailable, AmbulanceOnDuty, AmbulanceMaintenance}

// IsValidAmbulanceStatus reports whether status is a known ambulance status
func IsValidAmbulanceStatus(status string) bool {
	for _, s := range ValidAmbulanceStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Ambulance holds the structure for the ambulance collection in mongo
type Ambulance struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details AmbulanceDetails   `json:"ambulance" bson:"ambulance"`
	Version int32              `json:"__v" bson:"__v"`
}

// AmbulanceDetails holds the structure for the inner ambulance structure as
// defined in the ambulance collection in mongo
type AmbulanceDetails struct {
	Plate     string      `json:"plate" bson:"plate"`
	Status    string      `json:"status" bson:"status"`
	Hospital  string      `json:"hospital" bson:"hospital"`
	Location  Location    `json:"location" bson:"location"`
	CreatedAt interface{} `json:"createdAt" bson:"createdAt"`
	UpdatedAt interface{} `json:"updatedAt" bson:"updatedAt"`
}
