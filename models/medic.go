package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Medic holds the structure for the medic collection in mongo
type Medic struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details MedicDetails       `json:"medic" bson:"medic"`
	Version int32              `json:"__v" bson:"__v"`
}

// MedicDetails holds the structure for the inner medic structure as defined
// in the medic collection in mongo. Name and phone are copied from the
// owning user at promotion time and do not track later profile changes.
type MedicDetails struct {
	UserID      primitive.ObjectID  `json:"userID" bson:"userID"`
	Name        string              `json:"name" bson:"name"`
	Phone       string              `json:"phone" bson:"phone"`
	Specialty   string              `json:"specialty" bson:"specialty"`
	AmbulanceID *primitive.ObjectID `json:"ambulanceID,omitempty" bson:"ambulanceID,omitempty"`
	CreatedAt   interface{}         `json:"createdAt" bson:"createdAt"`
	UpdatedAt   interface{}         `json:"updatedAt" bson:"updatedAt"`
}

// MedicDetailed is a medic read response with the owning user's public
// fields and the assigned ambulance joined in
type MedicDetailed struct {
	Medic     Medic       `json:"medic"`
	User      *UserPublic `json:"user,omitempty"`
	Ambulance *Ambulance  `json:"ambulance,omitempty"`
}
