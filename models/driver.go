package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Driver holds the structure for the driver collection in mongo
type Driver struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details DriverDetails      `json:"driver" bson:"driver"`
	Version int32              `json:"__v" bson:"__v"`
}

// DriverDetails holds the structure for the inner driver structure as
// defined in the driver collection in mongo
type DriverDetails struct {
	UserID        primitive.ObjectID  `json:"userID" bson:"userID"`
	LicenseNumber string              `json:"licenseNumber" bson:"licenseNumber"`
	AmbulanceID   *primitive.ObjectID `json:"ambulanceID,omitempty" bson:"ambulanceID,omitempty"`
	CreatedAt     interface{}         `json:"createdAt" bson:"createdAt"`
	UpdatedAt     interface{}         `json:"updatedAt" bson:"updatedAt"`
}

// DriverDetailed is a driver read response with the owning user's public
// fields and the assigned ambulance joined in
type DriverDetailed struct {
	Driver    Driver      `json:"driver"`
	User      *UserPublic `json:"user,omitempty"`
	Ambulance *Ambulance  `json:"ambulance,omitempty"`
}
