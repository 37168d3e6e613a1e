package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Incident statuses. "request-denied" is set when a dispatcher revokes a
// pending report.
const (
	IncidentPending       = "pending"
	IncidentDispatched    = "dispatched"
	IncidentResolved      = "resolved"
	IncidentRequestDenied = "request-denied"
)

// Incident holds the structure for the incident collection in mongo
type Incident struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Details IncidentDetails    `json:"incident" bson:"incident"`
	Version int32              `json:"__v" bson:"__v"`
}

// IncidentDetails holds the structure for the inner incident structure as
// defined in the incident collection in mongo. ReporterPhone is captured at
// report time and does not track later changes to the reporting user.
type IncidentDetails struct {
	ReporterID    *primitive.ObjectID `json:"reporterID,omitempty" bson:"reporterID,omitempty"`
	ReporterPhone string              `json:"reporterPhone" bson:"reporterPhone"`
	Address       string              `json:"address" bson:"address"`
	Location      Location            `json:"location" bson:"location"`
	IncidentType  string              `json:"incidentType" bson:"incidentType"`
	Priority      int                 `json:"priority" bson:"priority"`
	Status        string              `json:"status" bson:"status"`
	AmbulanceID   *primitive.ObjectID `json:"ambulanceID,omitempty" bson:"ambulanceID,omitempty"`
	ReportedAt    interface{}         `json:"reportedAt" bson:"reportedAt"`
	CreatedAt     interface{}         `json:"createdAt" bson:"createdAt"`
	UpdatedAt     interface{}         `json:"updatedAt" bson:"updatedAt"`
}

// IncidentDetailed is an incident read response with the reporter's public
// fields and the assigned ambulance joined in
type IncidentDetailed struct {
	Incident  Incident    `json:"incident"`
	Reporter  *UserPublic `json:"reporter,omitempty"`
	Ambulance *Ambulance  `json:"ambulance,omitempty"`
}
