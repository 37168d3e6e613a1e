package models

import (
	"errors"
	"math"
)

// ErrCoordinatesOutOfRange is returned when a coordinate pair is invalid in
// both the supplied and the swapped order.
var ErrCoordinatesOutOfRange = errors.New("coordinates out of range")

// Location is a GeoJSON point. Coordinates are stored in [longitude, latitude]
// order for geospatial indexing.
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

// NormalizeCoordinates interprets coords as a [latitude, longitude] pair and
// applies the order-swap heuristic: if the first value cannot be a latitude
// or the second cannot be a longitude, the caller is assumed to have sent
// [longitude, latitude] and the pair is swapped. The result must land in
// valid ranges or the pair is rejected.
//
// The heuristic is lossy: a reversed pair where both values fit the latitude
// range passes through unswapped. Kept as-is for compatibility.
func NormalizeCoordinates(coords []float64) (Location, error) {
	if len(coords) != 2 {
		return Location{}, errors.New("coordinates must contain exactly two values")
	}

	lat, lng := coords[0], coords[1]
	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		lat, lng = lng, lat
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Location{}, ErrCoordinatesOutOfRange
	}

	return Location{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}, nil
}
