package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// DateKey formats a time as the YYYY-MM-DD key used by the date-scoped REST
// endpoints. The API derives dates by truncating UTC ISO timestamps, so the
// key is taken in UTC regardless of the local zone.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Validate checks the event carries a user and plausible coordinates.
func (e *LocationEvent) Validate() error {
	return validate.Struct(e)
}

// Point converts the event into an immutable route point. Events without an
// explicit type are tracking points.
func (e *LocationEvent) Point() LocationPoint {
	typ := e.Type
	if typ == "" {
		typ = LocationTracking
	}
	return LocationPoint{
		Latitude:  e.Latitude,
		Longitude: e.Longitude,
		Timestamp: e.Timestamp,
		Type:      typ,
	}
}
