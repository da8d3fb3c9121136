package models

import (
	"time"
)

// LocationType classifies a recorded geospatial event.
type LocationType string

const (
	LocationLogin     LocationType = "login"
	LocationTracking  LocationType = "tracking"
	LocationLogout    LocationType = "logout"
	LocationFormStart LocationType = "form_start"
	LocationFormEnd   LocationType = "form_end"
)

// UserLocation is the live snapshot of one tracked person. At most one entry
// per ID exists in the online-users collection; each incoming event replaces
// the entry in place.
type UserLocation struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Accuracy     float64   `json:"accuracy,omitempty"`
	Speed        float64   `json:"speed,omitempty"`
	Heading      float64   `json:"heading,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	IsOnline     bool      `json:"isOnline"`
	LastActivity time.Time `json:"lastActivity"`
}

// LocationPoint is one recorded geospatial event. Immutable once created;
// ordering within a route is append order.
type LocationPoint struct {
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Timestamp time.Time    `json:"timestamp"`
	Type      LocationType `json:"type"`
	FormID    *int64       `json:"formId,omitempty"`
}

// SessionRoute is the ordered path of one tracking session. Points are
// append-only while the session is active.
type SessionRoute struct {
	ID        string          `json:"id"`
	UserID    int64           `json:"userId"`
	UserName  string          `json:"userName"`
	StartTime time.Time       `json:"startTime"`
	EndTime   *time.Time      `json:"endTime,omitempty"`
	Points    []LocationPoint `json:"points"`
	IsActive  bool            `json:"isActive"`
	// TotalDistanceKM accumulates the haversine distance over consecutive points.
	TotalDistanceKM float64 `json:"totalDistance"`
}

// FormMarker is a point-in-time form submission location used for map annotation.
type FormMarker struct {
	ID          int64        `json:"id"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Consecutivo string       `json:"consecutivo"`
	Empresa     string       `json:"empresa"`
	Timestamp   time.Time    `json:"timestamp"`
	UserName    string       `json:"userName"`
	Type        LocationType `json:"type"`
}

// User is a directory entry returned by the admin user search.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// LocationEvent is the payload of a location.updated push event on the
// tracking and user.{id} channels.
type LocationEvent struct {
	UserID    int64        `json:"userId" validate:"required"`
	UserName  string       `json:"userName"`
	Latitude  float64      `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64      `json:"longitude" validate:"gte=-180,lte=180"`
	Accuracy  float64      `json:"accuracy,omitempty"`
	Speed     float64      `json:"speed,omitempty"`
	Heading   float64      `json:"heading,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	SessionID string       `json:"sessionId,omitempty"`
	Type      LocationType `json:"type,omitempty"`
}
