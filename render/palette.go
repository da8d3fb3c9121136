package render

import "fieldops/fieldtrack/models"

const (
	colorOffline = "#808080"
	colorFast    = "#ff4444"
	colorMoving  = "#ffaa00"
	colorIdle    = "#44ff44"

	colorLogin    = "#4CAF50"
	colorLogout   = "#F44336"
	colorTracking = "#2196F3"

	routeColor = "#2196F3"
)

// Speed thresholds in km/h separating idle, moving and fast markers.
const (
	fastSpeedKMH   = 5.0
	movingSpeedKMH = 1.0
)

// UserMarkerColor maps a user's state onto the marker palette.
func UserMarkerColor(u models.UserLocation) string {
	switch {
	case !u.IsOnline:
		return colorOffline
	case u.Speed > fastSpeedKMH:
		return colorFast
	case u.Speed > movingSpeedKMH:
		return colorMoving
	default:
		return colorIdle
	}
}

// PointMarkerColor maps a route point's type onto the marker palette.
func PointMarkerColor(t models.LocationType) string {
	switch t {
	case models.LocationLogin:
		return colorLogin
	case models.LocationLogout:
		return colorLogout
	default:
		return colorTracking
	}
}
