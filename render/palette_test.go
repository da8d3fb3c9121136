package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fieldops/fieldtrack/models"
)

func TestUserMarkerColor(t *testing.T) {
	assert.Equal(t, colorOffline, UserMarkerColor(models.UserLocation{IsOnline: false, Speed: 10}))
	assert.Equal(t, colorFast, UserMarkerColor(models.UserLocation{IsOnline: true, Speed: 5.1}))
	assert.Equal(t, colorMoving, UserMarkerColor(models.UserLocation{IsOnline: true, Speed: 2}))
	assert.Equal(t, colorIdle, UserMarkerColor(models.UserLocation{IsOnline: true, Speed: 0.5}))
	assert.Equal(t, colorIdle, UserMarkerColor(models.UserLocation{IsOnline: true}))
}

func TestPointMarkerColor(t *testing.T) {
	assert.Equal(t, colorLogin, PointMarkerColor(models.LocationLogin))
	assert.Equal(t, colorLogout, PointMarkerColor(models.LocationLogout))
	assert.Equal(t, colorTracking, PointMarkerColor(models.LocationTracking))
	assert.Equal(t, colorTracking, PointMarkerColor(models.LocationFormStart))
}
