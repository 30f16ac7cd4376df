package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/checkin/domain"
	"github.com/campuskit/checkin/pkg/geo"
)

func TestValidateSamePoint(t *testing.T) {
	p := domain.Location{Latitude: 40.0, Longitude: -75.0}

	result, err := geo.Validate(p, p, 1)
	require.NoError(t, err)

	assert.Zero(t, result.DistanceMeters)
	assert.True(t, result.Valid)
}

func TestValidateInsideRadius(t *testing.T) {
	center := domain.Location{Latitude: 40.000, Longitude: -75.000}
	point := domain.Location{Latitude: 40.0003, Longitude: -75.000}

	result, err := geo.Validate(center, point, 100)
	require.NoError(t, err)

	// 0.0003 degrees of latitude is roughly 33m.
	assert.InDelta(t, 33.4, result.DistanceMeters, 1.0)
	assert.True(t, result.Valid)
}

func TestValidateOutsideRadius(t *testing.T) {
	center := domain.Location{Latitude: 40.000, Longitude: -75.000}
	point := domain.Location{Latitude: 40.002, Longitude: -75.000}

	result, err := geo.Validate(center, point, 100)
	require.NoError(t, err)

	assert.InDelta(t, 222.4, result.DistanceMeters, 1.0)
	assert.False(t, result.Valid)
	assert.Equal(t, 100.0, result.AllowedRadiusMeters)
}

func TestDistanceKnownPoints(t *testing.T) {
	// Paris to London, roughly 343.5km.
	paris := domain.Location{Latitude: 48.8566, Longitude: 2.3522}
	london := domain.Location{Latitude: 51.5074, Longitude: -0.1278}

	assert.InDelta(t, 343500, geo.Distance(paris, london), 1000)
}

func TestValidateRejectsMalformedCoordinates(t *testing.T) {
	valid := domain.Location{Latitude: 40, Longitude: -75}

	cases := []struct {
		name  string
		point domain.Location
	}{
		{"latitude too high", domain.Location{Latitude: 91, Longitude: 0}},
		{"latitude too low", domain.Location{Latitude: -90.5, Longitude: 0}},
		{"longitude too high", domain.Location{Latitude: 0, Longitude: 180.1}},
		{"longitude too low", domain.Location{Latitude: 0, Longitude: -181}},
		{"nan latitude", domain.Location{Latitude: math.NaN(), Longitude: 0}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := geo.Validate(valid, tc.point, 100)
			assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)

			_, err = geo.Validate(tc.point, valid, 100)
			assert.ErrorIs(t, err, domain.ErrInvalidCoordinates)
		})
	}
}
