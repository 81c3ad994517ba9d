package geo

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	mumbai = Point{Lat: 19.0760, Lng: 72.8777}
	delhi  = Point{Lat: 28.6139, Lng: 77.2090}
	london = Point{Lat: 51.5074, Lng: -0.1278}
)

func TestDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceBetween(mumbai, mumbai))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, DistanceBetween(mumbai, london), DistanceBetween(london, mumbai), 1e-9)
	})

	t.Run("known city pair", func(t *testing.T) {
		// Mumbai to Delhi is roughly 1150 km great-circle.
		assert.InDelta(t, 1150, DistanceBetween(mumbai, delhi), 20)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		assert.InDelta(t, 111.19, Distance(0, 0, 1, 0), 0.05)
	})

	t.Run("antipodes", func(t *testing.T) {
		half := math.Pi * EarthRadiusKm
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 20000; i++ {
			lat := rng.Float64()*180 - 90
			lng := rng.Float64()*360 - 180
			d := Distance(lat, lng, -lat, lng+180)
			require.False(t, math.IsNaN(d), "lat=%v lng=%v", lat, lng)
			require.InDelta(t, half, d, 1)
		}
		assert.InDelta(t, 20015, Distance(19.076, 72.8777, -19.076, -107.1223), 1)
	})
}

func TestSpeed(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("normal travel", func(t *testing.T) {
		a := Fix{Point: Point{Lat: 0, Lng: 0}, At: start}
		b := Fix{Point: Point{Lat: 1, Lng: 0}, At: start.Add(2 * time.Hour)}

		speed, err := Speed(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 55.6, speed, 0.1)
	})

	t.Run("zero elapsed is undefined", func(t *testing.T) {
		a := Fix{Point: mumbai, At: start}
		b := Fix{Point: delhi, At: start}

		speed, err := Speed(a, b)
		assert.True(t, errors.Is(err, ErrUndefinedVelocity))
		assert.False(t, math.IsNaN(speed))
	})

	t.Run("negative elapsed is undefined", func(t *testing.T) {
		a := Fix{Point: mumbai, At: start}
		b := Fix{Point: delhi, At: start.Add(-time.Minute)}

		_, err := Speed(a, b)
		assert.ErrorIs(t, err, ErrUndefinedVelocity)
	})

	t.Run("fifty km in a minute", func(t *testing.T) {
		a := Fix{Point: Point{Lat: 19.0760, Lng: 72.8777}, At: start}
		b := Fix{Point: Point{Lat: 19.0760 + 50/111.19, Lng: 72.8777}, At: start.Add(time.Minute)}

		speed, err := Speed(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 3000, speed, 5)
	})
}

func TestPointValid(t *testing.T) {
	assert.True(t, mumbai.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -181}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
}

func TestZoneContains(t *testing.T) {
	t.Run("circle", func(t *testing.T) {
		z := Zone{Name: "mumbai-port", Center: mumbai, RadiusKm: 10}
		assert.True(t, z.Contains(Point{Lat: 19.08, Lng: 72.88}))
		assert.False(t, z.Contains(delhi))
	})

	t.Run("polygon", func(t *testing.T) {
		z := Zone{
			Name: "box",
			Polygon: []Point{
				{Lat: 0, Lng: 0},
				{Lat: 0, Lng: 10},
				{Lat: 10, Lng: 10},
				{Lat: 10, Lng: 0},
			},
		}
		assert.True(t, z.Contains(Point{Lat: 5, Lng: 5}))
		assert.False(t, z.Contains(Point{Lat: 15, Lng: 5}))
		assert.False(t, z.Contains(Point{Lat: 5, Lng: -1}))
	})

	t.Run("zero radius never matches", func(t *testing.T) {
		assert.False(t, Zone{Center: mumbai}.Contains(mumbai))
	})
}
