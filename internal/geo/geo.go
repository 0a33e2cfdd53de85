package geo

import (
	"math"

	"github.com/takipteyim/patrolbox/internal/models"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether the point is inside the WGS84 coordinate range.
// The ingestion boundary rejects invalid points; the matcher does not re-check.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Distance returns the haversine great-circle distance between a and b in
// meters. Identical points yield exactly 0; the intermediate is clamped so
// near-antipodal points never produce NaN.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}

	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	if h > 1 {
		h = 1
	}
	if h < 0 {
		h = 0
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// Nearest scans candidates for the checkpoint closest to ping. Candidates are
// expected to exclude soft-deleted checkpoints. On an exact distance tie the
// earlier-listed candidate wins; an empty list returns (nil, 0). The caller
// applies the match threshold, Nearest just reports the raw minimum.
func Nearest(ping Point, candidates []*models.Checkpoint) (*models.Checkpoint, float64) {
	var nearest *models.Checkpoint
	minDistance := 0.0

	for _, cp := range candidates {
		d := Distance(ping, Point{Lat: cp.Latitude, Lng: cp.Longitude})
		if nearest == nil || d < minDistance {
			nearest = cp
			minDistance = d
		}
	}

	if nearest == nil {
		return nil, 0
	}
	return nearest, minDistance
}
