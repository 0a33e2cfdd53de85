package seeder

import (
	"math/rand/v2"
	"time"

	"github.com/takipteyim/patrolbox/internal/geo"
	"github.com/takipteyim/patrolbox/internal/models"
	"github.com/takipteyim/patrolbox/internal/services/ingest"
)

// Rand is the randomness source for visit generation. Tests swap in a
// fixed-seed source for reproducible sequences.
type Rand interface {
	Float64() float64
}

func NewRand(seed int64) Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

type Scenario string

const (
	// ScenarioCompliant draws every interval strictly under the period, so
	// the generated sequence introduces no disruption.
	ScenarioCompliant Scenario = "compliant"
	// ScenarioViolating draws an over-period interval with the configured
	// probability and falls back to the compliant draw otherwise.
	ScenarioViolating Scenario = "violating"
)

// DefaultViolationProbability is the chance an interval in the violating
// scenario exceeds the period.
const DefaultViolationProbability = 0.3

// GenerateTimes builds a chained sequence of visit timestamps in
// [start, end]. Each interval is added to the previous timestamp; a candidate
// past end is discarded, not clamped.
//
// Compliant draw: (0.05 + 0.90*u) * period, always under the period.
// Violating draw: period * (1 + 0.5*u), always over it.
func GenerateTimes(periodSeconds int64, scenario Scenario, start, end time.Time, violationProb float64, r Rand) []time.Time {
	if periodSeconds <= 0 {
		return nil
	}
	period := float64(periodSeconds)

	var out []time.Time
	last := start
	for {
		var intervalSeconds float64
		if scenario == ScenarioViolating && r.Float64() < violationProb {
			intervalSeconds = period * (1 + 0.5*r.Float64())
		} else {
			intervalSeconds = (0.05 + 0.90*r.Float64()) * period
		}

		next := last.Add(time.Duration(intervalSeconds * float64(time.Second)))
		if next.After(end) {
			break
		}
		out = append(out, next)
		last = next
	}
	return out
}

// jitterDegrees keeps synthesized pings within a few meters of the
// checkpoint, comfortably inside the match threshold.
const jitterDegrees = 0.0001

// GenerateVisits produces visit records for one checkpoint: chained
// timestamps plus a small positional jitter, with distance and visit_status
// computed by the same rules the matcher applies. The fixtures are therefore
// self-consistent with live ingestion.
func GenerateVisits(cp *models.Checkpoint, device *models.Device, scenario Scenario, start, end time.Time, violationProb float64, r Rand) []models.VisitCreateInput {
	if cp.Period == nil || cp.Period.DurationSeconds <= 0 || device.ProjectID == nil {
		return nil
	}

	times := GenerateTimes(cp.Period.DurationSeconds, scenario, start, end, violationProb, r)
	out := make([]models.VisitCreateInput, 0, len(times))
	for _, ts := range times {
		lat := cp.Latitude + (r.Float64()-0.5)*jitterDegrees
		lng := cp.Longitude + (r.Float64()-0.5)*jitterDegrees
		distance := geo.Distance(
			geo.Point{Lat: cp.Latitude, Lng: cp.Longitude},
			geo.Point{Lat: lat, Lng: lng},
		)

		out = append(out, models.VisitCreateInput{
			DeviceID:     device.ID,
			CheckpointID: &cp.ID,
			ProjectID:    *device.ProjectID,
			Latitude:     lat,
			Longitude:    lng,
			Timestamp:    ts,
			Distance:     distance,
			VisitStatus:  distance <= ingest.DefaultThresholdMeters,
		})
	}
	return out
}
