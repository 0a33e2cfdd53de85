package seeder

import (
	"testing"
	"time"

	"github.com/takipteyim/patrolbox/internal/models"
	"github.com/takipteyim/patrolbox/internal/services/report"
	"github.com/stretchr/testify/require"
)

var (
	seedStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedEnd   = seedStart.Add(24 * time.Hour)
)

func TestGenerateTimes_CompliantAnalyzesClean(t *testing.T) {
	for _, periodSeconds := range []int64{900, 1800, 3600, 7200} {
		times := GenerateTimes(periodSeconds, ScenarioCompliant, seedStart, seedEnd, DefaultViolationProbability, NewRand(1))
		require.NotEmpty(t, times)

		ds, total := report.Disruptions(periodSeconds, times, seedStart, seedEnd)
		require.Empty(t, ds, "period %d produced disruptions", periodSeconds)
		require.Zero(t, total)
	}
}

func TestGenerateTimes_ViolatingProducesDisruptions(t *testing.T) {
	times := GenerateTimes(900, ScenarioViolating, seedStart, seedEnd, DefaultViolationProbability, NewRand(1))
	require.NotEmpty(t, times)

	_, total := report.Disruptions(900, times, seedStart, seedEnd)
	require.Greater(t, total, int64(0))
}

func TestGenerateTimes_ChainedOrderedAndInsideWindow(t *testing.T) {
	times := GenerateTimes(900, ScenarioViolating, seedStart, seedEnd, DefaultViolationProbability, NewRand(42))
	last := seedStart
	for _, ts := range times {
		require.True(t, ts.After(last))
		require.False(t, ts.After(seedEnd), "candidate past the window must be discarded")
		last = ts
	}
}

func TestGenerateTimes_IntervalBounds(t *testing.T) {
	period := int64(900)
	times := GenerateTimes(period, ScenarioCompliant, seedStart, seedEnd, 0, NewRand(7))
	last := seedStart
	for _, ts := range times {
		gap := ts.Sub(last).Seconds()
		require.GreaterOrEqual(t, gap, 0.05*float64(period))
		require.Less(t, gap, float64(period))
		last = ts
	}
}

func TestGenerateTimes_Deterministic(t *testing.T) {
	a := GenerateTimes(900, ScenarioViolating, seedStart, seedEnd, DefaultViolationProbability, NewRand(99))
	b := GenerateTimes(900, ScenarioViolating, seedStart, seedEnd, DefaultViolationProbability, NewRand(99))
	require.Equal(t, a, b)
}

func TestGenerateTimes_UndefinedPeriod(t *testing.T) {
	require.Nil(t, GenerateTimes(0, ScenarioCompliant, seedStart, seedEnd, 0, NewRand(1)))
	require.Nil(t, GenerateTimes(-5, ScenarioCompliant, seedStart, seedEnd, 0, NewRand(1)))
}

func TestGenerateVisits_SelfConsistentWithMatcher(t *testing.T) {
	projectID := uint64(9)
	cp := &models.Checkpoint{
		ID:        7,
		Name:      "Merkez",
		Latitude:  40.85902364102,
		Longitude: 29.316840338888,
		ProjectID: projectID,
		Period:    &models.Period{Name: "2 saat", DurationSeconds: 7200},
	}
	device := &models.Device{ID: 3, Code: DemoDeviceCode, ProjectID: &projectID}

	visits := GenerateVisits(cp, device, ScenarioCompliant, seedStart, seedEnd, 0, NewRand(5))
	require.NotEmpty(t, visits)
	for _, v := range visits {
		require.Equal(t, device.ID, v.DeviceID)
		require.Equal(t, projectID, v.ProjectID)
		require.NotNil(t, v.CheckpointID)
		require.Equal(t, cp.ID, *v.CheckpointID)
		// The jitter is a few meters, far inside the 50 m threshold, and the
		// recorded status must agree with the recorded distance.
		require.LessOrEqual(t, v.Distance, 50.0)
		require.True(t, v.VisitStatus)
	}
}

func TestGenerateVisits_SkipsUndefinedPeriodAndUnassignedDevice(t *testing.T) {
	projectID := uint64(9)
	device := &models.Device{ID: 3, ProjectID: &projectID}

	noPeriod := &models.Checkpoint{ID: 1, Latitude: 1, Longitude: 1, ProjectID: projectID}
	require.Nil(t, GenerateVisits(noPeriod, device, ScenarioCompliant, seedStart, seedEnd, 0, NewRand(1)))

	cp := &models.Checkpoint{ID: 2, Latitude: 1, Longitude: 1, ProjectID: projectID, Period: &models.Period{DurationSeconds: 900}}
	require.Nil(t, GenerateVisits(cp, &models.Device{ID: 3}, ScenarioCompliant, seedStart, seedEnd, 0, NewRand(1)))
}
