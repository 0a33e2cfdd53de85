package pgpatrol

import (
	"context"
	"testing"
	"time"

	"github.com/takipteyim/patrolbox/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "patrolbox_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/patrolbox_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGPatrol_RepoFlow(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	firm, err := st.CreateFirm(ctx, "TEKMER SELALE")
	require.NoError(t, err)
	require.NotZero(t, firm.ID)

	project, err := st.CreateProject(ctx, "Guvenlik", 40.8590341, 29.3162565, firm.ID)
	require.NoError(t, err)

	period, err := st.CreatePeriod(ctx, "15 dakika", 900)
	require.NoError(t, err)

	cp, err := st.CreateCheckpoint(ctx, "Merkez", 40.85902364102, 29.316840338888, project.ID, period.ID)
	require.NoError(t, err)

	device, err := st.CreateDevice(ctx, "Guvenlik Cihazi", "5551234567", firm.ID, project.ID)
	require.NoError(t, err)

	// Device lookup: exact code match, missing code is (nil, nil).
	got, err := st.FindDeviceByCode(ctx, "5551234567")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, device.ID, got.ID)
	require.NotNil(t, got.ProjectID)
	require.Equal(t, project.ID, *got.ProjectID)

	missing, err := st.FindDeviceByCode(ctx, "0000000000")
	require.NoError(t, err)
	require.Nil(t, missing)

	// Checkpoint listing carries the period.
	cps, err := st.ListActiveCheckpoints(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, cps, 1)
	require.NotNil(t, cps[0].Period)
	require.Equal(t, int64(900), cps[0].Period.DurationSeconds)

	// Visits: one direct insert, then a timestamp-range query.
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	v, err := st.CreateVisit(ctx, models.VisitCreateInput{
		DeviceID:     device.ID,
		CheckpointID: &cp.ID,
		ProjectID:    project.ID,
		Latitude:     40.85902,
		Longitude:    29.31684,
		Timestamp:    base.Add(30 * time.Minute),
		Distance:     4.2,
		VisitStatus:  true,
	})
	require.NoError(t, err)
	require.NotZero(t, v.ID)

	n, err := st.InsertVisits(ctx, []models.VisitCreateInput{
		{DeviceID: device.ID, CheckpointID: &cp.ID, ProjectID: project.ID, Latitude: 40.859, Longitude: 29.3168, Timestamp: base.Add(10 * time.Minute), VisitStatus: true},
		{DeviceID: device.ID, CheckpointID: &cp.ID, ProjectID: project.ID, Latitude: 40.859, Longitude: 29.3168, Timestamp: base.Add(50 * time.Minute), VisitStatus: true},
		// Outside the window below.
		{DeviceID: device.ID, CheckpointID: &cp.ID, ProjectID: project.ID, Latitude: 40.859, Longitude: 29.3168, Timestamp: base.Add(2 * time.Hour), VisitStatus: true},
	})
	require.NoError(t, err)
	require.Equal(t, 3, n)

	times, err := st.ListVisitTimes(ctx, cp.ID, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, times, 3)
	require.True(t, times[0].Before(times[1]))
	require.True(t, times[1].Before(times[2]))
	require.Equal(t, base.Add(10*time.Minute), times[0].UTC())

	// Soft-deleted checkpoints disappear from matching/reporting but their
	// visits stay referentially valid.
	require.NoError(t, st.SoftDeleteCheckpoint(ctx, cp.ID))
	cps, err = st.ListActiveCheckpoints(ctx, project.ID)
	require.NoError(t, err)
	require.Empty(t, cps)

	times, err = st.ListVisitTimes(ctx, cp.ID, base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, times, 3)

	// Administrative wipes.
	require.NoError(t, st.DeleteAllVisits(ctx))
	times, err = st.ListVisitTimes(ctx, cp.ID, base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Empty(t, times)

	require.NoError(t, st.ResetAll(ctx))
	missing, err = st.FindDeviceByCode(ctx, "5551234567")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPGPatrol_VisitTimestampTiesBrokenByID(t *testing.T) {
	ctx := context.Background()
	st := startPostgres(t)

	firm, err := st.CreateFirm(ctx, "F")
	require.NoError(t, err)
	project, err := st.CreateProject(ctx, "P", 0, 0, firm.ID)
	require.NoError(t, err)
	period, err := st.CreatePeriod(ctx, "15 dakika", 900)
	require.NoError(t, err)
	cp, err := st.CreateCheckpoint(ctx, "C", 0, 0, project.ID, period.ID)
	require.NoError(t, err)
	device, err := st.CreateDevice(ctx, "D", "123", firm.ID, project.ID)
	require.NoError(t, err)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := st.CreateVisit(ctx, models.VisitCreateInput{
			DeviceID: device.ID, CheckpointID: &cp.ID, ProjectID: project.ID,
			Timestamp: ts, VisitStatus: true,
		})
		require.NoError(t, err)
	}

	// Same query twice: identical order both times.
	first, err := st.ListVisitTimes(ctx, cp.ID, ts.Add(-time.Minute), ts.Add(time.Minute))
	require.NoError(t, err)
	second, err := st.ListVisitTimes(ctx, cp.ID, ts.Add(-time.Minute), ts.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first, 3)
}
