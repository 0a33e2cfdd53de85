package pgpatrol

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/takipteyim/patrolbox/internal/models"
)

func (s *Storage) CreateVisit(ctx context.Context, in models.VisitCreateInput) (*models.Visit, error) {
	v := models.Visit{
		DeviceID:     in.DeviceID,
		CheckpointID: in.CheckpointID,
		ProjectID:    in.ProjectID,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Status:       in.Status,
		Timestamp:    in.Timestamp,
		Distance:     in.Distance,
		VisitStatus:  in.VisitStatus,
	}
	err := s.db.QueryRow(ctx, `
INSERT INTO visits (
  device_id, checkpoint_id, project_id, latitude, longitude,
  status, timestamp, distance, visit_status
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id, created_at
`, in.DeviceID, in.CheckpointID, in.ProjectID, in.Latitude, in.Longitude,
		in.Status, in.Timestamp.UTC(), in.Distance, in.VisitStatus,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "insert visit")
	}
	return &v, nil
}

// ListVisitTimes returns visit timestamps for a checkpoint inside the closed
// window [start, end], ascending. Ties on the timestamp are broken by id so
// the analysis stays deterministic regardless of arrival order.
func (s *Storage) ListVisitTimes(ctx context.Context, checkpointID uint64, start, end time.Time) ([]time.Time, error) {
	rows, err := s.db.Query(ctx, `
SELECT timestamp
FROM visits
WHERE checkpoint_id = $1
  AND timestamp >= $2
  AND timestamp <= $3
ORDER BY timestamp ASC, id ASC
`, checkpointID, start.UTC(), end.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "select visit times")
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, errors.Wrap(err, "scan visit time")
		}
		out = append(out, ts)
	}

	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) DeleteAllVisits(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM visits`)
	return errors.Wrap(err, "delete visits")
}

// InsertVisits bulk-inserts seed fixtures in one transaction.
func (s *Storage) InsertVisits(ctx context.Context, visits []models.VisitCreateInput) (int, error) {
	if len(visits) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, in := range visits {
		_, err := tx.Exec(ctx, `
INSERT INTO visits (
  device_id, checkpoint_id, project_id, latitude, longitude,
  status, timestamp, distance, visit_status
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, in.DeviceID, in.CheckpointID, in.ProjectID, in.Latitude, in.Longitude,
			in.Status, in.Timestamp.UTC(), in.Distance, in.VisitStatus)
		if err != nil {
			return 0, errors.Wrap(err, "insert visit")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit tx")
	}
	return len(visits), nil
}
