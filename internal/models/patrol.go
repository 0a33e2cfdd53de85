package models

import "time"

type Firm struct {
	ID        uint64
	Name      string
	CreatedAt time.Time
}

type Project struct {
	ID        uint64
	Name      string
	Latitude  float64
	Longitude float64
	FirmID    uint64
	CreatedAt time.Time
}

// Period is the maximum allowed time between successful visits to a
// checkpoint. A missing period or a non-positive duration means the
// checkpoint is reported as "period undefined" instead of being analyzed.
type Period struct {
	ID              uint64
	Name            string
	DurationSeconds int64
}

type Checkpoint struct {
	ID        uint64
	Name      string
	Latitude  float64
	Longitude float64
	ProjectID uint64
	PeriodID  *uint64
	Period    *Period
	// Soft delete: deleted checkpoints keep their visits but are excluded
	// from matching and reporting.
	Deleted bool
}

type Device struct {
	ID        uint64
	Name      string
	Code      string
	FirmID    uint64
	ProjectID *uint64
}

// Visit is append-only: created once by ingestion or seeding, never mutated.
// CheckpointID is nil when no checkpoint satisfied the ping.
type Visit struct {
	ID           uint64
	DeviceID     uint64
	CheckpointID *uint64
	ProjectID    uint64
	Latitude     float64
	Longitude    float64
	Status       string
	Timestamp    time.Time
	Distance     float64
	VisitStatus  bool
	CreatedAt    time.Time
}

type VisitCreateInput struct {
	DeviceID     uint64
	CheckpointID *uint64
	ProjectID    uint64
	Latitude     float64
	Longitude    float64
	Status       string
	Timestamp    time.Time
	Distance     float64
	VisitStatus  bool
}
