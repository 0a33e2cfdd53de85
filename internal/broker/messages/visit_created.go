package messages

import "time"

// VisitCreated is published after a visit row is persisted, keyed by device
// code. Downstream consumers (dashboards, alerting) react to it; the engine
// itself never reads it back.
type VisitCreated struct {
	VisitID      uint64    `json:"visit_id"`
	DeviceID     uint64    `json:"device_id"`
	DeviceCode   string    `json:"device_code"`
	ProjectID    uint64    `json:"project_id"`
	CheckpointID *uint64   `json:"checkpoint_id,omitempty"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Distance     float64   `json:"distance"`
	VisitStatus  bool      `json:"visit_status"`
	Timestamp    time.Time `json:"timestamp"`
}
