package report

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/takipteyim/patrolbox/internal/models"
)

type Status string

const (
	StatusCompliant       Status = "compliant"
	StatusDisrupted       Status = "disrupted"
	StatusPeriodUndefined Status = "period_undefined"
)

// Disruption is one gap between consecutive control points that exceeded the
// checkpoint's period. Count is the number of expected-but-missed revisits
// inside the gap, floor(gap/period), not 1 per gap.
type Disruption struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Count int64     `json:"count"`
}

type CheckpointReport struct {
	CheckpointID         uint64       `json:"checkpoint_id"`
	CheckpointName       string       `json:"checkpoint_name"`
	PeriodName           string       `json:"period_name,omitempty"`
	Status               Status       `json:"status"`
	Disruptions          []Disruption `json:"disruptions,omitempty"`
	TotalDisruptionCount int64        `json:"total_disruption_count"`
}

type Repository interface {
	// ListActiveCheckpoints returns the non-deleted checkpoints of a project
	// with their periods populated.
	ListActiveCheckpoints(ctx context.Context, projectID uint64) ([]*models.Checkpoint, error)
	// ListVisitTimes returns visit timestamps for a checkpoint inside the
	// closed window, ascending, ties broken by insertion order.
	ListVisitTimes(ctx context.Context, checkpointID uint64, start, end time.Time) ([]time.Time, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Disruptions walks the control sequence windowStart, visits..., windowEnd
// and collects every gap longer than the period. Gaps are computed in whole
// seconds to keep the arithmetic platform-independent.
func Disruptions(periodSeconds int64, visitTimes []time.Time, windowStart, windowEnd time.Time) ([]Disruption, int64) {
	control := make([]time.Time, 0, len(visitTimes)+2)
	control = append(control, windowStart)
	control = append(control, visitTimes...)
	control = append(control, windowEnd)

	var out []Disruption
	var total int64
	for i := 0; i < len(control)-1; i++ {
		gap := control[i+1].Unix() - control[i].Unix()
		if gap > periodSeconds {
			count := gap / periodSeconds
			total += count
			out = append(out, Disruption{Start: control[i], End: control[i+1], Count: count})
		}
	}
	return out, total
}

// Analyze builds the compliance report for one checkpoint over the closed
// window [start, end]. A missing period, or one with a non-positive duration,
// short-circuits to a period_undefined report; that is a valid terminal
// state, not an error.
func (s *Service) Analyze(ctx context.Context, cp *models.Checkpoint, start, end time.Time) (CheckpointReport, error) {
	rep := CheckpointReport{
		CheckpointID:   cp.ID,
		CheckpointName: cp.Name,
	}

	if cp.Period == nil || cp.Period.DurationSeconds <= 0 {
		rep.Status = StatusPeriodUndefined
		return rep, nil
	}
	rep.PeriodName = cp.Period.Name

	visitTimes, err := s.repo.ListVisitTimes(ctx, cp.ID, start, end)
	if err != nil {
		return CheckpointReport{}, errors.Wrapf(err, "list visits for checkpoint %d", cp.ID)
	}

	rep.Disruptions, rep.TotalDisruptionCount = Disruptions(cp.Period.DurationSeconds, visitTimes, start, end)
	if len(rep.Disruptions) > 0 {
		rep.Status = StatusDisrupted
	} else {
		rep.Status = StatusCompliant
	}
	return rep, nil
}

// ProjectReport analyzes every active checkpoint of the project
// independently. One checkpoint with an undefined period degrades that entry
// only; the rest of the report is still produced.
func (s *Service) ProjectReport(ctx context.Context, projectID uint64, start, end time.Time) ([]CheckpointReport, error) {
	checkpoints, err := s.repo.ListActiveCheckpoints(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "list checkpoints")
	}

	out := make([]CheckpointReport, 0, len(checkpoints))
	for _, cp := range checkpoints {
		rep, err := s.Analyze(ctx, cp, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, nil
}
