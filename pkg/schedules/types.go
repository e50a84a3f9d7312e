package schedules

import (
	"context"
	"errors"
	"time"
)

// Schedule is a cron trigger bound to a flow in the same tenant.
type Schedule struct {
	ID        string     `json:"id"`
	GroupID   string     `json:"group_id"`
	FlowID    string     `json:"flow_id"`
	CronExpr  string     `json:"cron_expr"`
	Enabled   bool       `json:"enabled"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ErrNotFound is returned when no schedule row matches.
var ErrNotFound = errors.New("schedules: not found")

// ErrInvalidCron is returned when an expression fails to parse.
var ErrInvalidCron = errors.New("schedules: invalid cron expression")

// Store is the schedule persistence adapter.
type Store interface {
	Create(ctx context.Context, s *Schedule) error
	Get(ctx context.Context, id string) (*Schedule, error)
	ListForGroup(ctx context.Context, groupID string, limit, offset int) ([]*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id string) error

	// ListDue returns enabled schedules whose next run is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*Schedule, error)

	// SetNextRun advances a schedule's next run time.
	SetNextRun(ctx context.Context, id string, next time.Time) error
}
