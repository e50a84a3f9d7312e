package schedules

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowdeck/flowdeck/pkg/observability"
)

const dueBatchSize = 100

// TriggerFunc receives each due schedule. Dispatch failures are logged and
// the schedule still advances, so a broken downstream cannot wedge the queue.
type TriggerFunc func(ctx context.Context, sched *Schedule) error

// Dispatcher polls for due schedules on a cron cadence and fires their
// triggers.
type Dispatcher struct {
	store   Store
	trigger TriggerFunc
	logger  *observability.Logger
	cron    *cron.Cron
}

// NewDispatcher creates a dispatcher. trigger may be nil, in which case due
// schedules only advance their next-run time.
func NewDispatcher(store Store, trigger TriggerFunc, logger *observability.Logger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		trigger: trigger,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start begins polling on the given cron spec (typically every minute).
func (d *Dispatcher) Start(spec string) error {
	_, err := d.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		d.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	d.cron.Start()
	return nil
}

// Stop halts polling and waits for an in-flight poll to finish.
func (d *Dispatcher) Stop() {
	<-d.cron.Stop().Done()
}

// RunOnce processes one batch of due schedules.
func (d *Dispatcher) RunOnce(ctx context.Context) {
	now := time.Now()
	due, err := d.store.ListDue(ctx, now, dueBatchSize)
	if err != nil {
		d.logger.WithError(err).Error("failed to list due schedules")
		return
	}

	for _, sched := range due {
		if d.trigger != nil {
			if err := d.trigger(ctx, sched); err != nil {
				d.logger.WithError(err).WithField("schedule_id", sched.ID).Error("schedule trigger failed")
			}
		}

		next, err := NextAfter(sched.CronExpr, now)
		if err != nil {
			// Expressions are validated at write time; a parse failure here
			// means the row was tampered with.
			d.logger.WithError(err).WithField("schedule_id", sched.ID).Error("stored cron expression invalid")
			continue
		}
		if err := d.store.SetNextRun(ctx, sched.ID, next); err != nil {
			d.logger.WithError(err).WithField("schedule_id", sched.ID).Error("failed to advance schedule")
		}
	}
}
