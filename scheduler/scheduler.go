package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"stock_data_backend/models"
	"stock_data_backend/services/pipeline"

	"github.com/go-co-op/gocron"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// syncRunRetention is how long pass history is kept before the weekly
// maintenance job prunes it.
const syncRunRetention = 90 * 24 * time.Hour

// Scheduler drives the market-data sync pipeline on a cron cadence in
// a fixed exchange timezone, plus periodic maintenance jobs. The sync
// loop is strictly sequential: the next fire is computed only after
// the previous run finishes, so runs never overlap; a long run delays
// the next fire rather than queueing it.
type Scheduler struct {
	db          *gorm.DB
	pipeline    *pipeline.Pipeline
	schedule    cron.Schedule
	loc         *time.Location
	maintenance *gocron.Scheduler
	now         func() time.Time
}

// New creates a scheduler from a standard 5-field cron expression
// evaluated in the given timezone.
func New(db *gorm.DB, pl *pipeline.Pipeline, cronExpr string, loc *time.Location) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse sync cron %q: %w", cronExpr, err)
	}
	return &Scheduler{
		db:       db,
		pipeline: pl,
		schedule: schedule,
		loc:      loc,
		now:      time.Now,
	}, nil
}

// NextFire returns the first fire instant strictly after now,
// evaluated in the scheduler's timezone.
func (s *Scheduler) NextFire(now time.Time) time.Time {
	return s.schedule.Next(now.In(s.loc))
}

// Run executes the sync loop until ctx is cancelled. A failed run is
// logged and never stops the loop; the next fire is always computed
// afterwards. A zero or negative delay (clock skew, a run that
// outlasted its slot) fires immediately.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Sync scheduler started (timezone %s)", s.loc)
	for {
		now := s.now().In(s.loc)
		next := s.NextFire(now)
		delay := next.Sub(now)
		if delay < 0 {
			delay = 0
		}
		log.Printf("Next sync fire at %s (in %s)", next.Format(time.RFC3339), delay.Round(time.Second))

		select {
		case <-ctx.Done():
			log.Println("Sync scheduler stopped")
			return
		case <-time.After(delay):
		}

		s.runOnce(ctx)
	}
}

// runOnce executes the three refresh passes in fixed order. Each pass
// is fully serial and blocking; a failure aborts only that pass's own
// transaction and the remaining passes still run.
func (s *Scheduler) runOnce(ctx context.Context) {
	passes := []struct {
		name string
		run  func(context.Context) (*pipeline.RunSummary, error)
	}{
		{pipeline.PassProfile, s.pipeline.RunProfilePass},
		{pipeline.PassMinute, s.pipeline.RunMinutePass},
		{pipeline.PassDaily, s.pipeline.RunDailyPass},
	}

	for _, pass := range passes {
		summary, err := pass.run(ctx)
		if err != nil {
			log.Printf("[ERROR] %s pass failed: %v", pass.name, err)
			continue
		}
		succeeded, skipped, failed := summary.Counts()
		log.Printf("%s pass done in %s: succeeded=%d skipped=%d failed=%d",
			pass.name, summary.Duration.Round(time.Millisecond), succeeded, skipped, failed)
	}
}

// StartMaintenance starts the periodic maintenance jobs: sync-run
// history is pruned weekly outside trading hours.
func (s *Scheduler) StartMaintenance() {
	s.maintenance = gocron.NewScheduler(s.loc)

	s.maintenance.Every(1).Week().Sunday().At("01:00").Do(func() {
		s.pruneSyncRuns()
	})

	s.maintenance.StartAsync()
	log.Println("Maintenance scheduler started")
}

// Stop stops the maintenance scheduler. The sync loop itself is
// stopped through its context.
func (s *Scheduler) Stop() {
	if s.maintenance != nil {
		s.maintenance.Stop()
	}
	log.Println("Scheduler stopped")
}

// pruneSyncRuns deletes pass history older than the retention window.
func (s *Scheduler) pruneSyncRuns() {
	cutoff := s.now().Add(-syncRunRetention)
	result := s.db.Where("started_at < ?", cutoff).Delete(&models.SyncRun{})
	if result.Error != nil {
		log.Printf("[ERROR] prune sync runs: %v", result.Error)
		return
	}
	log.Printf("Pruned %d sync run records older than %s", result.RowsAffected, cutoff.Format("2006-01-02"))
}
