package trigger

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chris/plana/internal/db"
	"github.com/chris/plana/internal/schedule"
)

// State keys recording the last date each schedule period was generated.
const (
	stateLastDaily   = "last_daily_schedule"
	stateLastWeekly  = "last_weekly_schedule"
	stateLastMonthly = "last_monthly_schedule"
)

// Options configures the trigger. Empty cron expressions disable that
// period. Deliver, when set, receives the rendered schedule after a
// successful cron-driven generation.
type Options struct {
	ChatID       string
	UserID       string
	DailyCron    string
	WeeklyCron   string
	MonthlyCron  string
	KeepGoalDays int
	Deliver      func(content string) error
}

// Trigger decides when a new schedule is due and drives the generator.
// All generate-and-apply paths hold one mutex so two concurrent
// triggers cannot both create goals for the same day.
type Trigger struct {
	cron *cron.Cron
	db   *db.DB
	gen  *schedule.Generator
	opts Options
	mu   sync.Mutex
	now  func() time.Time
}

func New(database *db.DB, gen *schedule.Generator, opts Options) *Trigger {
	if opts.KeepGoalDays <= 0 {
		opts.KeepGoalDays = 7
	}
	return &Trigger{
		cron: cron.New(),
		db:   database,
		gen:  gen,
		opts: opts,
		now:  time.Now,
	}
}

// SetClock overrides the trigger's notion of now. Intended for tests.
func (t *Trigger) SetClock(now func() time.Time) {
	t.now = now
}

func (t *Trigger) Start() error {
	jobs := []struct {
		expr string
		run  func()
	}{
		{t.opts.DailyCron, t.runDaily},
		{t.opts.WeeklyCron, t.runWeekly},
		{t.opts.MonthlyCron, t.runMonthly},
	}
	registered := 0
	for _, job := range jobs {
		if job.expr == "" {
			continue
		}
		if _, err := t.cron.AddFunc(job.expr, job.run); err != nil {
			return fmt.Errorf("trigger: invalid cron %q: %w", job.expr, err)
		}
		registered++
	}
	t.cron.Start()
	log.Printf("trigger: started with %d cron job(s)", registered)
	return nil
}

func (t *Trigger) Stop() {
	t.cron.Stop()
}

// EnsureDaily generates and applies today's schedule unless one already
// exists. Returns the schedule and true when a new one was created, or
// (nil, false) when today is already covered.
func (t *Trigger) EnsureDaily(ctx context.Context) (*schedule.Schedule, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.now().Format("2006-01-02")
	if last, err := t.db.GetState(stateLastDaily); err == nil && last == today {
		return nil, false, nil
	}
	if n, err := t.db.CountScheduleGoals(t.opts.ChatID, today); err != nil {
		return nil, false, fmt.Errorf("trigger: checking today's schedule: %w", err)
	} else if n > 0 {
		// Goals exist but the marker is stale, likely after a restart.
		t.recordGenerated(stateLastDaily, today)
		return nil, false, nil
	}
	sched, err := t.generateAndApply(ctx, today)
	if err != nil {
		return nil, false, err
	}
	return sched, true, nil
}

// RegenerateDaily discards today's schedule goals and generates a fresh
// one. Used by the replan command.
func (t *Trigger) RegenerateDaily(ctx context.Context) (*schedule.Schedule, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.now().Format("2006-01-02")
	// A cutoff of tomorrow sweeps today's schedule goals as well.
	tomorrow := t.now().AddDate(0, 0, 1).Format("2006-01-02")
	if n, err := t.db.DeleteOutdatedScheduleGoals(t.opts.ChatID, tomorrow); err != nil {
		return nil, fmt.Errorf("trigger: clearing today's schedule: %w", err)
	} else if n > 0 {
		log.Printf("trigger: cleared %d goal(s) before replanning", n)
	}
	return t.generateAndApply(ctx, today)
}

// generateAndApply runs the pipeline and persists the result. Callers
// hold the mutex.
func (t *Trigger) generateAndApply(ctx context.Context, today string) (*schedule.Schedule, error) {
	sched, err := t.gen.GenerateDaily(ctx, t.opts.ChatID)
	if err != nil {
		return nil, err
	}
	// Replace any leftover schedule goals from previous days before the
	// new ones land.
	if n, err := t.db.DeleteOutdatedScheduleGoals(t.opts.ChatID, today); err != nil {
		log.Printf("trigger: cleaning outdated schedule goals: %v", err)
	} else if n > 0 {
		log.Printf("trigger: removed %d outdated schedule goal(s)", n)
	}
	if _, err := t.gen.Apply(sched, t.opts.UserID, t.opts.ChatID); err != nil {
		return nil, err
	}
	t.recordGenerated(stateLastDaily, today)
	t.sweepOldGoals()
	return sched, nil
}

func (t *Trigger) runDaily() {
	sched, generated, err := t.EnsureDaily(context.Background())
	if err != nil {
		log.Printf("trigger: daily generation failed: %v", err)
		return
	}
	if !generated {
		log.Println("trigger: today's schedule already exists, skipping")
		return
	}
	t.deliver(sched)
}

func (t *Trigger) runWeekly() {
	t.runPeriod(stateLastWeekly, "weekly", t.gen.GenerateWeekly)
}

func (t *Trigger) runMonthly() {
	t.runPeriod(stateLastMonthly, "monthly", t.gen.GenerateMonthly)
}

// runPeriod handles the longer-horizon schedules. They never replace
// daily goals; their items become plain goals with a period deadline.
func (t *Trigger) runPeriod(stateKey, label string, generate func(context.Context, string) (*schedule.Schedule, error)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	marker := t.periodMarker(label)
	if last, err := t.db.GetState(stateKey); err == nil && last == marker {
		log.Printf("trigger: %s schedule for %s already exists, skipping", label, marker)
		return
	}
	sched, err := generate(context.Background(), t.opts.ChatID)
	if err != nil {
		log.Printf("trigger: %s generation failed: %v", label, err)
		return
	}
	if _, err := t.gen.Apply(sched, t.opts.UserID, t.opts.ChatID); err != nil {
		log.Printf("trigger: applying %s schedule: %v", label, err)
		return
	}
	t.recordGenerated(stateKey, marker)
	t.deliver(sched)
}

// periodMarker identifies the current week or month for idempotence.
func (t *Trigger) periodMarker(label string) string {
	now := t.now()
	switch label {
	case "weekly":
		year, week := now.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case "monthly":
		return now.Format("2006-01")
	default:
		return now.Format("2006-01-02")
	}
}

func (t *Trigger) recordGenerated(key, marker string) {
	if err := t.db.SetState(key, marker); err != nil {
		log.Printf("trigger: recording %s: %v", key, err)
	}
}

// sweepOldGoals drops finished goals past the retention window.
func (t *Trigger) sweepOldGoals() {
	cutoff := t.now().AddDate(0, 0, -t.opts.KeepGoalDays).Format("2006-01-02 15:04:05")
	for _, status := range []string{db.StatusCompleted, db.StatusCancelled, db.StatusFailed} {
		n, err := t.db.DeleteGoalsByStatus(status, cutoff)
		if err != nil {
			log.Printf("trigger: sweeping %s goals: %v", status, err)
			continue
		}
		if n > 0 {
			log.Printf("trigger: swept %d old %s goal(s)", n, status)
		}
	}
}

func (t *Trigger) deliver(sched *schedule.Schedule) {
	if t.opts.Deliver == nil || sched == nil {
		return
	}
	if err := t.opts.Deliver(sched.Summary()); err != nil {
		log.Printf("trigger: delivering schedule: %v", err)
	}
}
