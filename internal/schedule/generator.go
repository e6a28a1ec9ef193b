package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chris/plana/internal/db"
	"github.com/chris/plana/internal/llm"
	"github.com/chris/plana/internal/timewin"
)

// GenerationError is the terminal failure for a generation request:
// every round of every attempt failed or produced nothing usable. No
// goals are created when this is returned.
type GenerationError struct {
	Rounds  int
	LastErr error
}

func (e *GenerationError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("schedule generation failed after %d round(s): %v", e.Rounds, e.LastErr)
	}
	return fmt.Sprintf("schedule generation failed after %d round(s)", e.Rounds)
}

func (e *GenerationError) Unwrap() error {
	return e.LastErr
}

// Generator drives the full pipeline: prompt, model call, parse,
// structural and semantic validation, conflict resolution, scoring, and
// best-of-rounds selection.
type Generator struct {
	db      *db.DB
	client  llm.Client
	cfg     Config
	prompts *PromptBuilder
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewGenerator(database *db.DB, client llm.Client, cfg Config, persona Persona) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("schedule config: %w", err)
	}
	now := time.Now
	return &Generator{
		db:      database,
		client:  client,
		cfg:     cfg,
		prompts: NewPromptBuilder(cfg, persona, now),
		now:     now,
		sleep:   waitCtx,
	}, nil
}

// SetClock overrides the generator's notion of now. Intended for tests.
func (g *Generator) SetClock(now func() time.Time) {
	g.now = now
	g.prompts.now = now
}

func (g *Generator) GenerateDaily(ctx context.Context, chatID string) (*Schedule, error) {
	return g.generate(ctx, TypeDaily, chatID)
}

func (g *Generator) GenerateWeekly(ctx context.Context, chatID string) (*Schedule, error) {
	return g.generate(ctx, TypeWeekly, chatID)
}

func (g *Generator) GenerateMonthly(ctx context.Context, chatID string) (*Schedule, error) {
	return g.generate(ctx, TypeMonthly, chatID)
}

// candidate is one round's scored outcome.
type candidate struct {
	items    []Item
	warnings []string
	score    float64
}

func (g *Generator) generate(ctx context.Context, scheduleType, chatID string) (*Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.GenerationTimeout)
	defer cancel()

	yesterday := g.yesterdayContext(chatID)

	rounds := g.cfg.MaxRounds
	if !g.cfg.UseMultiRound {
		rounds = 1
	}

	var best *candidate
	var lastErr error

	if g.cfg.ParallelRounds && rounds > 1 {
		best, lastErr = g.runParallel(ctx, scheduleType, yesterday, rounds)
	} else {
		best, lastErr = g.runSequential(ctx, scheduleType, yesterday, rounds)
	}
	if best == nil {
		if llm.IsQuota(lastErr) {
			return nil, lastErr
		}
		return nil, &GenerationError{Rounds: rounds, LastErr: lastErr}
	}

	log.Printf("schedule[%s]: selected candidate with score %.2f (%d items, %d warnings)",
		scheduleType, best.score, len(best.items), len(best.warnings))

	return &Schedule{
		Type:      scheduleType,
		Name:      fmt.Sprintf("%s schedule %s", periodLabel(scheduleType), g.now().Format("2006-01-02")),
		Items:     best.items,
		CreatedAt: g.now(),
		Metadata: map[string]any{
			"score":    best.score,
			"warnings": len(best.warnings),
		},
	}, nil
}

// runSequential walks the rounds in order, feeding each round's
// warnings into the next prompt. The first candidate at or above the
// quality threshold stops the loop; otherwise the best one wins.
func (g *Generator) runSequential(ctx context.Context, scheduleType, yesterday string, rounds int) (*candidate, error) {
	var best *candidate
	var lastErr error
	var feedback []string

	for round := 1; round <= rounds; round++ {
		var prompt string
		if round == 1 || len(feedback) == 0 {
			prompt = g.prompts.Build(scheduleType, yesterday)
		} else {
			prompt = g.prompts.BuildRetry(scheduleType, yesterday, feedback)
		}

		cand, err := g.runRound(ctx, scheduleType, round, prompt)
		if err != nil {
			if llm.IsQuota(err) || ctx.Err() != nil {
				if best != nil {
					return best, nil
				}
				return nil, err
			}
			lastErr = err
			continue
		}

		if cand.score >= g.cfg.QualityThreshold {
			log.Printf("schedule[%s]: round %d reached quality %.2f, stopping early", scheduleType, round, cand.score)
			return cand, nil
		}
		if best == nil || cand.score > best.score {
			best = cand
		}
		feedback = cand.warnings
	}
	return best, lastErr
}

// runParallel fans the rounds out with the same base prompt and keeps
// the best result. The feedback loop is traded away for latency; a
// failed round does not stop the others.
func (g *Generator) runParallel(ctx context.Context, scheduleType, yesterday string, rounds int) (*candidate, error) {
	prompt := g.prompts.Build(scheduleType, yesterday)

	results := make([]*candidate, rounds)
	errs := make([]error, rounds)
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			results[round], errs[round] = g.runRound(ctx, scheduleType, round+1, prompt)
		}(i)
	}
	wg.Wait()

	var best *candidate
	var lastErr error
	for i := 0; i < rounds; i++ {
		if errs[i] != nil {
			lastErr = errs[i]
			continue
		}
		if best == nil || results[i].score > best.score {
			best = results[i]
		}
	}
	return best, lastErr
}

// errNoUsableItems marks a response that parsed but yielded nothing
// structurally valid. Recoverable the same way a parse failure is.
var errNoUsableItems = errors.New("no structurally valid items")

// recoverable reports whether a round failure is worth re-asking the
// model about: unparseable responses and responses with no usable
// items. Transport failures already went through the client's own
// retry policy, and quota errors must abort the whole generation.
func recoverable(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) || errors.Is(err, errNoUsableItems)
}

// runRound produces one scored candidate, retrying recoverable
// failures against the same prompt with exponential backoff. This is
// distinct from the quality loop above it: a round is only consumed
// once a response makes it through the pipeline or retries run out.
func (g *Generator) runRound(ctx context.Context, scheduleType string, round int, prompt string) (*candidate, error) {
	var lastErr error
	for attempt := 0; attempt < g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// 2^attempt seconds between attempts.
			wait := time.Duration(1<<attempt) * time.Second
			log.Printf("schedule[%s]: round %d attempt %d unusable (%v), retrying in %s",
				scheduleType, round, attempt, lastErr, wait)
			if err := g.sleep(ctx, wait); err != nil {
				return nil, lastErr
			}
		}
		cand, err := g.attemptRound(ctx, scheduleType, round, prompt)
		if err == nil {
			return cand, nil
		}
		if !recoverable(err) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// attemptRound performs one full pipeline pass.
func (g *Generator) attemptRound(ctx context.Context, scheduleType string, round int, prompt string) (*candidate, error) {
	response, err := g.client.Generate(ctx, prompt, g.cfg.MaxTokens, g.cfg.Temperature)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", round, err)
	}

	records, err := ParseItems(response)
	if err != nil {
		return nil, fmt.Errorf("round %d: %w", round, err)
	}

	items := Sanitize(records)
	if len(items) == 0 {
		return nil, fmt.Errorf("round %d: %w", round, errNoUsableItems)
	}

	warnings := Review(items)
	items = Resolve(items)
	score := Score(items, warnings, g.cfg)

	log.Printf("schedule[%s]: round %d scored %.2f (%d items, %d warnings)",
		scheduleType, round, score, len(items), len(warnings))

	return &candidate{items: items, warnings: warnings, score: score}, nil
}

func waitCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Apply materializes a schedule's items as goal records in one batch.
// Each goal carries its time window in parameters. Apply is not
// idempotent; callers decide whether today already has a schedule.
func (g *Generator) Apply(schedule *Schedule, userID, chatID string) ([]string, error) {
	if schedule == nil || len(schedule.Items) == 0 {
		return nil, fmt.Errorf("applying schedule: nothing to apply")
	}

	deadline := g.periodDeadline(schedule.Type)
	inputs := make([]db.GoalInput, 0, len(schedule.Items))
	for _, it := range schedule.Items {
		params := map[string]any{}
		for k, v := range it.Parameters {
			params[k] = v
		}
		if w, ok := itemWindow(&it); ok {
			params["time_window"] = []int{w.Start, w.End}
		}
		inputs = append(inputs, db.GoalInput{
			Name:        it.Name,
			Description: it.Description,
			GoalType:    it.GoalType,
			Priority:    it.Priority,
			CreatorID:   userID,
			ChatID:      chatID,
			Deadline:    deadline,
			Parameters:  params,
			Conditions:  it.Conditions,
		})
	}

	ids, err := g.db.CreateGoalsBatch(inputs)
	if err != nil {
		return nil, fmt.Errorf("applying schedule: %w", err)
	}
	log.Printf("schedule[%s]: applied %d goal(s) for chat %s", schedule.Type, len(ids), chatID)
	return ids, nil
}

// itemWindow resolves the window for a candidate item: an explicit
// time_window in parameters or conditions wins; otherwise it is derived
// from the time slot and duration, defaulting to 60 minutes.
func itemWindow(it *Item) (timewin.Window, bool) {
	for _, m := range []map[string]any{it.Parameters, it.Conditions} {
		if raw, ok := m["time_window"]; ok {
			if pair, ok := raw.([]any); ok && len(pair) >= 2 {
				start, ok1 := toInt(pair[0])
				end, ok2 := toInt(pair[1])
				if ok1 && ok2 {
					if w, err := timewin.Normalize(start, end); err == nil {
						return w, true
					}
				}
			}
		}
	}
	// Derived windows are already minute-precision, so they are built
	// directly instead of going through the legacy hour-pair detection.
	start, ok := it.StartMinutes()
	if !ok {
		return timewin.Window{}, false
	}
	dur := it.DurationHours
	if dur <= 0 {
		dur = 1.0
	}
	return timewin.Window{Start: start, End: start + int(dur*60)}, true
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// yesterdayContext summarizes the previous day's schedule goals for the
// prompt, capped at ten entries. Missing history is not an error.
func (g *Generator) yesterdayContext(chatID string) string {
	date := g.now().AddDate(0, 0, -1).Format("2006-01-02")
	goals, err := g.db.ListScheduleGoals(chatID, date)
	if err != nil {
		log.Printf("schedule: loading yesterday's goals: %v", err)
		return ""
	}
	if len(goals) == 0 {
		return ""
	}
	if len(goals) > 10 {
		goals = goals[:10]
	}
	parts := make([]string, 0, len(goals))
	for _, goal := range goals {
		if w, ok := goal.TimeWindow(); ok {
			parts = append(parts, fmt.Sprintf("%s %s", timewin.ToClock(w.Start), goal.Name))
		} else {
			parts = append(parts, goal.Name)
		}
	}
	return strings.Join(parts, ", ")
}

func (g *Generator) periodDeadline(scheduleType string) string {
	now := g.now()
	switch scheduleType {
	case TypeWeekly:
		// End of the ISO week (Sunday night).
		days := (7 - int(now.Weekday())) % 7
		return now.AddDate(0, 0, days).Format("2006-01-02") + " 23:59:59"
	case TypeMonthly:
		firstNext := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
		return firstNext.AddDate(0, 0, -1).Format("2006-01-02") + " 23:59:59"
	default:
		return now.Format("2006-01-02") + " 23:59:59"
	}
}
