package trigger

import (
	"log"
	"time"

	"github.com/chris/plana/internal/db"
)

// Snapshot answers "what is happening right now and what comes next"
// for one chat's schedule goals.
type Snapshot struct {
	Current *db.Goal
	Next    *db.Goal
}

// Activities resolves the current and next scheduled activity from the
// goal store, memoized through the bucketed snapshot cache.
type Activities struct {
	db    *db.DB
	cache *snapshotCache
	now   func() time.Time
}

func NewActivities(database *db.DB, cacheMaxSize int, cacheTTL time.Duration) *Activities {
	cache := newSnapshotCache(cacheMaxSize, cacheTTL)
	cache.startSweeper()
	return &Activities{
		db:    database,
		cache: cache,
		now:   time.Now,
	}
}

// SetClock overrides the activity clock. Intended for tests.
func (a *Activities) SetClock(now func() time.Time) {
	a.now = now
}

func (a *Activities) Close() {
	a.cache.stop()
}

// Now returns the activity snapshot for the current wall-clock time.
func (a *Activities) Now(chatID string) (Snapshot, error) {
	now := a.now()
	key := bucketKey(chatID, now)
	if snap, ok := a.cache.get(key); ok {
		return snap, nil
	}
	snap, err := a.lookup(chatID, now)
	if err != nil {
		return Snapshot{}, err
	}
	a.cache.put(key, snap)
	return snap, nil
}

func (a *Activities) lookup(chatID string, now time.Time) (Snapshot, error) {
	minute := now.Hour()*60 + now.Minute()

	goals, err := a.db.ListScheduleGoals(chatID, now.Format("2006-01-02"))
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	nextStart := -1
	for i := range goals {
		goal := &goals[i]
		w, ok := goal.TimeWindow()
		if !ok {
			continue
		}
		if snap.Current == nil && w.Contains(minute) {
			snap.Current = goal
		}
		if w.Start > minute && (nextStart == -1 || w.Start < nextStart) {
			snap.Next = goal
			nextStart = w.Start
		}
	}

	// In the early hours the running activity may be yesterday's goal
	// with a window wrapping past midnight.
	if snap.Current == nil {
		yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
		prev, err := a.db.ListScheduleGoals(chatID, yesterday)
		if err != nil {
			log.Printf("activities: loading yesterday's goals: %v", err)
			return snap, nil
		}
		for i := range prev {
			goal := &prev[i]
			if w, ok := goal.TimeWindow(); ok && w.Wraps() && w.Contains(minute) {
				snap.Current = goal
				break
			}
		}
	}
	return snap, nil
}
