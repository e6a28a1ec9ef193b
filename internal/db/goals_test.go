package db

import (
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenConfiguresBusyTimeout(t *testing.T) {
	d := openTestDB(t)

	var ms int
	if err := d.conn.QueryRow("PRAGMA busy_timeout").Scan(&ms); err != nil {
		t.Fatalf("reading busy_timeout: %v", err)
	}
	if ms != 5000 {
		t.Errorf("expected a 5000ms busy timeout, got %d", ms)
	}
}

func TestCreateAndGetGoal(t *testing.T) {
	d := openTestDB(t)

	id, err := d.CreateGoal(GoalInput{
		Name:        "morning run",
		Description: "a short jog around the block",
		GoalType:    "exercise",
		Priority:    "high",
		CreatorID:   "user1",
		ChatID:      "chat1",
		Parameters:  map[string]any{"time_window": []any{420.0, 480.0}},
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}

	g, err := d.GetGoal(id)
	if err != nil {
		t.Fatalf("GetGoal: %v", err)
	}
	if g == nil {
		t.Fatal("expected goal, got nil")
	}
	if g.Name != "morning run" {
		t.Errorf("expected name %q, got %q", "morning run", g.Name)
	}
	if g.Status != StatusActive {
		t.Errorf("expected status %q, got %q", StatusActive, g.Status)
	}
	if g.Priority != "high" {
		t.Errorf("expected priority %q, got %q", "high", g.Priority)
	}
	w, ok := g.TimeWindow()
	if !ok {
		t.Fatal("expected time window")
	}
	if w.Start != 420 || w.End != 480 {
		t.Errorf("expected window [420, 480], got [%d, %d]", w.Start, w.End)
	}
}

func TestGetGoalMissing(t *testing.T) {
	d := openTestDB(t)

	g, err := d.GetGoal("nonexistent")
	if err != nil {
		t.Fatalf("GetGoal(nonexistent): %v", err)
	}
	if g != nil {
		t.Errorf("expected nil for missing goal, got %+v", g)
	}
}

func TestCreateGoalRequiresName(t *testing.T) {
	d := openTestDB(t)

	if _, err := d.CreateGoal(GoalInput{GoalType: "meal"}); err == nil {
		t.Error("expected error creating goal without name")
	}
}

func TestCreateGoalDefaults(t *testing.T) {
	d := openTestDB(t)

	id, err := d.CreateGoal(GoalInput{Name: "something"})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	g, _ := d.GetGoal(id)
	if g.GoalType != "custom" {
		t.Errorf("expected default goal_type %q, got %q", "custom", g.GoalType)
	}
	if g.Priority != "medium" {
		t.Errorf("expected default priority %q, got %q", "medium", g.Priority)
	}
}

func TestTimeWindowLegacyFallback(t *testing.T) {
	d := openTestDB(t)

	// Legacy records carry the window in conditions, as hour pairs.
	id, err := d.CreateGoal(GoalInput{
		Name:       "late chat",
		GoalType:   "social_maintenance",
		ChatID:     "chat1",
		Conditions: map[string]any{"time_window": []any{23.0, 1.0}},
	})
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	g, _ := d.GetGoal(id)
	w, ok := g.TimeWindow()
	if !ok {
		t.Fatal("expected window from conditions fallback")
	}
	if w.Start != 1380 || w.End != 1500 {
		t.Errorf("expected wrapped window [1380, 1500], got [%d, %d]", w.Start, w.End)
	}
	if !w.Contains(30) {
		t.Error("expected 00:30 inside 23:00-01:00 window")
	}
	if w.Contains(720) {
		t.Error("expected noon outside 23:00-01:00 window")
	}
}

func TestTimeWindowPrefersParameters(t *testing.T) {
	d := openTestDB(t)

	id, _ := d.CreateGoal(GoalInput{
		Name:       "dual window",
		Parameters: map[string]any{"time_window": []any{600.0, 660.0}},
		Conditions: map[string]any{"time_window": []any{8.0, 9.0}},
	})
	g, _ := d.GetGoal(id)
	w, ok := g.TimeWindow()
	if !ok {
		t.Fatal("expected window")
	}
	if w.Start != 600 || w.End != 660 {
		t.Errorf("expected parameters to win: [600, 660], got [%d, %d]", w.Start, w.End)
	}
}

func TestCreateGoalsBatch(t *testing.T) {
	d := openTestDB(t)

	ids, err := d.CreateGoalsBatch([]GoalInput{
		{Name: "breakfast", GoalType: "meal", ChatID: "chat1"},
		{Name: "study", GoalType: "study", ChatID: "chat1"},
		{Name: "dinner", GoalType: "meal", ChatID: "chat1"},
	})
	if err != nil {
		t.Fatalf("CreateGoalsBatch: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}

	goals, err := d.ListGoals("chat1", "")
	if err != nil {
		t.Fatalf("ListGoals: %v", err)
	}
	if len(goals) != 3 {
		t.Errorf("expected 3 goals, got %d", len(goals))
	}
}

func TestCreateGoalsBatchAtomic(t *testing.T) {
	d := openTestDB(t)

	_, err := d.CreateGoalsBatch([]GoalInput{
		{Name: "fine", GoalType: "meal"},
		{GoalType: "meal"}, // missing name fails the whole batch
	})
	if err == nil {
		t.Fatal("expected batch error")
	}
	goals, _ := d.ListGoals("", "")
	if len(goals) != 0 {
		t.Errorf("expected no goals after failed batch, got %d", len(goals))
	}
}

func TestListGoalsFilters(t *testing.T) {
	d := openTestDB(t)

	d.CreateGoal(GoalInput{Name: "a", ChatID: "chat1"})
	id2, _ := d.CreateGoal(GoalInput{Name: "b", ChatID: "chat1"})
	d.CreateGoal(GoalInput{Name: "c", ChatID: "chat2"})
	d.SetGoalStatus(id2, StatusPaused)

	tests := []struct {
		name      string
		chatID    string
		status    string
		wantCount int
	}{
		{"no filter", "", "", 3},
		{"by chat", "chat1", "", 2},
		{"by status", "", StatusPaused, 1},
		{"by chat and status", "chat1", StatusActive, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goals, err := d.ListGoals(tt.chatID, tt.status)
			if err != nil {
				t.Fatalf("ListGoals: %v", err)
			}
			if len(goals) != tt.wantCount {
				t.Errorf("expected %d goals, got %d", tt.wantCount, len(goals))
			}
		})
	}
}

func TestUpdateGoalRejectsBogusColumn(t *testing.T) {
	d := openTestDB(t)

	id, _ := d.CreateGoal(GoalInput{Name: "g"})
	err := d.UpdateGoal(id, map[string]any{"name\"; DROP TABLE goals; --": "pwned"})
	if err == nil {
		t.Fatal("expected error for disallowed column, got nil")
	}
}

func TestUpdateGoalEncodesMaps(t *testing.T) {
	d := openTestDB(t)

	id, _ := d.CreateGoal(GoalInput{Name: "g"})
	err := d.UpdateGoal(id, map[string]any{
		"parameters": map[string]any{"time_window": []any{840.0, 930.0}},
	})
	if err != nil {
		t.Fatalf("UpdateGoal: %v", err)
	}
	g, _ := d.GetGoal(id)
	w, ok := g.TimeWindow()
	if !ok || w.Start != 840 || w.End != 930 {
		t.Errorf("expected [840, 930], got %v ok=%v", w, ok)
	}
}

func TestGoalLifecycle(t *testing.T) {
	d := openTestDB(t)

	id, _ := d.CreateGoal(GoalInput{Name: "task"})

	if err := d.SetGoalStatus(id, StatusPaused); err != nil {
		t.Fatalf("SetGoalStatus: %v", err)
	}
	if err := d.SetGoalStatus(id, "bogus"); err == nil {
		t.Error("expected error for unknown status")
	}

	if err := d.SetGoalProgress(id, 150); err != nil {
		t.Fatalf("SetGoalProgress: %v", err)
	}
	g, _ := d.GetGoal(id)
	if g.Progress != 100 {
		t.Errorf("expected progress clamped to 100, got %d", g.Progress)
	}
	if err := d.SetGoalProgress(id, -5); err != nil {
		t.Fatalf("SetGoalProgress: %v", err)
	}
	g, _ = d.GetGoal(id)
	if g.Progress != 0 {
		t.Errorf("expected progress clamped to 0, got %d", g.Progress)
	}

	if err := d.MarkGoalExecuted(id); err != nil {
		t.Fatalf("MarkGoalExecuted: %v", err)
	}
	g, _ = d.GetGoal(id)
	if g.ExecutionCount != 1 {
		t.Errorf("expected execution_count 1, got %d", g.ExecutionCount)
	}
	if g.LastExecutedAt == "" {
		t.Error("expected last_executed_at to be set")
	}
}

func TestDeleteGoal(t *testing.T) {
	d := openTestDB(t)

	id, _ := d.CreateGoal(GoalInput{Name: "gone"})
	if err := d.DeleteGoal(id); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	g, _ := d.GetGoal(id)
	if g != nil {
		t.Error("expected goal to be deleted")
	}
	if err := d.DeleteGoal(id); err == nil {
		t.Error("expected error deleting missing goal")
	}
}

func TestDeleteGoalsByStatus(t *testing.T) {
	d := openTestDB(t)

	id1, _ := d.CreateGoal(GoalInput{Name: "done"})
	id2, _ := d.CreateGoal(GoalInput{Name: "also done"})
	d.CreateGoal(GoalInput{Name: "still active"})
	d.SetGoalStatus(id1, StatusCompleted)
	d.SetGoalStatus(id2, StatusCompleted)

	n, err := d.DeleteGoalsByStatus(StatusCompleted, "")
	if err != nil {
		t.Fatalf("DeleteGoalsByStatus: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 deleted, got %d", n)
	}
	goals, _ := d.ListGoals("", "")
	if len(goals) != 1 {
		t.Errorf("expected 1 goal left, got %d", len(goals))
	}
}

func TestDeleteGoalsByStatusOlderThan(t *testing.T) {
	d := openTestDB(t)

	id, _ := d.CreateGoal(GoalInput{Name: "fresh"})
	d.SetGoalStatus(id, StatusCancelled)

	// Cutoff in the past: the just-created goal survives.
	past := time.Now().UTC().Add(-24 * time.Hour).Format(time.DateTime)
	n, err := d.DeleteGoalsByStatus(StatusCancelled, past)
	if err != nil {
		t.Fatalf("DeleteGoalsByStatus: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 deleted with past cutoff, got %d", n)
	}

	future := time.Now().UTC().Add(24 * time.Hour).Format(time.DateTime)
	n, _ = d.DeleteGoalsByStatus(StatusCancelled, future)
	if n != 1 {
		t.Errorf("expected 1 deleted with future cutoff, got %d", n)
	}
}

func TestScheduleGoalQueries(t *testing.T) {
	d := openTestDB(t)

	today := time.Now().UTC().Format(time.DateOnly)

	d.CreateGoal(GoalInput{
		Name: "lunch", ChatID: "chat1",
		Parameters: map[string]any{"time_window": []any{720.0, 750.0}},
	})
	d.CreateGoal(GoalInput{
		Name: "breakfast", ChatID: "chat1",
		Parameters: map[string]any{"time_window": []any{480.0, 510.0}},
	})
	d.CreateGoal(GoalInput{Name: "no window", ChatID: "chat1"})
	d.CreateGoal(GoalInput{
		Name: "other chat", ChatID: "chat2",
		Parameters: map[string]any{"time_window": []any{480.0, 510.0}},
	})

	n, err := d.CountScheduleGoals("chat1", today)
	if err != nil {
		t.Fatalf("CountScheduleGoals: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 schedule goals, got %d", n)
	}

	goals, err := d.ListScheduleGoals("chat1", today)
	if err != nil {
		t.Fatalf("ListScheduleGoals: %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("expected 2 schedule goals, got %d", len(goals))
	}
	// Ordered by window start, so breakfast comes first.
	if goals[0].Name != "breakfast" {
		t.Errorf("expected breakfast first, got %q", goals[0].Name)
	}

	// Cleanup keyed to a later date removes today's schedule.
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format(time.DateOnly)
	removed, err := d.DeleteOutdatedScheduleGoals("chat1", tomorrow)
	if err != nil {
		t.Fatalf("DeleteOutdatedScheduleGoals: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	// The windowless goal is not a schedule goal and survives.
	goals, _ = d.ListGoals("chat1", "")
	if len(goals) != 1 {
		t.Errorf("expected 1 goal left in chat1, got %d", len(goals))
	}
}

func TestGetSetState(t *testing.T) {
	d := openTestDB(t)

	val, err := d.GetState("missing")
	if err != nil {
		t.Fatalf("GetState(missing): %v", err)
	}
	if val != "" {
		t.Errorf("expected empty for missing key, got %q", val)
	}

	if err := d.SetState("last_daily_schedule", "2026-08-24"); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	val, _ = d.GetState("last_daily_schedule")
	if val != "2026-08-24" {
		t.Errorf("expected %q, got %q", "2026-08-24", val)
	}

	if err := d.SetState("last_daily_schedule", "2026-08-25"); err != nil {
		t.Fatalf("SetState(upsert): %v", err)
	}
	val, _ = d.GetState("last_daily_schedule")
	if val != "2026-08-25" {
		t.Errorf("expected %q after upsert, got %q", "2026-08-25", val)
	}
}
