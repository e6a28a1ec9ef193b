package schedule

import (
	"reflect"
	"testing"
)

func overlaps(a, b Item) bool {
	as, aok := a.StartMinutes()
	bs, bok := b.StartMinutes()
	if !aok || !bok {
		return false
	}
	ae, _ := a.EndMinutes()
	be, _ := b.EndMinutes()
	return ae > bs && as < be
}

func TestResolveTruncatesLowerPriority(t *testing.T) {
	// A medium 08:00-10:00 loses 30 minutes to B, high priority with a
	// detailed description, at 09:30-11:00.
	items := []Item{
		{Name: "A", Description: "short", GoalType: "custom", Priority: "medium",
			TimeSlot: "08:00", DurationHours: 2.0},
		{Name: "B", Description: "a description that is exactly sixty characters long here ok", GoalType: "custom", Priority: "high",
			TimeSlot: "09:30", DurationHours: 1.5},
	}

	out := Resolve(items)
	if len(out) != 2 {
		t.Fatalf("expected both items kept, got %d", len(out))
	}
	if out[0].Name != "A" || out[1].Name != "B" {
		t.Fatalf("unexpected order: %q, %q", out[0].Name, out[1].Name)
	}
	if out[0].DurationHours != 1.5 {
		t.Errorf("expected A truncated to 1.5h, got %v", out[0].DurationHours)
	}
	if out[1].DurationHours != 1.5 {
		t.Errorf("expected B unchanged at 1.5h, got %v", out[1].DurationHours)
	}
	end, _ := out[0].EndMinutes()
	if end != 570 { // 09:30
		t.Errorf("expected A to end at 09:30 (570), got %d", end)
	}
}

func TestResolveRejectsFullOverlap(t *testing.T) {
	items := []Item{
		{Name: "A", GoalType: "custom", Priority: "low", TimeSlot: "08:00", DurationHours: 1.0},
		{Name: "B", GoalType: "custom", Priority: "high", TimeSlot: "08:00", DurationHours: 1.0},
	}

	out := Resolve(items)
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if out[0].Name != "B" {
		t.Errorf("expected high-priority B to survive, got %q", out[0].Name)
	}
}

func TestResolveTieGoesToEarlierStart(t *testing.T) {
	// Equal priority scores: the already-accepted (earlier) item wins.
	items := []Item{
		{Name: "first", GoalType: "custom", Priority: "medium", TimeSlot: "08:00", DurationHours: 1.0},
		{Name: "second", GoalType: "custom", Priority: "medium", TimeSlot: "08:30", DurationHours: 1.0},
	}

	out := Resolve(items)
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if out[0].Name != "first" {
		t.Errorf("expected earlier item to win the tie, got %q", out[0].Name)
	}
}

func TestResolveNoOverlapPostcondition(t *testing.T) {
	items := []Item{
		{Name: "a", GoalType: "custom", Priority: "high", TimeSlot: "08:00", DurationHours: 3.0},
		{Name: "b", GoalType: "custom", Priority: "medium", TimeSlot: "09:00", DurationHours: 1.0},
		{Name: "c", GoalType: "custom", Priority: "low", TimeSlot: "10:00", DurationHours: 2.0},
		{Name: "d", GoalType: "custom", Priority: "high", TimeSlot: "11:30", DurationHours: 1.0},
		{Name: "e", GoalType: "custom", Priority: "medium", TimeSlot: "12:00", DurationHours: 0.5},
	}

	out := Resolve(items)
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if overlaps(out[i], out[j]) {
				t.Errorf("items %q and %q still overlap", out[i].Name, out[j].Name)
			}
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	items := []Item{
		{Name: "a", Description: "long enough to earn a description bonus over fifty chars", GoalType: "custom", Priority: "medium", TimeSlot: "08:00", DurationHours: 2.0},
		{Name: "b", GoalType: "custom", Priority: "high", TimeSlot: "09:30", DurationHours: 1.5},
		{Name: "c", GoalType: "custom", Priority: "low", TimeSlot: "10:00", DurationHours: 1.0},
		{Name: "d", GoalType: "custom", Priority: "medium", TimeSlot: "14:00", DurationHours: 1.0},
	}

	once := Resolve(items)
	twice := Resolve(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Resolve is not idempotent:\n once: %+v\ntwice: %+v", once, twice)
	}
}

func TestResolveUnscheduledNeverConflicts(t *testing.T) {
	items := []Item{
		{Name: "floating", GoalType: "custom", Priority: "low"},
		{Name: "timed", GoalType: "custom", Priority: "high", TimeSlot: "08:00", DurationHours: 1.0},
		{Name: "floating too", GoalType: "custom", Priority: "low"},
	}

	out := Resolve(items)
	if len(out) != 3 {
		t.Fatalf("expected all 3 kept, got %d", len(out))
	}
	// Scheduled items come first, unscheduled sort last.
	if out[0].Name != "timed" {
		t.Errorf("expected timed item first, got %q", out[0].Name)
	}
}

func TestResolveTruncationToNothingRejects(t *testing.T) {
	// The overlap is under half the loser's duration, but the loser
	// starts at the same minute as the winner, so truncation would leave
	// a zero-length activity. It must be rejected instead.
	items := []Item{
		{Name: "winner", Description: "a very detailed narrative well over eighty characters so the priority bonus kicks in", GoalType: "custom", Priority: "high",
			TimeSlot: "08:00", DurationHours: 1.0},
		{Name: "loser", GoalType: "custom", Priority: "low", TimeSlot: "08:00", DurationHours: 3.0},
	}

	out := Resolve(items)
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(out))
	}
	if out[0].Name != "winner" {
		t.Errorf("expected %q to survive, got %q", "winner", out[0].Name)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	if out := Resolve(nil); len(out) != 0 {
		t.Errorf("expected empty output, got %d items", len(out))
	}
}

func TestPriorityScore(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want int
	}{
		{"high", Item{Priority: "high"}, 3},
		{"medium", Item{Priority: "medium"}, 2},
		{"low", Item{Priority: "low"}, 1},
		{"medium with 51-char description", Item{Priority: "medium", Description: "exactly fifty-one characters of description padding"}, 3},
		{"low with 81+ char description", Item{Priority: "low", Description: "this description deliberately rambles on for a while so that it crosses the eighty character line"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := priorityScore(&tt.item); got != tt.want {
				t.Errorf("priorityScore = %d, want %d", got, tt.want)
			}
		})
	}
}
