package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/chris/plana/internal/timewin"
)

// Schedule periods.
const (
	TypeDaily   = "daily"
	TypeWeekly  = "weekly"
	TypeMonthly = "monthly"
)

// GoalTypes is the fixed activity-type enumeration. Anything else the
// model proposes is coerced to "custom".
var GoalTypes = map[string]bool{
	"daily_routine":      true,
	"meal":               true,
	"study":              true,
	"entertainment":      true,
	"social_maintenance": true,
	"exercise":           true,
	"learn_topic":        true,
	"health_check":       true,
	"custom":             true,
	"rest":               true,
	"free_time":          true,
}

var priorities = map[string]bool{"high": true, "medium": true, "low": true}

// Item is a candidate activity proposed by the model. It exists only
// during generation; surviving items become persisted goals on apply.
type Item struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	GoalType      string         `json:"goal_type"`
	Priority      string         `json:"priority"`
	TimeSlot      string         `json:"time_slot,omitempty"` // "HH:MM", "" = unscheduled
	DurationHours float64        `json:"duration_hours,omitempty"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	Conditions    map[string]any `json:"conditions,omitempty"`
}

// StartMinutes parses the item's time slot. Unscheduled or malformed
// slots return ok=false.
func (it *Item) StartMinutes() (int, bool) {
	if it.TimeSlot == "" {
		return 0, false
	}
	m, err := timewin.ToMinutes(it.TimeSlot)
	if err != nil {
		return 0, false
	}
	return m, true
}

// EndMinutes derives the end of the activity from its start plus
// duration, clamped to the end of the day.
func (it *Item) EndMinutes() (int, bool) {
	start, ok := it.StartMinutes()
	if !ok {
		return 0, false
	}
	dur := it.DurationHours
	if dur <= 0 {
		dur = 1.0
	}
	end := start + int(dur*60)
	if end > 24*60 {
		end = 24 * 60
	}
	return end, true
}

// Schedule is an ephemeral container for one generated period. It is
// never persisted as a whole; Apply materializes its items as goals.
type Schedule struct {
	Type      string
	Name      string
	Items     []Item
	CreatedAt time.Time
	Metadata  map[string]any
}

// Summary renders a human-readable listing of the schedule.
func (s *Schedule) Summary() string {
	if s == nil || len(s.Items) == 0 {
		return "The schedule is empty."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d activities)\n", s.Name, len(s.Items))
	for _, it := range s.Items {
		slot := "--:--"
		if start, ok := it.StartMinutes(); ok {
			end, _ := it.EndMinutes()
			if end == 24*60 {
				end = 0
			}
			slot = timewin.ToClock(start) + "-" + timewin.ToClock(end)
		}
		fmt.Fprintf(&b, "  %s  %s [%s/%s]\n", slot, it.Name, it.GoalType, it.Priority)
	}
	return strings.TrimRight(b.String(), "\n")
}
