package schedule

import (
	"log"
	"strconv"
	"strings"
)

// Sanitize performs structural validation over the raw records from the
// model. Records missing name or goal_type are dropped; every other
// defect is healed in place with a default. This stage never fails:
// whatever survives is structurally valid.
func Sanitize(records []map[string]any) []Item {
	var items []Item
	skipped := 0

	for idx, rec := range records {
		name := strField(rec, "name")
		goalType := strField(rec, "goal_type")
		if name == "" || goalType == "" {
			log.Printf("schedule: skipping item %d: missing name or goal_type", idx+1)
			skipped++
			continue
		}

		it := Item{
			Name:     name,
			GoalType: goalType,
			Priority: strField(rec, "priority"),
			TimeSlot: strField(rec, "time_slot"),
		}

		it.Description = strField(rec, "description")
		if it.Description == "" {
			it.Description = name
		}

		if !GoalTypes[it.GoalType] {
			it.GoalType = "custom"
		}

		if !priorities[it.Priority] {
			it.Priority = "medium"
		}

		// A slot without a colon can never parse; the item becomes
		// unscheduled rather than poisoning conflict resolution.
		if it.TimeSlot != "" && !strings.Contains(it.TimeSlot, ":") {
			log.Printf("schedule: item %d: unusable time_slot %q, treating as unscheduled", idx+1, it.TimeSlot)
			it.TimeSlot = ""
		}

		it.DurationHours = durationField(rec, "duration_hours")

		it.Parameters = mapField(rec, "parameters")
		it.Conditions = mapField(rec, "conditions")

		items = append(items, it)
	}

	if skipped > 0 {
		log.Printf("schedule: dropped %d unsalvageable item(s)", skipped)
	}
	return items
}

func strField(rec map[string]any, key string) string {
	if v, ok := rec[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func durationField(rec map[string]any, key string) float64 {
	v, ok := rec[key]
	if !ok || v == nil {
		return 1.0
	}
	var dur float64
	switch n := v.(type) {
	case float64:
		dur = n
	case int:
		dur = float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 1.0
		}
		dur = f
	default:
		return 1.0
	}
	if dur <= 0 || dur > 12 {
		return 1.0
	}
	return dur
}

func mapField(rec map[string]any, key string) map[string]any {
	if m, ok := rec[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
