package schedule

import "testing"

func TestSanitizeDropsRecordsMissingBasics(t *testing.T) {
	records := []map[string]any{
		{"name": "keeper", "goal_type": "meal"},
		{"goal_type": "meal"},             // no name
		{"name": "unnamed type"},          // no goal_type
		{"name": "", "goal_type": "meal"}, // empty name
	}

	items := Sanitize(records)
	if len(items) != 1 {
		t.Fatalf("expected 1 surviving item, got %d", len(items))
	}
	if items[0].Name != "keeper" {
		t.Errorf("expected %q, got %q", "keeper", items[0].Name)
	}
}

func TestSanitizeHealsDefects(t *testing.T) {
	records := []map[string]any{{
		"name":           "odd item",
		"goal_type":      "quantum_nap", // not in the enumeration
		"priority":       "urgent",      // not a valid priority
		"time_slot":      "0930",        // no colon
		"duration_hours": 99.0,          // outside (0, 12]
	}}

	items := Sanitize(records)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Description != "odd item" {
		t.Errorf("expected description defaulted to name, got %q", it.Description)
	}
	if it.GoalType != "custom" {
		t.Errorf("expected goal_type coerced to custom, got %q", it.GoalType)
	}
	if it.Priority != "medium" {
		t.Errorf("expected priority coerced to medium, got %q", it.Priority)
	}
	if it.TimeSlot != "" {
		t.Errorf("expected colon-less time_slot nulled, got %q", it.TimeSlot)
	}
	if it.DurationHours != 1.0 {
		t.Errorf("expected duration coerced to 1.0, got %v", it.DurationHours)
	}
	if it.Parameters == nil || it.Conditions == nil {
		t.Error("expected parameters and conditions maps to exist")
	}
}

func TestSanitizeDurationParsing(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"valid float", 2.5, 2.5},
		{"numeric string", "1.5", 1.5},
		{"zero", 0.0, 1.0},
		{"negative", -2.0, 1.0},
		{"too long", 13.0, 1.0},
		{"twelve exactly", 12.0, 12.0},
		{"garbage string", "soon", 1.0},
		{"missing", nil, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := map[string]any{"name": "a", "goal_type": "meal"}
			if tt.in != nil {
				rec["duration_hours"] = tt.in
			}
			items := Sanitize([]map[string]any{rec})
			if len(items) != 1 {
				t.Fatalf("expected 1 item, got %d", len(items))
			}
			if items[0].DurationHours != tt.want {
				t.Errorf("duration = %v, want %v", items[0].DurationHours, tt.want)
			}
		})
	}
}

func TestSanitizeKeepsValidFields(t *testing.T) {
	records := []map[string]any{{
		"name":           "lunch",
		"description":    "a proper meal",
		"goal_type":      "meal",
		"priority":       "high",
		"time_slot":      "12:00",
		"duration_hours": 0.5,
		"parameters":     map[string]any{"place": "cafeteria"},
	}}

	items := Sanitize(records)
	it := items[0]
	if it.Description != "a proper meal" {
		t.Errorf("description changed: %q", it.Description)
	}
	if it.GoalType != "meal" || it.Priority != "high" || it.TimeSlot != "12:00" {
		t.Errorf("valid fields changed: %+v", it)
	}
	if it.DurationHours != 0.5 {
		t.Errorf("duration changed: %v", it.DurationHours)
	}
	if it.Parameters["place"] != "cafeteria" {
		t.Errorf("parameters lost: %v", it.Parameters)
	}
}

func TestSanitizeNeverPanics(t *testing.T) {
	// Structural healing is total: any record with name and goal_type
	// yields a valid item no matter what the other fields contain.
	records := []map[string]any{{
		"name":      "chaos",
		"goal_type": 12345, // wrong type entirely: dropped record
	}, {
		"name":           "chaos two",
		"goal_type":      "meal",
		"priority":       []any{"high"},
		"time_slot":      7.5,
		"duration_hours": map[string]any{},
		"parameters":     "not a map",
		"conditions":     42,
	}}

	items := Sanitize(records)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	it := items[0]
	if it.Priority != "medium" || it.TimeSlot != "" || it.DurationHours != 1.0 {
		t.Errorf("healing incomplete: %+v", it)
	}
}
