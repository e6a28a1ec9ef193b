package schedule

import (
	"fmt"
	"strings"
)

// hourRange is an inclusive range of clock hours an activity is expected
// to start within.
type hourRange struct {
	From, To int
}

func (r hourRange) contains(hour int) bool {
	return hour >= r.From && hour <= r.To
}

// timeRule maps (goal_type, name keyword) to the hours the activity is
// expected at. Multiple ranges express periods split by midnight (sleep)
// or split by the workday (exercise). This table is the single source of
// truth for time-of-day expectations; the prompt builder renders its
// guidance from the same data.
type timeRule struct {
	GoalType string
	Keyword  string
	Ranges   []hourRange
}

var timeRules = []timeRule{
	// Meals.
	{"meal", "早餐", []hourRange{{6, 9}}},
	{"meal", "早饭", []hourRange{{6, 9}}},
	{"meal", "breakfast", []hourRange{{6, 9}}},
	{"meal", "午餐", []hourRange{{11, 14}}},
	{"meal", "午饭", []hourRange{{11, 14}}},
	{"meal", "lunch", []hourRange{{11, 14}}},
	{"meal", "晚餐", []hourRange{{17, 20}}},
	{"meal", "晚饭", []hourRange{{17, 20}}},
	{"meal", "dinner", []hourRange{{17, 20}}},
	// Daily routine.
	{"daily_routine", "睡觉", []hourRange{{22, 24}, {0, 6}}},
	{"daily_routine", "sleep", []hourRange{{22, 24}, {0, 6}}},
	{"daily_routine", "睡前", []hourRange{{21, 24}, {0, 2}}},
	{"daily_routine", "起床", []hourRange{{6, 10}}},
	{"daily_routine", "wake", []hourRange{{6, 10}}},
	{"daily_routine", "洗漱", []hourRange{{6, 23}}},
	// Social.
	{"social_maintenance", "夜聊", []hourRange{{20, 24}}},
	{"social_maintenance", "晚安", []hourRange{{21, 24}}},
	{"social_maintenance", "goodnight", []hourRange{{21, 24}}},
	// Study.
	{"study", "上课", []hourRange{{8, 18}}},
	{"study", "class", []hourRange{{8, 18}}},
	{"study", "自习", []hourRange{{8, 23}}},
	{"study", "学习", []hourRange{{8, 23}}},
	{"study", "study", []hourRange{{8, 23}}},
	// Exercise: morning or evening.
	{"exercise", "运动", []hourRange{{6, 9}, {17, 22}}},
	{"exercise", "健身", []hourRange{{6, 9}, {17, 22}}},
	{"exercise", "exercise", []hourRange{{6, 9}, {17, 22}}},
	{"exercise", "workout", []hourRange{{6, 9}, {17, 22}}},
}

// Names that legitimately run longer than three hours.
var longActivityKeywords = []string{"自由", "休息", "睡", "free", "rest", "sleep"}

// Basic-needs keywords that deserve at least medium priority.
var basicNeedKeywords = []string{"睡觉", "吃", "早饭", "午饭", "晚饭", "sleep", "eat", "breakfast", "lunch", "dinner"}

// Gap thresholds in minutes for the duration check.
const (
	minGapMinutes = 15
	maxGapMinutes = 180
)

// Review runs the semantic checks over structurally valid items and
// returns advisory warnings. Items are never dropped or modified here;
// warnings only feed the quality score and the next round's feedback.
func Review(items []Item) []string {
	var warnings []string
	for idx, it := range items {
		var issues []string
		if w := checkTimeOfDay(&it); w != "" {
			issues = append(issues, w)
		}
		if w := checkGap(&it, items); w != "" {
			issues = append(issues, w)
		}
		if w := checkPriority(&it); w != "" {
			issues = append(issues, w)
		}
		if len(issues) > 0 {
			warnings = append(warnings,
				fmt.Sprintf("item %d (%s): %s", idx+1, it.Name, strings.Join(issues, "; ")))
		}
	}
	return warnings
}

func checkTimeOfDay(it *Item) string {
	start, ok := it.StartMinutes()
	if !ok {
		return ""
	}
	hour := start / 60
	for _, rule := range timeRules {
		if rule.GoalType != it.GoalType || !strings.Contains(it.Name, rule.Keyword) {
			continue
		}
		for _, r := range rule.Ranges {
			if r.contains(hour) {
				return ""
			}
		}
		return fmt.Sprintf("%s at %s is outside the expected %s window",
			rule.Keyword, it.TimeSlot, formatRanges(rule.Ranges))
	}
	return ""
}

func formatRanges(ranges []hourRange) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		to := r.To
		if to == 24 {
			to = 0
		}
		parts[i] = fmt.Sprintf("%02d:00-%02d:00", r.From, to)
	}
	return strings.Join(parts, " or ")
}

// checkGap measures the distance to the next scheduled activity. Less
// than 15 minutes is too short to be a real slot; more than 3 hours is
// suspicious unless the activity is rest, sleep, or free time.
func checkGap(it *Item, all []Item) string {
	start, ok := it.StartMinutes()
	if !ok {
		return ""
	}
	// Only strictly later starts qualify, which also excludes the item
	// itself and anything sharing its slot.
	next := -1
	for i := range all {
		om, ok := all[i].StartMinutes()
		if !ok || om <= start {
			continue
		}
		if next == -1 || om < next {
			next = om
		}
	}
	if next == -1 {
		return ""
	}
	gap := next - start
	if gap < minGapMinutes {
		return fmt.Sprintf("only %d minutes before the next activity, expected at least %d", gap, minGapMinutes)
	}
	if gap > maxGapMinutes && !containsAny(it.Name, longActivityKeywords) {
		return fmt.Sprintf("runs %d minutes before the next activity, expected at most %d", gap, maxGapMinutes)
	}
	return ""
}

func checkPriority(it *Item) string {
	if it.GoalType != "meal" && it.GoalType != "daily_routine" {
		return ""
	}
	if it.Priority == "low" && containsAny(it.Name, basicNeedKeywords) {
		return "basic needs should be medium or high priority"
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// mealGuidance renders the meal expectations for the prompt from the
// same rule table the validator enforces.
func mealGuidance() string {
	var parts []string
	for _, kw := range []string{"breakfast", "lunch", "dinner"} {
		for _, rule := range timeRules {
			if rule.GoalType == "meal" && rule.Keyword == kw {
				parts = append(parts, fmt.Sprintf("%s %s", kw, formatRanges(rule.Ranges)))
				break
			}
		}
	}
	return strings.Join(parts, ", ")
}
