package schedule

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// Persona describes the character the schedule is generated for.
type Persona struct {
	BotName     string
	Personality string
	Interests   string
	ReplyStyle  string
}

// PromptBuilder composes the generation prompts. It holds no mutable
// state; the date-dependent pieces come from the injected clock.
type PromptBuilder struct {
	cfg     Config
	persona Persona
	now     func() time.Time
}

func NewPromptBuilder(cfg Config, persona Persona, now func() time.Time) *PromptBuilder {
	if now == nil {
		now = time.Now
	}
	return &PromptBuilder{cfg: cfg, persona: persona, now: now}
}

// Build composes the base prompt for one generation round.
// yesterdayContext summarizes the previous day's schedule; empty means
// no history is available.
func (p *PromptBuilder) Build(scheduleType, yesterdayContext string) string {
	today := p.now()
	dateStr := today.Format("2006-01-02")
	weekday := today.Weekday()
	isWeekend := weekday == time.Saturday || weekday == time.Sunday

	// Same date, same mood: a deliberate choice so regenerating within a
	// day stays consistent. Not random and not meant to be.
	mood := dateHash(dateStr) % 100
	energy := dateHash(dateStr+"energy") % 100

	if yesterdayContext == "" {
		yesterdayContext = "an ordinary day, nothing special"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, %s.\n\n", p.persona.BotName, p.persona.Personality)
	fmt.Fprintf(&b, "Today is %s, %s", dateStr, weekday)
	if isWeekend {
		b.WriteString(" (weekend)")
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Yesterday: %s\n", yesterdayContext)
	fmt.Fprintf(&b, "State: mood %d/100, energy %d/100\n", mood, energy)

	if p.cfg.CustomPrompt != "" {
		fmt.Fprintf(&b, "\nSpecial request:\n%s\n", p.cfg.CustomPrompt)
	}

	fmt.Fprintf(&b, "\nTask: produce your %s schedule as a JSON object.\n", periodLabel(scheduleType))
	b.WriteString("The schedule must cover the whole day back to back with no gaps:\n")
	b.WriteString("each activity's end time (time_slot + duration_hours) equals the next activity's time_slot.\n\n")

	fmt.Fprintf(&b, "1. %d-%d activities covering 00:00-24:00 seamlessly\n", p.cfg.MinActivities, p.cfg.MaxActivities)
	fmt.Fprintf(&b, "2. Each description %d-%d characters, written like a diary entry\n", p.cfg.MinDescriptionLen, p.cfg.MaxDescriptionLen)
	if p.persona.Interests != "" {
		fmt.Fprintf(&b, "3. Weave in your interests: %s\n", p.persona.Interests)
	}
	if p.persona.ReplyStyle != "" {
		fmt.Fprintf(&b, "4. Writing style: %s\n", p.persona.ReplyStyle)
	}

	b.WriteString(`
Activity types:
daily_routine | meal | study | entertainment | social_maintenance | exercise | learn_topic | rest | free_time | custom

Response shape (example of seamless coverage):
{
  "schedule_items": [
    {"name":"sleep","description":"curled up and fast asleep","goal_type":"daily_routine","priority":"high","time_slot":"00:00","duration_hours":7.5},
    {"name":"wake up","description":"stumbled out of bed and washed up","goal_type":"daily_routine","priority":"medium","time_slot":"07:30","duration_hours":0.5},
    {"name":"breakfast","description":"grabbed something quick to eat","goal_type":"meal","priority":"high","time_slot":"08:00","duration_hours":0.5},
    {"name":"morning study","description":"worked through new material","goal_type":"study","priority":"high","time_slot":"08:30","duration_hours":3.5}
  ]
}

Rules:
- Strict JSON, no comments, no trailing prose
- time_slot in ascending HH:MM order
- duration_hours is how long the activity lasts (0.25-12), not an interval
- No gaps: if one activity ends at 15:00 the next must start at 15:00
`)
	fmt.Fprintf(&b, "- Keep key activities at sensible hours: %s, sleep starting 22:00-02:00\n", mealGuidance())
	fmt.Fprintf(&b, "- Split long afternoon and evening stretches; no single activity over 3 hours unless it is rest, sleep, or free time\n")
	if isWeekend {
		b.WriteString("- It is the weekend, so sleeping in is fine\n")
	} else {
		fmt.Fprintf(&b, "- It is a %s, so the day starts early\n", weekday)
	}
	fmt.Fprintf(&b, "- Match mood %d and energy %d\n", mood, energy)

	return b.String()
}

// BuildRetry appends corrective feedback from the previous round to the
// base prompt. At most five issues are surfaced.
func (p *PromptBuilder) BuildRetry(scheduleType, yesterdayContext string, previousIssues []string) string {
	base := p.Build(scheduleType, yesterdayContext)

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\nThe previous attempt had these problems; fix them this time:\n")
	for i, issue := range previousIssues {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, issue)
	}
	b.WriteString("\nRegenerate a more sensible schedule paying attention to the points above.\n")
	return b.String()
}

func periodLabel(scheduleType string) string {
	switch scheduleType {
	case TypeWeekly:
		return "weekly"
	case TypeMonthly:
		return "monthly"
	default:
		return "daily"
	}
}

func dateHash(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32())
}
