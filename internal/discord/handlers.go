package discord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/plana/internal/llm"
	"github.com/chris/plana/internal/timewin"
)

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author.ID == s.State.User.ID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	content := strings.TrimSpace(m.Content)
	content = strings.TrimSpace(stripMention(content, s.State.User.ID))
	if content == "" {
		return
	}

	// Show typing indicator; generation can take a while
	s.ChannelTyping(m.ChannelID)

	reply := b.dispatch(context.Background(), content)

	// Discord has a 2000 char limit; split if needed
	for _, chunk := range splitMessage(reply, 2000) {
		s.ChannelMessageSend(m.ChannelID, chunk)
	}
}

// dispatch routes a command word to its handler and returns the reply
// text. Unknown input gets the help text.
func (b *Bot) dispatch(ctx context.Context, content string) string {
	cmd, _, _ := strings.Cut(strings.ToLower(content), " ")
	switch cmd {
	case "plan":
		return b.handlePlan(ctx)
	case "replan":
		return b.handleReplan(ctx)
	case "today", "schedule":
		return b.handleToday()
	case "now":
		return b.handleNow()
	case "goals":
		return b.handleGoals()
	default:
		return b.helpText()
	}
}

func (b *Bot) handlePlan(ctx context.Context) string {
	sched, generated, err := b.trigger.EnsureDaily(ctx)
	if err != nil {
		log.Printf("discord: plan failed: %v", err)
		if llm.IsQuota(err) {
			return "Could not generate a schedule: the model quota is exhausted."
		}
		return "Could not generate a schedule. Try again in a bit?"
	}
	if !generated {
		return "Today already has a plan. Use `replan` to start over.\n\n" + b.handleToday()
	}
	return "Here is today's plan:\n" + sched.Summary()
}

func (b *Bot) handleReplan(ctx context.Context) string {
	sched, err := b.trigger.RegenerateDaily(ctx)
	if err != nil {
		log.Printf("discord: replan failed: %v", err)
		return "Could not generate a schedule. Try again in a bit?"
	}
	return "Replanned. Here is the new plan:\n" + sched.Summary()
}

func (b *Bot) handleToday() string {
	today := time.Now().Format("2006-01-02")
	goals, err := b.db.ListScheduleGoals(b.chatID, today)
	if err != nil {
		log.Printf("discord: listing today's goals: %v", err)
		return "Could not read today's schedule."
	}
	if len(goals) == 0 {
		return "No plan for today yet. Say `plan` to make one."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today's schedule (%s):\n", today)
	for _, goal := range goals {
		if w, ok := goal.TimeWindow(); ok {
			fmt.Fprintf(&sb, "%s %s\n", w, goal.Name)
		} else {
			fmt.Fprintf(&sb, "       %s\n", goal.Name)
		}
	}
	return sb.String()
}

func (b *Bot) handleNow() string {
	snap, err := b.activities.Now(b.chatID)
	if err != nil {
		log.Printf("discord: activity lookup failed: %v", err)
		return "Could not work out the current activity."
	}
	var parts []string
	if snap.Current != nil {
		parts = append(parts, fmt.Sprintf("Right now: %s (%s)", snap.Current.Name, snap.Current.Description))
	} else {
		parts = append(parts, "Nothing scheduled right now.")
	}
	if snap.Next != nil {
		if w, ok := snap.Next.TimeWindow(); ok {
			parts = append(parts, fmt.Sprintf("Up next at %s: %s", timewin.ToClock(w.Start), snap.Next.Name))
		} else {
			parts = append(parts, "Up next: "+snap.Next.Name)
		}
	}
	return strings.Join(parts, "\n")
}

func (b *Bot) handleGoals() string {
	goals, err := b.db.ListGoals(b.chatID, "")
	if err != nil {
		log.Printf("discord: listing goals: %v", err)
		return "Could not read the goal list."
	}
	if len(goals) == 0 {
		return "No goals yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d goal(s):\n", len(goals))
	for _, goal := range goals {
		fmt.Fprintf(&sb, "- [%s] %s (%s, %s)\n", goal.Status, goal.Name, goal.GoalType, goal.Priority)
	}
	return sb.String()
}

func (b *Bot) helpText() string {
	return fmt.Sprintf(`%s can manage a daily plan for you:
plan     - generate today's schedule (no-op if one exists)
replan   - throw today's schedule away and generate a new one
today    - show today's schedule
now      - what is happening right now and what comes next
goals    - list all goals
help     - this message`, b.botName)
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end > len(s) {
			end = len(s)
		}
		// Try to split at a newline
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
