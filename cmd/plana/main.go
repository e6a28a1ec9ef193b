package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chris/plana/config"
	"github.com/chris/plana/internal/db"
	"github.com/chris/plana/internal/discord"
	"github.com/chris/plana/internal/llm"
	"github.com/chris/plana/internal/schedule"
	"github.com/chris/plana/internal/timewin"
	"github.com/chris/plana/internal/trigger"
)

func main() {
	cfg := config.Load()

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	apiKey := cfg.AnthropicKey
	if cfg.LLMProvider == "openai" {
		apiKey = cfg.OpenAIKey
	}

	client, err := llm.NewClient(llm.ProviderConfig{
		Provider:  cfg.LLMProvider,
		APIKey:    apiKey,
		AuthToken: cfg.AnthropicToken,
		Model:     cfg.LLMModel,
		BaseURL:   cfg.OllamaBaseURL,
	})
	if err != nil {
		log.Fatalf("failed to create LLM client: %v", err)
	}
	retrying := llm.NewRetryClient(client, cfg.MaxRetries)

	scheduleCfg := schedule.DefaultConfig()
	if cfg.MaxRetries > 0 {
		scheduleCfg.MaxRetries = cfg.MaxRetries
	}
	persona := schedule.Persona{
		BotName:     cfg.BotName,
		Personality: cfg.Personality,
		Interests:   cfg.Interests,
		ReplyStyle:  cfg.ReplyStyle,
	}
	gen, err := schedule.NewGenerator(database, retrying, scheduleCfg, persona)
	if err != nil {
		log.Fatalf("failed to create generator: %v", err)
	}

	activities := trigger.NewActivities(database, scheduleCfg.CacheMaxSize, scheduleCfg.CacheTTL)
	defer activities.Close()

	// If Discord token is set, run as bot
	if cfg.DiscordToken != "" {
		runBot(cfg, database, gen, activities)
		return
	}

	// Otherwise, CLI mode
	trig := trigger.New(database, gen, trigger.Options{
		ChatID:       cfg.ChatID,
		UserID:       cfg.UserID,
		KeepGoalDays: cfg.KeepGoalDays,
	})
	runCLI(database, trig, activities, cfg.ChatID)
}

func runBot(cfg *config.Config, database *db.DB, gen *schedule.Generator, activities *trigger.Activities) {
	// The bot does not exist yet when the trigger is built; the closure
	// picks it up once the session is open.
	var bot *discord.Bot
	trig := trigger.New(database, gen, trigger.Options{
		ChatID:       cfg.ChatID,
		UserID:       cfg.UserID,
		DailyCron:    cfg.DailyCron,
		WeeklyCron:   cfg.WeeklyCron,
		MonthlyCron:  cfg.MonthlyCron,
		KeepGoalDays: cfg.KeepGoalDays,
		Deliver: func(content string) error {
			if bot == nil {
				return nil
			}
			return bot.Send(cfg.ChatID, content)
		},
	})

	bot, err := discord.NewBot(cfg.DiscordToken, cfg.ChatID, cfg.BotName, database, trig, activities)
	if err != nil {
		log.Fatalf("failed to start Discord bot: %v", err)
	}
	defer bot.Close()

	if err := trig.Start(); err != nil {
		log.Fatalf("failed to start trigger: %v", err)
	}
	defer trig.Stop()

	log.Println("bot is running. Press Ctrl+C to exit.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down.")
}

func runCLI(database *db.DB, trig *trigger.Trigger, activities *trigger.Activities, chatID string) {
	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	// Check if stdin is a pipe (non-interactive)
	stat, _ := os.Stdin.Stat()
	isPipe := (stat.Mode() & os.ModeCharDevice) == 0

	if !isPipe {
		fmt.Print("plana> ")
	}

	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			if !isPipe {
				fmt.Print("plana> ")
			}
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		runCommand(ctx, database, trig, activities, chatID, input)

		if isPipe {
			break // single command in pipe mode
		}
		fmt.Print("plana> ")
	}
}

func runCommand(ctx context.Context, database *db.DB, trig *trigger.Trigger, activities *trigger.Activities, chatID, input string) {
	cmd, _, _ := strings.Cut(strings.ToLower(input), " ")
	switch cmd {
	case "plan":
		sched, generated, err := trig.EnsureDaily(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: could not generate a schedule: %v\n", err)
			return
		}
		if !generated {
			fmt.Println("today already has a plan; use replan to start over")
			return
		}
		fmt.Println(sched.Summary())
	case "replan":
		sched, err := trig.RegenerateDaily(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: could not generate a schedule: %v\n", err)
			return
		}
		fmt.Println(sched.Summary())
	case "today", "schedule":
		today := time.Now().Format("2006-01-02")
		goals, err := database.ListScheduleGoals(chatID, today)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		if len(goals) == 0 {
			fmt.Println("no plan for today; run plan first")
			return
		}
		for _, goal := range goals {
			if w, ok := goal.TimeWindow(); ok {
				fmt.Printf("%s %s\n", w, goal.Name)
			} else {
				fmt.Printf("       %s\n", goal.Name)
			}
		}
	case "now":
		snap, err := activities.Now(chatID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		if snap.Current != nil {
			fmt.Printf("now: %s (%s)\n", snap.Current.Name, snap.Current.Description)
		} else {
			fmt.Println("nothing scheduled right now")
		}
		if snap.Next != nil {
			if w, ok := snap.Next.TimeWindow(); ok {
				fmt.Printf("next at %s: %s\n", timewin.ToClock(w.Start), snap.Next.Name)
			} else {
				fmt.Printf("next: %s\n", snap.Next.Name)
			}
		}
	case "goals":
		goals, err := database.ListGoals(chatID, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		if len(goals) == 0 {
			fmt.Println("no goals yet")
			return
		}
		for _, goal := range goals {
			fmt.Printf("[%s] %s (%s, %s)\n", goal.Status, goal.Name, goal.GoalType, goal.Priority)
		}
	default:
		fmt.Println("commands: plan, replan, today, now, goals, exit")
	}
}
