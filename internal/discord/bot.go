package discord

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/plana/internal/db"
	"github.com/chris/plana/internal/trigger"
)

type Bot struct {
	session    *discordgo.Session
	db         *db.DB
	trigger    *trigger.Trigger
	activities *trigger.Activities
	chatID     string
	botName    string
}

func NewBot(token, chatID, botName string, database *db.DB, trig *trigger.Trigger, activities *trigger.Activities) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := &Bot{
		session:    s,
		db:         database,
		trigger:    trig,
		activities: activities,
		chatID:     chatID,
		botName:    botName,
	}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	log.Printf("Discord bot connected as %s", s.State.User.Username)
	return bot, nil
}

func (b *Bot) Close() {
	b.session.Close()
}

// Send delivers content to a channel, splitting at Discord's limit.
// Used as the trigger's delivery hook for cron-generated schedules.
func (b *Bot) Send(channelID, content string) error {
	for _, chunk := range splitMessage(content, 2000) {
		if _, err := b.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("sending to channel %s: %w", channelID, err)
		}
	}
	return nil
}
