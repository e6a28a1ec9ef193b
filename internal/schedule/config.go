package schedule

import (
	"fmt"
	"time"
)

// Config holds the generation policy knobs.
type Config struct {
	MinActivities int
	MaxActivities int

	MinDescriptionLen int
	MaxDescriptionLen int

	UseMultiRound    bool
	ParallelRounds   bool // fan out rounds instead of sequential feedback
	MaxRounds        int
	MaxRetries       int // attempts per round before an unusable response fails it
	QualityThreshold float64

	MaxTokens         int
	Temperature       float64
	GenerationTimeout time.Duration

	CustomPrompt string

	CacheTTL     time.Duration
	CacheMaxSize int
}

func DefaultConfig() Config {
	return Config{
		MinActivities:     8,
		MaxActivities:     15,
		MinDescriptionLen: 15,
		MaxDescriptionLen: 50,
		UseMultiRound:     true,
		MaxRounds:         2,
		MaxRetries:        3,
		QualityThreshold:  0.85,
		MaxTokens:         8192,
		Temperature:       0.7,
		GenerationTimeout: 180 * time.Second,
		CacheTTL:          5 * time.Minute,
		CacheMaxSize:      100,
	}
}

// TargetDescriptionLen is the midpoint the scorer rewards reaching.
func (c Config) TargetDescriptionLen() int {
	return (c.MinDescriptionLen + c.MaxDescriptionLen) / 2
}

func (c Config) Validate() error {
	if c.MinActivities < 1 {
		return fmt.Errorf("min activities must be >= 1, got %d", c.MinActivities)
	}
	if c.MinActivities > c.MaxActivities {
		return fmt.Errorf("min activities (%d) cannot exceed max activities (%d)", c.MinActivities, c.MaxActivities)
	}
	if c.MinDescriptionLen < 5 {
		return fmt.Errorf("min description length must be >= 5, got %d", c.MinDescriptionLen)
	}
	if c.MinDescriptionLen > c.MaxDescriptionLen {
		return fmt.Errorf("min description length (%d) cannot exceed max (%d)", c.MinDescriptionLen, c.MaxDescriptionLen)
	}
	if c.MaxRounds < 1 || c.MaxRounds > 5 {
		return fmt.Errorf("max rounds must be between 1 and 5, got %d", c.MaxRounds)
	}
	if c.MaxRetries < 1 || c.MaxRetries > 5 {
		return fmt.Errorf("max retries must be between 1 and 5, got %d", c.MaxRetries)
	}
	if c.QualityThreshold < 0 || c.QualityThreshold > 1 {
		return fmt.Errorf("quality threshold must be within [0, 1], got %v", c.QualityThreshold)
	}
	if c.GenerationTimeout < 10*time.Second {
		return fmt.Errorf("generation timeout must be >= 10s, got %v", c.GenerationTimeout)
	}
	return nil
}
