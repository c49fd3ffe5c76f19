package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/i474232898/airline-rank-bot/internal/standings"
)

var validate = validator.New()

type AppConfig struct {
	FSHubToken   string `validate:"required"`
	FSHubBaseURL string `validate:"required,url"`

	DiscordToken   string `validate:"required"`
	ChannelID      string `validate:"required,numeric"`
	UserID         string `validate:"required,numeric"`
	TriggerCommand string `validate:"required"`

	// ScheduleCron is a standard 5-field cron spec evaluated in UTC.
	ScheduleCron string `validate:"required"`

	// OutputPath is the table image overwritten on every run.
	OutputPath string `validate:"required"`

	// RosterFile is optional; the embedded default roster is used when empty.
	RosterFile string
	Roster     standings.Roster `validate:"-"`

	// Rank position backend: memory | nats | mongo | postgres.
	RankStore     string `validate:"oneof=memory nats mongo postgres"`
	NATSURL       string `validate:"required_if=RankStore nats,required_with=EventsSubject"`
	RankBucket    string `validate:"required"`
	MongoURI      string `validate:"required_if=RankStore mongo"`
	MongoDB       string `validate:"required"`
	PostgresDSN   string `validate:"required_if=RankStore postgres"`
	EventsSubject string

	HTTPTimeout      time.Duration
	RunTimeout       time.Duration
	FetchConcurrency int `validate:"min=1"`

	// In-memory snapshot retention.
	SnapshotHistory int           `validate:"min=0"` // 0 = unlimited
	SnapshotMaxAge  time.Duration // 0 = unlimited

	// APIToken enables POST /api/v1/standings/update when set.
	APIToken string `validate:"omitempty,min=16"`

	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn error"`
}

// Load reads configuration from environment with sensible defaults.
// A missing credential or destination is an error; the caller must not start.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.FSHubToken = os.Getenv("FSHUB_TOKEN")
	cfg.FSHubBaseURL = getenvDefault("FSHUB_BASE_URL", "https://fshub.io/api/v3")

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	cfg.ChannelID = os.Getenv("CHANNEL_ID")
	cfg.UserID = os.Getenv("USER_ID")
	// A blank command would match attachment-only messages.
	cfg.TriggerCommand = strings.TrimSpace(getenvDefault("TRIGGER_COMMAND", "!ccxbottest"))

	cfg.ScheduleCron = getenvDefault("SCHEDULE_CRON", "6 4 * * *")
	cfg.OutputPath = getenvDefault("OUTPUT_PATH", "airline_table.png")
	cfg.RosterFile = os.Getenv("ROSTER_FILE")

	cfg.RankStore = getenvDefault("RANK_STORE", "nats")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.RankBucket = getenvDefault("RANK_STORE_BUCKET", "airline_ranks")
	cfg.MongoURI = os.Getenv("MONGO_URI")
	cfg.MongoDB = getenvDefault("MONGO_DB", "airline_rank_bot")
	cfg.PostgresDSN = os.Getenv("POSTGRES_DSN")
	cfg.EventsSubject = os.Getenv("EVENTS_SUBJECT")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getenvDuration("RUN_TIMEOUT", "5m"); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = getenvInt("FETCH_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	// a month of daily runs
	if cfg.SnapshotHistory, err = getenvInt("SNAPSHOT_HISTORY", 30); err != nil {
		return nil, err
	}
	if cfg.SnapshotMaxAge, err = getenvDuration("SNAPSHOT_MAX_AGE", "720h"); err != nil {
		return nil, err
	}

	cfg.APIToken = os.Getenv("API_TOKEN")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	roster, err := LoadRoster(cfg.RosterFile)
	if err != nil {
		return nil, err
	}
	cfg.Roster = roster

	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cron.ParseStandard(c.ScheduleCron); err != nil {
		return fmt.Errorf("invalid SCHEDULE_CRON %q: %w", c.ScheduleCron, err)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("RUN_TIMEOUT must be positive")
	}
	if c.SnapshotMaxAge < 0 {
		return fmt.Errorf("SNAPSHOT_MAX_AGE must not be negative")
	}
	return nil
}

// NextRun returns the next scheduled run after t.
func (c *AppConfig) NextRun(t time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(c.ScheduleCron)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t.UTC()), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
