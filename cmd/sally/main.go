// Command sally runs the lead-intake service for White's Painting &
// Renovations: the Twilio SMS and voice webhooks, the website lead endpoint,
// and the admin surface.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/whitespainting/sally/internal/api"
	"github.com/whitespainting/sally/internal/calendar"
	"github.com/whitespainting/sally/internal/crm"
	"github.com/whitespainting/sally/internal/intake"
	"github.com/whitespainting/sally/internal/notify"
	"github.com/whitespainting/sally/internal/proposal"
	"github.com/whitespainting/sally/internal/scheduler"
	"github.com/whitespainting/sally/internal/scheduling"
	"github.com/whitespainting/sally/internal/store"
	"github.com/whitespainting/sally/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Sally state data
	DefaultStateDir = "/var/lib/sally"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "sally.db"
	// DefaultSweepCron clears abandoned voice sessions every 15 minutes
	DefaultSweepCron = "*/15 * * * *"
	// DefaultSessionMaxIdle is how long a silent voice session survives
	DefaultSessionMaxIdle = 30 * time.Minute
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open lead store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	cal := openCalendar(ctx)
	owner := notify.NewTwilioNotifier()
	offerer := intake.NewSlotOfferer(cal, *flags.calendarID, *flags.lookaheadDays)
	committer := intake.NewCommitter(cal, owner, *flags.calendarID)
	sessions := intake.NewMemorySessionStore()

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob("session sweep", *flags.sweepCron, func() {
		sessions.SweepIdle(DefaultSessionMaxIdle)
	}); err != nil {
		slog.Error("Failed to schedule session sweep", "error", err, "cron", *flags.sweepCron)
		os.Exit(1)
	}

	server := api.NewServer(
		st,
		intake.NewSMSFlow(st, offerer, committer),
		intake.NewVoiceFlow(sessions, offerer, committer),
		proposal.NewEngine(st, proposal.WithOutDir(*flags.proposalDir)),
		crm.NewForwarder(crm.WithWebhookURL(*flags.webhookURL)),
		api.WithAddr(*flags.apiAddr),
	)

	slog.Info("Bootstrapping Sally with configured modules",
		"addr", *flags.apiAddr, "calendar_set", cal != nil, "lookahead_days", *flags.lookaheadDays)
	if err := server.Run(ctx); err != nil {
		slog.Error("Sally failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Sally exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL   string
	StateDir      string
	APIAddr       string
	CalendarID    string
	WebhookURL    string
	ProposalDir   string
	SweepCron     string
	LookaheadDays int
}

// Flags holds command line flag values
type Flags struct {
	stateDir      *string
	dbDSN         *string
	apiAddr       *string
	calendarID    *string
	webhookURL    *string
	proposalDir   *string
	sweepCron     *string
	lookaheadDays *int
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("SALLY_STATE_DIR"),
		APIAddr:       os.Getenv("API_ADDR"),
		CalendarID:    os.Getenv("GOOGLE_CALENDAR_ID"),
		WebhookURL:    os.Getenv("GHL_WEBHOOK_URL"),
		ProposalDir:   os.Getenv("PROPOSAL_DIR"),
		SweepCron:     os.Getenv("SESSION_SWEEP_CRON"),
		LookaheadDays: util.ParseIntEnv("SCHEDULE_LOOKAHEAD_DAYS", scheduling.DefaultLookaheadDays),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SALLY_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.CalendarID == "" {
		config.CalendarID = "primary"
		slog.Debug("No GOOGLE_CALENDAR_ID set, using primary calendar")
	}
	if config.SweepCron == "" {
		config.SweepCron = DefaultSweepCron
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"SALLY_STATE_DIR", config.StateDir,
		"API_ADDR", config.APIAddr,
		"GOOGLE_CALENDAR_ID_SET", config.CalendarID != "",
		"GHL_WEBHOOK_URL_SET", config.WebhookURL != "",
		"SCHEDULE_LOOKAHEAD_DAYS", config.LookaheadDays)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for Sally data (overrides $SALLY_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the lead store (overrides $DATABASE_URL)"),
		apiAddr:       flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		calendarID:    flag.String("calendar-id", config.CalendarID, "Google Calendar ID for walkthroughs (overrides $GOOGLE_CALENDAR_ID)"),
		webhookURL:    flag.String("ghl-webhook-url", config.WebhookURL, "HighLevel inbound webhook URL (overrides $GHL_WEBHOOK_URL)"),
		proposalDir:   flag.String("proposal-dir", config.ProposalDir, "output directory for proposal PDFs (overrides $PROPOSAL_DIR)"),
		sweepCron:     flag.String("sweep-cron", config.SweepCron, "cron expression for the voice session sweep (overrides $SESSION_SWEEP_CRON)"),
		lookaheadDays: flag.Int("lookahead-days", config.LookaheadDays, "business days to scan for walkthrough slots (overrides $SCHEDULE_LOOKAHEAD_DAYS)"),
	}

	flag.Parse()

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// openStore selects the storage backend from the DSN shape.
func openStore(flags Flags) (store.Store, error) {
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// openCalendar builds the Google Calendar client. Sally runs without one:
// the offer sub-protocol falls back to unfiltered slots and the committer
// reports write failures to the owner instead.
func openCalendar(ctx context.Context) calendar.Service {
	client, err := calendar.NewClient(ctx)
	if err != nil {
		slog.Warn("Google Calendar unavailable, running without availability checks", "error", err)
		return nil
	}
	return client
}
