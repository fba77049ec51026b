package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/carebuddy/carebuddy/internal/api"
	"github.com/carebuddy/carebuddy/internal/genai"
	"github.com/carebuddy/carebuddy/internal/messaging"
	"github.com/carebuddy/carebuddy/internal/models"
	"github.com/carebuddy/carebuddy/internal/pipeline"
	"github.com/carebuddy/carebuddy/internal/rules"
	"github.com/carebuddy/carebuddy/internal/scheduler"
	"github.com/carebuddy/carebuddy/internal/store"
	"github.com/carebuddy/carebuddy/internal/util"
	"github.com/carebuddy/carebuddy/internal/voice"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CareBuddy state data
	DefaultStateDir = "/var/lib/carebuddy"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "carebuddy.db"
	// sessionIdleTimeout evicts conversations idle longer than this
	sessionIdleTimeout = 30 * time.Minute
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create state directory", "error", err)
		os.Exit(1)
	}

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	notifier := buildNotifier(flags)
	sessions := pipeline.NewInMemorySessionStore()
	runner := buildRunner(flags, sessions, st)

	alertEngine := rules.NewAlertEngine(st, notifier)
	reminderSched := rules.NewReminderScheduler(st)
	reports := rules.NewReportBuilder(st)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	rulesJob := scheduler.NewRulesJob(st, alertEngine, reminderSched, notifier)
	if err := rulesJob.Schedule(sched); err != nil {
		slog.Error("Failed to schedule rules sweep", "error", err)
		os.Exit(1)
	}
	if err := sched.AddJob("*/30 * * * *", func() {
		if n := sessions.EvictIdle(sessionIdleTimeout); n > 0 {
			slog.Info("Evicted idle conversation sessions", "count", n)
		}
	}); err != nil {
		slog.Error("Failed to schedule session eviction", "error", err)
		os.Exit(1)
	}

	srvOpts := []api.Option{api.WithAddr(*flags.apiAddr)}
	if notifier != nil {
		srvOpts = append(srvOpts, api.WithNotifier(notifier))
	}
	srv := api.NewServer(st, runner, alertEngine, reminderSched, reports, srvOpts...)
	registerTwilioWebhooks(srv, runner, sessions)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping CareBuddy", "addr", *flags.apiAddr, "chat_enabled", runner != nil)
	if err := srv.Run(ctx); err != nil {
		slog.Error("CareBuddy failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("CareBuddy exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
}

// Flags holds command line flag values
type Flags struct {
	stateDir  *string
	dbDSN     *string
	openaiKey *string
	apiAddr   *string
}

// initializeLogger sets up structured logging, with the level taken from
// $CAREBUDDY_DEBUG.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CAREBUDDY_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
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
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    util.EnvOrDefault("CAREBUDDY_STATE_DIR", DefaultStateDir),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     util.EnvOrDefault("API_ADDR", ":8080"),
	}

	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", os.Getenv("DATABASE_URL") != "",
		"CAREBUDDY_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:  flag.String("state-dir", config.StateDir, "Directory for CareBuddy state data"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "Database DSN (SQLite path or PostgreSQL connection string)"),
		openaiKey: flag.String("openai-key", config.OpenAIKey, "OpenAI API key for the conversational pipeline"),
		apiAddr:   flag.String("addr", config.APIAddr, "API server listen address"),
	}
	flag.Parse()
	return flags
}

// ensureDirectoriesExist creates the state directory if it doesn't exist
func ensureDirectoriesExist(flags Flags) error {
	return os.MkdirAll(*flags.stateDir, 0755)
}

// openStore selects the storage backend by DSN detection.
func openStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Info("Using PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Info("Using SQLite store", "path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildNotifier wires the Twilio SMS transport. Notification is optional:
// without credentials the service runs with delivery disabled.
func buildNotifier(flags Flags) messaging.Notifier {
	client, err := messaging.NewTwilioClient()
	if err != nil {
		slog.Warn("SMS notifications disabled", "reason", err)
		return nil
	}
	return messaging.NewService(client)
}

// buildRunner wires the conversational pipeline. A missing OpenAI key is a
// configuration failure surfaced per-request as 503 rather than at boot.
func buildRunner(flags Flags, sessions pipeline.SessionStore, st store.Store) *pipeline.Runner {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	client, err := genai.NewClient(genaiOpts...)
	if err != nil {
		if errors.Is(err, genai.ErrAPIKeyMissing) {
			slog.Warn("Conversational pipeline disabled: OPENAI_API_KEY not set")
		} else {
			slog.Warn("Conversational pipeline disabled", "reason", err)
		}
		return nil
	}
	return pipeline.NewRunner(client, sessions, st)
}

// registerTwilioWebhooks attaches the inbound SMS and voice endpoints when
// the pipeline is available.
func registerTwilioWebhooks(srv *api.Server, runner *pipeline.Runner, sessions pipeline.SessionStore) {
	if runner == nil {
		return
	}
	smsWebhook := messaging.NewWebhookHandler(func(ctx context.Context, sessionID, message string) (string, error) {
		state, err := runner.Chat(ctx, sessionID, "", message, models.SpecialistGeneral, false)
		if err != nil {
			return "", err
		}
		return state.Reply, nil
	})
	srv.Handle("POST /twilio/sms", smsWebhook)

	voiceHandler := voice.NewHandler(runner, sessions, "/twilio/voice/process")
	srv.HandleFunc("POST /twilio/voice", voiceHandler.Answer)
	srv.HandleFunc("POST /twilio/voice/process", voiceHandler.Process)
	srv.HandleFunc("POST /twilio/voice/status", voiceHandler.Status)
}
