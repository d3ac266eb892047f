package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/DocForge/internal/api"
	"github.com/BTreeMap/DocForge/internal/bot"
	"github.com/BTreeMap/DocForge/internal/flow"
	"github.com/BTreeMap/DocForge/internal/render"
	"github.com/BTreeMap/DocForge/internal/report"
	"github.com/BTreeMap/DocForge/internal/store"
	"github.com/BTreeMap/DocForge/internal/telegram"
	"github.com/BTreeMap/DocForge/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for DocForge state data
	DefaultStateDir = "/var/lib/docforge"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "docforge.db"
	// DefaultTemplatesDir is the default docx template directory
	DefaultTemplatesDir = "templates"
	// DefaultConverterBinary is the default PDF conversion binary
	DefaultConverterBinary = "soffice"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Start the service
	slog.Info("Bootstrapping DocForge with configured modules")
	slog.Debug("Final configuration",
		"state_dir", *flags.stateDir,
		"dsn_set", *flags.dbDSN != "",
		"templates_dir", *flags.templatesDir,
		"api_addr", *flags.apiAddr)
	if err := run(flags, config); err != nil {
		slog.Error("DocForge failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("DocForge exited successfully")
}

// Config holds environment configuration
type Config struct {
	BotToken       string
	DatabaseURL    string
	StateDir       string
	TemplatesDir   string
	ConverterBin   string
	APIAddr        string
	TelegramDebug  bool
	ReportChatID   int64
	StartsThreadID int64
	FilesThreadID  int64
	AdminIDs       []int64
}

// Flags holds command line flag values
type Flags struct {
	botToken     *string
	stateDir     *string
	dbDSN        *string
	templatesDir *string
	converterBin *string
	apiAddr      *string
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
		BotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("DOCFORGE_STATE_DIR"),
		TemplatesDir:   os.Getenv("TEMPLATES_DIR"),
		ConverterBin:   os.Getenv("PDF_CONVERTER_BIN"),
		APIAddr:        os.Getenv("API_ADDR"),
		TelegramDebug:  util.ParseBoolEnv("TELEGRAM_DEBUG", false),
		ReportChatID:   util.ParseInt64Env("REPORT_CHAT_ID", 0),
		StartsThreadID: util.ParseInt64Env("STARTS_THREAD_ID", 0),
		FilesThreadID:  util.ParseInt64Env("FILES_THREAD_ID", 0),
		AdminIDs:       util.ParseInt64List(os.Getenv("ADMIN_USER_IDS")),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No DOCFORGE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.TemplatesDir == "" {
		config.TemplatesDir = DefaultTemplatesDir
	}
	if config.ConverterBin == "" {
		config.ConverterBin = DefaultConverterBinary
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"TELEGRAM_BOT_TOKEN_SET", config.BotToken != "",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"DOCFORGE_STATE_DIR", config.StateDir,
		"TEMPLATES_DIR", config.TemplatesDir,
		"PDF_CONVERTER_BIN", config.ConverterBin,
		"API_ADDR", config.APIAddr,
		"TELEGRAM_DEBUG", config.TelegramDebug,
		"REPORT_CHAT_ID_SET", config.ReportChatID != 0,
		"ADMIN_USER_IDS_COUNT", len(config.AdminIDs))

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		botToken:     flag.String("bot-token", config.BotToken, "Telegram bot token (overrides $TELEGRAM_BOT_TOKEN)"),
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for DocForge data (overrides $DOCFORGE_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN, SQLite path or PostgreSQL URL (overrides $DATABASE_URL)"),
		templatesDir: flag.String("templates-dir", config.TemplatesDir, "docx template directory (overrides $TEMPLATES_DIR)"),
		converterBin: flag.String("pdf-converter", config.ConverterBin, "PDF conversion binary, 'none' disables conversion (overrides $PDF_CONVERTER_BIN)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "HTTP API listen address, empty disables (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"botTokenSet", *flags.botToken != "",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"templatesDir", *flags.templatesDir,
		"converterBin", *flags.converterBin,
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// buildConverter selects the PDF conversion backend.
func buildConverter(binary string) render.Converter {
	switch binary {
	case "", "none", "off":
		slog.Debug("PDF conversion disabled, documents delivered as DOCX")
		return render.NoopConverter{}
	default:
		return render.NewCommandConverter(binary)
	}
}

// buildReportOptions constructs reporter env overrides
func buildReportOptions(config Config) []report.Option {
	var opts []report.Option
	if config.ReportChatID != 0 {
		opts = append(opts, report.WithChatID(config.ReportChatID))
	}
	if config.StartsThreadID != 0 {
		opts = append(opts, report.WithStartsThreadID(config.StartsThreadID))
	}
	if config.FilesThreadID != 0 {
		opts = append(opts, report.WithFilesThreadID(config.FilesThreadID))
	}
	return opts
}

// run assembles the modules and blocks until shutdown.
func run(flags Flags, config Config) error {
	st, err := store.NewStore(*flags.dbDSN)
	if err != nil {
		return err
	}
	defer st.Close()

	client, err := telegram.NewClient(
		telegram.WithToken(*flags.botToken),
		telegram.WithDebug(config.TelegramDebug),
	)
	if err != nil {
		return err
	}

	renderer := render.NewDocxRenderer(
		render.WithTemplatesDir(*flags.templatesDir),
		render.WithConverter(buildConverter(*flags.converterBin)),
	)
	reporter := report.NewReporter(client, st, buildReportOptions(config)...)
	engine := flow.NewEngine(st, client, renderer, reporter)
	b := bot.New(client, engine, st, reporter, bot.WithAdminIDs(config.AdminIDs))

	apiServer := api.NewServer(st, api.WithAddr(*flags.apiAddr))
	apiServer.Start()
	defer func() {
		if err := apiServer.Stop(); err != nil {
			slog.Error("API server stop failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return b.Run(ctx)
}
