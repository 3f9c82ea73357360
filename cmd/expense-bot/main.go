package main

import (
	_ "embed"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/expense-bot/internal/category"
	"github.com/zombor/expense-bot/internal/conversation"
	"github.com/zombor/expense-bot/internal/extraction"
	"github.com/zombor/expense-bot/internal/receipt"
	"github.com/zombor/expense-bot/internal/webhook"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// Local development keeps secrets in .env; absence is fine.
	godotenv.Load()

	fs := ff.NewFlagSet("expense-bot")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "expense-bot.db", "Dedup index database file path")
		verifyToken    = fs.StringLong("verify-token", "", "Webhook verification token")
		kapsoKey       = fs.StringLong("kapso-key", "", "Kapso API key (or set EXPENSE_BOT_KAPSO_KEY)")
		kapsoURL       = fs.StringLong("kapso-url", webhook.DefaultKapsoURL, "Kapso API base URL")
		extractorType  = fs.StringLong("extractor", "gemini", "Extractor type: 'gemini' or 'ollama'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		credentials    = fs.StringLong("credentials", "credentials.json", "Google service account credentials file")
		sheetID        = fs.StringLong("sheet-id", "", "Google Sheets spreadsheet ID for the expense ledger")
		driveFolder    = fs.StringLong("drive-folder", "", "Google Drive folder ID for receipt images")
		uploaderType   = fs.StringLong("uploader", "drive", "Uploader type: 'drive' or 'local'")
		storagePath    = fs.StringLong("storage", "./receipts", "Local storage directory (uploader=local)")
		rulesPath      = fs.StringLong("rules", "", "Category rules JSON file (optional)")
		dedupScope     = fs.StringLong("dedup-scope", "default", "Dedup scope label for all submitters")
		sessionTimeout = fs.DurationLong("session-timeout", conversation.DefaultMaxIdle, "Idle time before a session is dropped")
		reapInterval   = fs.DurationLong("reap-interval", conversation.DefaultReapInterval, "How often to sweep idle sessions")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EXPENSE_BOT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// Initialize dedup index
	slog.Info("Initializing dedup index...")
	index, err := receipt.NewBoltIndex(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize dedup index", "error", err)
		os.Exit(1)
	}
	defer index.Close()

	// Initialize extractor based on type
	var extractor extraction.Extractor
	switch *extractorType {
	case "gemini":
		apiKey := *geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
			os.Exit(1)
		}
		slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
		extractor, err = extraction.NewGemini(apiKey, *geminiModel)
		if err != nil {
			slog.Error("Failed to initialize Gemini", "error", err)
			os.Exit(1)
		}
	case "ollama":
		slog.Info("Initializing Ollama extractor...", "url", *ollamaURL, "model", *ollamaModel)
		extractor, err = extraction.NewOllama(*ollamaURL, *ollamaModel)
		if err != nil {
			slog.Error("Failed to initialize Ollama", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extractor type", "type", *extractorType, "valid", "gemini or ollama")
		os.Exit(1)
	}
	defer extractor.Close()

	// Initialize category rules
	rules := category.Default()
	if *rulesPath != "" {
		rules, err = category.Load(*rulesPath)
		if err != nil {
			slog.Error("Failed to load category rules", "path", *rulesPath, "error", err)
			os.Exit(1)
		}
	}

	// Initialize image uploader
	ctx := context.Background()
	var uploader receipt.Uploader
	switch *uploaderType {
	case "drive":
		if *driveFolder == "" {
			slog.Error("Drive folder ID is required. Set --drive-folder or use --uploader local")
			os.Exit(1)
		}
		slog.Info("Initializing Drive uploader...", "folder", *driveFolder)
		uploader, err = receipt.NewDriveUploader(ctx, *credentials, *driveFolder)
		if err != nil {
			slog.Error("Failed to initialize Drive uploader", "error", err)
			os.Exit(1)
		}
	case "local":
		slog.Info("Initializing local storage...", "path", *storagePath)
		uploader, err = receipt.NewLocalUploader(*storagePath)
		if err != nil {
			slog.Error("Failed to initialize local storage", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid uploader type", "type", *uploaderType, "valid", "drive or local")
		os.Exit(1)
	}

	// Initialize ledger
	if *sheetID == "" {
		slog.Error("Spreadsheet ID is required. Set --sheet-id flag or EXPENSE_BOT_SHEET_ID environment variable")
		os.Exit(1)
	}
	slog.Info("Initializing Sheets ledger...", "sheet", *sheetID)
	ledger, err := receipt.NewSheetsLedger(ctx, *credentials, *sheetID)
	if err != nil {
		slog.Error("Failed to initialize Sheets ledger", "error", err)
		os.Exit(1)
	}

	// Initialize conversation engine
	sender := webhook.NewSender(*kapsoURL, *kapsoKey)
	store := conversation.NewStore()
	scope := *dedupScope
	engine := conversation.NewEngine(conversation.Config{
		Store:     store,
		Extractor: extractor,
		Rules:     rules,
		Finalizer: receipt.NewFinalizer(uploader, ledger, index),
		Index:     index,
		Outbound:  sender.Deliver,
		Scope:     func(string) string { return scope },
	})

	reaper := conversation.NewReaper(store, *sessionTimeout, *reapInterval)
	reaper.Start(ctx)
	defer reaper.Stop()

	// Start webhook server in goroutine
	server := webhook.NewServer(engine, webhook.NewHTTPFetcher(), *verifyToken)
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Webhook server started", "address", fmt.Sprintf("http://localhost%s/webhook", addr), "version", version)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
