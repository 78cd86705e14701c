package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the configuration for the application.
type Config struct {
	ListenAddr string

	// Google OAuth credentials for the family account.
	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	// Secret used to sign browser session tokens.
	SessionSecret string

	// Gemini key for the AI recipe importer. Optional: import is
	// disabled when unset.
	GeminiAPIKey string

	// Drive folder that holds the spreadsheet and uploaded images.
	DriveRootFolderID string

	// Path of the local SQLite state file.
	StatePath string

	// Demo mode serves seeded data and never touches Google.
	DemoMode bool

	// Telegram shopping-list push (optional).
	TelegramBotToken string
	TelegramChatID   int64

	Debug bool
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	redirectURL := os.Getenv("OAUTH_REDIRECT_URL")
	sessionSecret := os.Getenv("SESSION_SECRET")
	demoMode := os.Getenv("DEMO_MODE") == "true"

	if !demoMode {
		if clientID == "" {
			return nil, fmt.Errorf("GOOGLE_CLIENT_ID environment variable not set")
		}
		if clientSecret == "" {
			return nil, fmt.Errorf("GOOGLE_CLIENT_SECRET environment variable not set")
		}
		if redirectURL == "" {
			return nil, fmt.Errorf("OAUTH_REDIRECT_URL environment variable not set")
		}
	}
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable not set")
	}

	rootFolder := os.Getenv("DRIVE_ROOT_FOLDER_ID")
	if rootFolder == "" {
		rootFolder = "root"
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	statePath := os.Getenv("STATE_PATH")
	if statePath == "" {
		statePath = "data/harmony.db"
	}

	var chatID int64
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		chatID = parsed
	}

	return &Config{
		ListenAddr:         listenAddr,
		GoogleClientID:     clientID,
		GoogleClientSecret: clientSecret,
		OAuthRedirectURL:   redirectURL,
		SessionSecret:      sessionSecret,
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		DriveRootFolderID:  rootFolder,
		StatePath:          statePath,
		DemoMode:           demoMode,
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     chatID,
		Debug:              os.Getenv("DEBUG") == "true",
	}, nil
}
