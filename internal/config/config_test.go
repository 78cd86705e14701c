package config

import (
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "OAUTH_REDIRECT_URL",
		"SESSION_SECRET", "DEMO_MODE", "DRIVE_ROOT_FOLDER_ID", "LISTEN_ADDR",
		"STATE_PATH", "GEMINI_API_KEY", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_CLIENT_ID", "client-id")
		t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
		t.Setenv("OAUTH_REDIRECT_URL", "http://localhost:8080/api/auth/callback")
		t.Setenv("SESSION_SECRET", "secret")
		t.Setenv("TELEGRAM_CHAT_ID", "12345")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.GoogleClientID != "client-id" {
			t.Errorf("Expected GoogleClientID 'client-id', got '%s'", cfg.GoogleClientID)
		}
		if cfg.ListenAddr != ":8080" {
			t.Errorf("Expected default ListenAddr ':8080', got '%s'", cfg.ListenAddr)
		}
		if cfg.DriveRootFolderID != "root" {
			t.Errorf("Expected default DriveRootFolderID 'root', got '%s'", cfg.DriveRootFolderID)
		}
		if cfg.StatePath != "data/harmony.db" {
			t.Errorf("Expected default StatePath 'data/harmony.db', got '%s'", cfg.StatePath)
		}
		if cfg.TelegramChatID != 12345 {
			t.Errorf("Expected TelegramChatID 12345, got %d", cfg.TelegramChatID)
		}
	})

	t.Run("MissingClientID", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
		t.Setenv("OAUTH_REDIRECT_URL", "http://localhost/cb")
		t.Setenv("SESSION_SECRET", "secret")

		if _, err := NewFromEnv(); err == nil {
			t.Error("Expected error for missing GOOGLE_CLIENT_ID")
		}
	})

	t.Run("MissingSessionSecret", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DEMO_MODE", "true")

		if _, err := NewFromEnv(); err == nil {
			t.Error("Expected error for missing SESSION_SECRET even in demo mode")
		}
	})

	t.Run("DemoModeSkipsGoogleCredentials", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DEMO_MODE", "true")
		t.Setenv("SESSION_SECRET", "secret")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !cfg.DemoMode {
			t.Error("Expected DemoMode to be true")
		}
	})

	t.Run("InvalidChatID", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DEMO_MODE", "true")
		t.Setenv("SESSION_SECRET", "secret")
		t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")

		if _, err := NewFromEnv(); err == nil {
			t.Error("Expected error for invalid TELEGRAM_CHAT_ID")
		}
	})
}
