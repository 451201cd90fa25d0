package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./booktunes.db" {
			t.Errorf("expected database path ./booktunes.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8787 {
			t.Errorf("expected server port 8787, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Server.FrontendURL != "http://localhost:5173" {
			t.Errorf("expected frontend URL http://localhost:5173, got %s", config.Server.FrontendURL)
		}
	})

	t.Run("Addr", func(t *testing.T) {
		config := DefaultConfig()

		if addr := config.Server.Addr(); addr != "127.0.0.1:8787" {
			t.Errorf("expected 127.0.0.1:8787, got %s", addr)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("Missing File", func(t *testing.T) {
			_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
			if err == nil {
				t.Error("expected error for missing config file")
			}
		})

		t.Run("Invalid TOML", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte("not [valid toml"), 0644); err != nil {
				t.Fatal(err)
			}

			if _, err := LoadConfig(configPath); err == nil {
				t.Error("expected error for invalid TOML")
			}
		})

		t.Run("Environment Overrides", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := CreateConfigFile(configPath); err != nil {
				t.Fatal(err)
			}

			t.Setenv("SPOTIFY_CLIENT_ID", "env_client_id")
			t.Setenv("DATABASE_PATH", "/tmp/env.db")
			t.Setenv("PORT", "9001")

			config, err := LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if config.Credentials.Spotify.ClientID != "env_client_id" {
				t.Errorf("expected env override for client_id, got %s", config.Credentials.Spotify.ClientID)
			}
			if config.Database.Path != "/tmp/env.db" {
				t.Errorf("expected env override for database path, got %s", config.Database.Path)
			}
			if config.Server.Port != 9001 {
				t.Errorf("expected env override for port, got %d", config.Server.Port)
			}
		})
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("Complete Config", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.ClientID = "id"
			config.Credentials.Spotify.ClientSecret = "secret"

			if err := config.Validate(); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("Missing Spotify Credentials", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.ClientID = ""

			if err := config.Validate(); err == nil {
				t.Error("expected error for missing credentials")
			}
		})

		t.Run("Missing Identity URL", func(t *testing.T) {
			config := DefaultConfig()
			config.Credentials.Spotify.ClientID = "id"
			config.Credentials.Spotify.ClientSecret = "secret"
			config.Identity.URL = ""

			if err := config.Validate(); err == nil {
				t.Error("expected error for missing identity url")
			}
		})
	})
}
