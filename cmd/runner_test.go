package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/quillsound/booktunes/internal/shared"
	mocks "github.com/quillsound/booktunes/internal/testing"
	"github.com/urfave/cli/v3"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("With Defaults", func(t *testing.T) {
			r := NewRunner(RunnerOpts{})

			if r.config == nil {
				t.Error("expected default config")
			}
			if r.logger == nil {
				t.Error("expected default logger")
			}
			if r.output != os.Stdout {
				t.Error("expected stdout as default output")
			}
			if r.httpClient == nil {
				t.Error("expected default http client")
			}
		})

		t.Run("With Options", func(t *testing.T) {
			buf := &bytes.Buffer{}
			config := shared.DefaultConfig()
			config.Server.Port = 9999

			r := NewRunner(RunnerOpts{Config: config, Output: buf})

			if r.config.Server.Port != 9999 {
				t.Errorf("expected provided config, got port %d", r.config.Server.Port)
			}
			if r.output != buf {
				t.Error("expected provided output writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		r := NewRunner(RunnerOpts{})
		commands := r.register()

		if len(commands) != 4 {
			t.Fatalf("expected 4 commands, got %d", len(commands))
		}

		names := map[string]bool{}
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, name := range []string{"serve", "setup", "status", "cache"} {
			if !names[name] {
				t.Errorf("expected command %s to be registered", name)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("Compact", func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewRunner(RunnerOpts{Output: buf})

			if err := r.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			var decoded map[string]string
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("expected valid JSON output: %v", err)
			}
			if decoded["key"] != "value" {
				t.Errorf("expected key=value, got %v", decoded)
			}
		})

		t.Run("Pretty", func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewRunner(RunnerOpts{Output: buf})

			if err := r.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(buf.String(), "\n  ") {
				t.Error("expected indented output")
			}
		})

		t.Run("Write Failure", func(t *testing.T) {
			r := NewRunner(RunnerOpts{Output: &mocks.FWriter{}})

			if err := r.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error from failing writer")
			}
		})

		t.Run("Unmarshalable Value", func(t *testing.T) {
			r := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			if err := r.writeJSON(func() {}, false); err == nil {
				t.Error("expected marshal error")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Output: buf})

		if err := r.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if buf.String() != "hello world" {
			t.Errorf("expected formatted output, got %q", buf.String())
		}

		t.Run("Write Failure", func(t *testing.T) {
			r := NewRunner(RunnerOpts{Output: &mocks.FWriter{}})

			if err := r.writePlain("hello"); err == nil {
				t.Error("expected error from failing writer")
			}
		})
	})

	t.Run("writePlainln", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := NewRunner(RunnerOpts{Output: buf})

		if err := r.writePlainln("done"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if buf.String() != "\ndone\n" {
			t.Errorf("expected padded line, got %q", buf.String())
		}
	})
}

func TestLoadConfig(t *testing.T) {
	runWithConfigFlag := func(t *testing.T, r *Runner, configPath string) {
		t.Helper()

		cmd := &cli.Command{
			Name:  "test",
			Flags: []cli.Flag{&cli.StringFlag{Name: "config"}},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				r.loadConfig(cmd)
				return nil
			},
		}

		if err := cmd.Run(context.Background(), []string{"test", "--config", configPath}); err != nil {
			t.Fatalf("failed to run command: %v", err)
		}
	}

	t.Run("Valid File", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := shared.CreateConfigFile(configPath); err != nil {
			t.Fatal(err)
		}

		r := NewRunner(RunnerOpts{})
		r.config.Server.Port = 9999

		runWithConfigFlag(t, r, configPath)

		if r.config.Server.Port != 8787 {
			t.Errorf("expected config reloaded from file, got port %d", r.config.Server.Port)
		}
	})

	t.Run("Missing File Keeps Current Config", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Server.Port = 9999
		r := NewRunner(RunnerOpts{Config: config})

		runWithConfigFlag(t, r, filepath.Join(t.TempDir(), "missing.toml"))

		if r.config.Server.Port != 9999 {
			t.Errorf("expected config to be kept, got port %d", r.config.Server.Port)
		}
	})
}
