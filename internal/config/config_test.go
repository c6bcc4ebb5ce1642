package config

import (
	"clipboard-sync/internal/search"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDBPath, EnvAPIPort, EnvAPIURL} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Daemon.Listen != "127.0.0.1:7890" {
		t.Errorf("listen = %q", cfg.Daemon.Listen)
	}
	if cfg.Daemon.PollInterval != 500*time.Millisecond ||
		cfg.Daemon.DedupeWindow != 10*time.Second ||
		cfg.Daemon.IgnoreWindow != 1500*time.Millisecond {
		t.Errorf("unexpected daemon durations %+v", cfg.Daemon)
	}
	if cfg.Daemon.MaxHistory != 0 {
		t.Errorf("max history = %d", cfg.Daemon.MaxHistory)
	}
	if !strings.HasSuffix(cfg.Daemon.DBPath, filepath.Join("clipboard-sync", "clips.db")) {
		t.Errorf("db path = %q", cfg.Daemon.DBPath)
	}

	if cfg.Client.APIURL != "http://127.0.0.1:7890" || cfg.Client.WSURL != "ws://127.0.0.1:7890/ws" {
		t.Errorf("client urls = %q %q", cfg.Client.APIURL, cfg.Client.WSURL)
	}
	if cfg.Client.LoadLimit != 200 || cfg.Client.CommandTimeout != 10*time.Second {
		t.Errorf("unexpected client settings %+v", cfg.Client)
	}
	if cfg.Client.Search != search.DefaultOptions() {
		t.Errorf("search options = %+v", cfg.Client.Search)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
[client]
api_url = "https://clips.example.com/"
load_limit = 50
command_timeout = "3s"
search_mode = "Fuzzy"
fuzzy_min_query = 4
fuzzy_min_score = 2

[daemon]
listen = "0.0.0.0:9000"
db_path = "/tmp/clips/test.db"
poll_interval = "250ms"
dedupe_window = "0s"
max_history = 500
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.APIURL != "https://clips.example.com" || cfg.Client.WSURL != "wss://clips.example.com/ws" {
		t.Errorf("client urls = %q %q", cfg.Client.APIURL, cfg.Client.WSURL)
	}
	want := search.Options{Mode: search.ModeFuzzy, MinFuzzyQuery: 4, MinFuzzyScore: 2}
	if cfg.Client.Search != want {
		t.Errorf("search = %+v, want %+v", cfg.Client.Search, want)
	}
	if cfg.Client.LoadLimit != 50 || cfg.Client.CommandTimeout != 3*time.Second {
		t.Errorf("unexpected client settings %+v", cfg.Client)
	}
	if cfg.Daemon.Listen != "0.0.0.0:9000" || cfg.Daemon.DBPath != "/tmp/clips/test.db" {
		t.Errorf("unexpected daemon settings %+v", cfg.Daemon)
	}
	if cfg.Daemon.PollInterval != 250*time.Millisecond || cfg.Daemon.DedupeWindow != 0 {
		t.Errorf("unexpected daemon durations %+v", cfg.Daemon)
	}
	// Unset keys keep their defaults
	if cfg.Daemon.IgnoreWindow != 1500*time.Millisecond {
		t.Errorf("ignore window = %v", cfg.Daemon.IgnoreWindow)
	}
	if cfg.Daemon.MaxHistory != 500 {
		t.Errorf("max history = %d", cfg.Daemon.MaxHistory)
	}
}

func TestLoad_WildcardListenDerivesLoopbackURL(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, "[daemon]\nlisten = \"0.0.0.0:9000\"\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Client.APIURL != "http://127.0.0.1:9000" {
		t.Errorf("api url = %q", cfg.Client.APIURL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvDBPath, "/tmp/override.db")
	t.Setenv(EnvAPIPort, "8123")

	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Daemon.DBPath != "/tmp/override.db" {
		t.Errorf("db path = %q", cfg.Daemon.DBPath)
	}
	if cfg.Daemon.Listen != "127.0.0.1:8123" || cfg.Client.APIURL != "http://127.0.0.1:8123" {
		t.Errorf("listen = %q, api url = %q", cfg.Daemon.Listen, cfg.Client.APIURL)
	}

	t.Setenv(EnvAPIURL, "http://10.0.0.2:7000")
	cfg, err = Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Client.APIURL != "http://10.0.0.2:7000" || cfg.Client.WSURL != "ws://10.0.0.2:7000/ws" {
		t.Errorf("client urls = %q %q", cfg.Client.APIURL, cfg.Client.WSURL)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad toml", "[client\n", "parse config"},
		{"bad duration", "[client]\ncommand_timeout = \"soon\"\n", "client.command_timeout"},
		{"zero poll", "[daemon]\npoll_interval = \"0s\"\n", "daemon.poll_interval"},
		{"bad mode", "[client]\nsearch_mode = \"regex\"\n", "client.search_mode"},
		{"bad listen", "[daemon]\nlisten = \"nowhere\"\n", "daemon.listen"},
		{"negative history", "[daemon]\nmax_history = -1\n", "daemon.max_history"},
		{"zero load limit", "[client]\nload_limit = 0\n", "client.load_limit"},
		{"bad scheme", "[client]\napi_url = \"ftp://host\"\n", "unsupported scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}
