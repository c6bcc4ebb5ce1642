// Package config loads the shared configuration of clipd and clipctl.
package config

import (
	"clipboard-sync/internal/search"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	toml "github.com/pelletier/go-toml/v2"
)

const appDir = "clipboard-sync"

const (
	defaultListen         = "127.0.0.1:7890"
	defaultLoadLimit      = 200
	defaultCommandTimeout = "10s"
	defaultPollInterval   = "500ms"
	defaultDedupeWindow   = "10s"
	defaultIgnoreWindow   = "1500ms"
)

// Environment overrides
const (
	EnvDBPath  = "CLIPBOARD_DB_PATH"
	EnvAPIPort = "CLIPBOARD_API_PORT"
	EnvAPIURL  = "CLIPBOARD_API_URL"
)

type Config struct {
	Client Client
	Daemon Daemon
}

// Client configures clipctl and the client session.
type Client struct {
	APIURL         string
	WSURL          string
	LoadLimit      int
	CommandTimeout time.Duration
	Search         search.Options
}

// Daemon configures clipd.
type Daemon struct {
	Listen       string
	DBPath       string
	PIDPath      string
	PollInterval time.Duration
	DedupeWindow time.Duration
	IgnoreWindow time.Duration
	MaxHistory   int
}

type rawConfig struct {
	Client struct {
		APIURL         string `toml:"api_url"`
		WSURL          string `toml:"ws_url"`
		LoadLimit      int    `toml:"load_limit"`
		CommandTimeout string `toml:"command_timeout"`
		SearchMode     string `toml:"search_mode"`
		FuzzyMinQuery  int    `toml:"fuzzy_min_query"`
		FuzzyMinScore  int    `toml:"fuzzy_min_score"`
	} `toml:"client"`
	Daemon struct {
		Listen       string `toml:"listen"`
		DBPath       string `toml:"db_path"`
		PIDPath      string `toml:"pid_path"`
		PollInterval string `toml:"poll_interval"`
		DedupeWindow string `toml:"dedupe_window"`
		IgnoreWindow string `toml:"ignore_window"`
		MaxHistory   int    `toml:"max_history"`
	} `toml:"daemon"`
}

func defaults() rawConfig {
	var raw rawConfig
	opts := search.DefaultOptions()
	raw.Client.LoadLimit = defaultLoadLimit
	raw.Client.CommandTimeout = defaultCommandTimeout
	raw.Client.SearchMode = string(opts.Mode)
	raw.Client.FuzzyMinQuery = opts.MinFuzzyQuery
	raw.Client.FuzzyMinScore = opts.MinFuzzyScore
	raw.Daemon.Listen = defaultListen
	raw.Daemon.PollInterval = defaultPollInterval
	raw.Daemon.DedupeWindow = defaultDedupeWindow
	raw.Daemon.IgnoreWindow = defaultIgnoreWindow
	return raw
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, "config.toml")
}

// Load reads the config at path, falling back to defaults when the file is
// missing, then applies environment overrides.
func Load(path string) (Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath()
	}
	resolved, err := expandPath(path)
	if err != nil {
		return Config{}, err
	}

	raw := defaults()

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", resolved, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file, run on defaults
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	applyEnv(&raw)
	return raw.resolve()
}

func applyEnv(raw *rawConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDBPath)); v != "" {
		raw.Daemon.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIPort)); v != "" {
		host, _, err := net.SplitHostPort(raw.Daemon.Listen)
		if err != nil {
			host = "127.0.0.1"
		}
		raw.Daemon.Listen = net.JoinHostPort(host, v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		raw.Client.APIURL = v
	}
}

func (raw rawConfig) resolve() (Config, error) {
	var cfg Config
	var err error

	// Daemon
	d := &cfg.Daemon
	d.Listen = strings.TrimSpace(raw.Daemon.Listen)
	_, port, splitErr := net.SplitHostPort(d.Listen)
	if splitErr != nil {
		return Config{}, fmt.Errorf("daemon.listen %q: %w", d.Listen, splitErr)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return Config{}, fmt.Errorf("daemon.listen %q: invalid port", d.Listen)
	}

	d.DBPath = strings.TrimSpace(raw.Daemon.DBPath)
	if d.DBPath == "" {
		d.DBPath = filepath.Join(xdg.DataHome, appDir, "clips.db")
	}
	if d.DBPath, err = expandPath(d.DBPath); err != nil {
		return Config{}, err
	}

	d.PIDPath = strings.TrimSpace(raw.Daemon.PIDPath)
	if d.PIDPath == "" {
		d.PIDPath = filepath.Join(xdg.StateHome, appDir, "clipd.pid")
	}
	if d.PIDPath, err = expandPath(d.PIDPath); err != nil {
		return Config{}, err
	}

	if d.PollInterval, err = parseDuration("daemon.poll_interval", raw.Daemon.PollInterval, true); err != nil {
		return Config{}, err
	}
	if d.DedupeWindow, err = parseDuration("daemon.dedupe_window", raw.Daemon.DedupeWindow, false); err != nil {
		return Config{}, err
	}
	if d.IgnoreWindow, err = parseDuration("daemon.ignore_window", raw.Daemon.IgnoreWindow, false); err != nil {
		return Config{}, err
	}
	if raw.Daemon.MaxHistory < 0 {
		return Config{}, fmt.Errorf("daemon.max_history must not be negative")
	}
	d.MaxHistory = raw.Daemon.MaxHistory

	// Client
	c := &cfg.Client
	c.APIURL = strings.TrimRight(strings.TrimSpace(raw.Client.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = "http://" + loopback(d.Listen)
	}
	c.WSURL = strings.TrimSpace(raw.Client.WSURL)
	if c.WSURL == "" {
		if c.WSURL, err = WSURL(c.APIURL); err != nil {
			return Config{}, err
		}
	}

	if raw.Client.LoadLimit <= 0 {
		return Config{}, fmt.Errorf("client.load_limit must be positive")
	}
	c.LoadLimit = raw.Client.LoadLimit

	if c.CommandTimeout, err = parseDuration("client.command_timeout", raw.Client.CommandTimeout, false); err != nil {
		return Config{}, err
	}

	mode, err := search.ParseMode(raw.Client.SearchMode)
	if err != nil {
		return Config{}, fmt.Errorf("client.search_mode: %w", err)
	}
	c.Search = search.Options{
		Mode:          mode,
		MinFuzzyQuery: raw.Client.FuzzyMinQuery,
		MinFuzzyScore: raw.Client.FuzzyMinScore,
	}

	return cfg, nil
}

// loopback rewrites a wildcard listen address into one a client can dial.
func loopback(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

// WSURL derives the push socket URL from the daemon's HTTP URL.
func WSURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("client.api_url %q is not a valid URL", apiURL)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("client.api_url %q: unsupported scheme %q", apiURL, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func parseDuration(key, value string, positive bool) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 || (positive && d == 0) {
		return 0, fmt.Errorf("%s: %s is out of range", key, value)
	}
	return d, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
