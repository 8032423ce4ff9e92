package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/WessleyAI/dealer-reconcile/engine/status"
)

// Config holds flag and environment configuration. Flags win over env.
type Config struct {
	JobsFile string

	Neo4jURL  string
	Neo4jUser string
	Neo4jPass string
	Neo4jDB   string

	NATSURL     string
	NATSSubject string
	JSONOut     bool

	StatusURL   string
	PostalCode  string
	Workers     int
	Timeout     time.Duration
	FeedTimeout time.Duration
	Rate        float64

	MetricsPort int
	LogLevel    string
	LogFormat   string
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(getenv func(string) string, key string, fallback int) int {
	if n, err := strconv.Atoi(getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envDuration(getenv func(string) string, key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getenv(key)); err == nil {
		return d
	}
	return fallback
}

func envFloat(getenv func(string) string, key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(getenv(key), 64); err == nil {
		return f
	}
	return fallback
}

// loadConfig parses args with environment fallbacks. Usage and flag errors
// are written to out.
func loadConfig(args []string, getenv func(string) string, out io.Writer) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: reconcile [flags]")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.JobsFile, "jobs", getenv("RECONCILE_JOBS_FILE"), "YAML/JSON dealership list")
	fs.StringVar(&cfg.Neo4jURL, "neo4j", getenv("NEO4J_URL"), "Neo4j URL to load (:Dealership) jobs from")
	fs.StringVar(&cfg.Neo4jUser, "neo4j-user", envOr(getenv, "NEO4J_USER", "neo4j"), "Neo4j username")
	fs.StringVar(&cfg.Neo4jPass, "neo4j-pass", getenv("NEO4J_PASS"), "Neo4j password")
	fs.StringVar(&cfg.Neo4jDB, "neo4j-db", getenv("NEO4J_DATABASE"), "Neo4j database (default: server default)")
	fs.StringVar(&cfg.NATSURL, "nats", getenv("NATS_URL"), "NATS URL to publish reports to (empty = off)")
	fs.StringVar(&cfg.NATSSubject, "subject", envOr(getenv, "NATS_SUBJECT", "dealer.reconcile.reports"), "NATS subject for reports")
	fs.BoolVar(&cfg.JSONOut, "json", getenv("RECONCILE_JSON") == "1", "write reports as JSON lines to stdout")
	fs.StringVar(&cfg.StatusURL, "status-url", envOr(getenv, "STATUS_API_URL", status.DefaultBaseURL), "vehicle status API base URL")
	fs.StringVar(&cfg.PostalCode, "postal-code", envOr(getenv, "STATUS_POSTAL_CODE", "48640"), "postal code sent to the status API")
	fs.IntVar(&cfg.Workers, "workers", envInt(getenv, "RECONCILE_WORKERS", 4), "concurrent status lookups per dealership")
	fs.DurationVar(&cfg.Timeout, "timeout", envDuration(getenv, "STATUS_TIMEOUT", 15*time.Second), "per-attempt status API timeout")
	fs.DurationVar(&cfg.FeedTimeout, "feed-timeout", envDuration(getenv, "FEED_TIMEOUT", 60*time.Second), "feed download timeout")
	fs.Float64Var(&cfg.Rate, "rate", envFloat(getenv, "STATUS_RATE", 5), "status API requests per second (0 = unlimited)")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", envInt(getenv, "METRICS_PORT", 0), "serve /metrics on this port (0 = off)")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr(getenv, "LOG_LEVEL", "info"), "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr(getenv, "LOG_FORMAT", "text"), "text or json")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Workers < 1 {
		return Config{}, fmt.Errorf("-workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.Timeout <= 0 || cfg.FeedTimeout <= 0 {
		return Config{}, fmt.Errorf("timeouts must be positive")
	}
	if cfg.Rate < 0 {
		return Config{}, fmt.Errorf("-rate must not be negative")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("unknown -log-format %q", cfg.LogFormat)
	}
	return cfg, nil
}

func newLogger(cfg Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

