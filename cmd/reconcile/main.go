// Command reconcile compares each dealership's CRM and aggregator used-vehicle
// feeds and labels every VIN missing from one side using the GM vehicle
// status API. Reports go to the log, and optionally to stdout as JSON and to NATS.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/dealer-reconcile/engine/feed"
	"github.com/WessleyAI/dealer-reconcile/engine/jobs"
	"github.com/WessleyAI/dealer-reconcile/engine/reconcile"
	"github.com/WessleyAI/dealer-reconcile/engine/report"
	"github.com/WessleyAI/dealer-reconcile/engine/status"
	"github.com/WessleyAI/dealer-reconcile/pkg/metrics"
	"github.com/WessleyAI/dealer-reconcile/pkg/mid"
)

const serviceName = "dealer-reconcile"

func main() {
	// A missing .env is fine; real environment always wins.
	_ = godotenv.Load()

	cfg, err := loadConfig(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile: %v\n", err)
		os.Exit(2)
	}
	log := newLogger(cfg, os.Stderr)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("reconcile failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	src, closeSrc, err := jobSource(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSrc()

	list, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	log.Info("jobs loaded", "count", len(list))

	sinks := report.Multi{report.LogSink{Log: log}}
	if cfg.JSONOut {
		sinks = append(sinks, report.NewJSONSink(os.Stdout))
	}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(serviceName))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		sinks = append(sinks, report.NewNATSSink(nc, cfg.NATSSubject))
		log.Info("publishing reports to NATS", "subject", cfg.NATSSubject)
	}

	reg := metrics.New()
	if cfg.MetricsPort > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           mid.Ops(serviceName, reg.Handler(), log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", "port", cfg.MetricsPort, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	client := status.NewClient(status.Config{
		BaseURL:       cfg.StatusURL,
		PostalCode:    cfg.PostalCode,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.Rate,
		Burst:         cfg.Workers,
	})
	runner := reconcile.NewRunner(reconcile.Deps{
		Fetcher:    feed.NewFetcher(cfg.FeedTimeout, log),
		Classifier: status.NewClassifier(client, log),
		Sink:       sinks,
		Metrics:    reconcile.NewMetrics(reg),
		Logger:     log,
		Workers:    cfg.Workers,
	})

	log.Info("starting run", "run_id", runner.RunID(), "workers", cfg.Workers)
	runner.Run(ctx, list)
	return nil
}

// jobSource picks the work list: file, then RECONCILE_JOBS, then Neo4j, then the built-in list.
func jobSource(ctx context.Context, cfg Config, log *slog.Logger) (jobs.Source, func(), error) {
	noop := func() {}
	switch {
	case cfg.JobsFile != "":
		log.Info("loading jobs from file", "path", cfg.JobsFile)
		return jobs.FileSource{Path: cfg.JobsFile}, noop, nil
	case os.Getenv(jobs.EnvVar) != "":
		log.Info("loading jobs from environment", "var", jobs.EnvVar)
		return jobs.EnvSource{}, noop, nil
	case cfg.Neo4jURL != "":
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return nil, nil, fmt.Errorf("neo4j connect: %w", err)
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			driver.Close(ctx)
			return nil, nil, fmt.Errorf("neo4j verify: %w", err)
		}
		log.Info("loading jobs from Neo4j", "url", cfg.Neo4jURL)
		return jobs.NewNeo4jSource(driver, cfg.Neo4jDB), func() { driver.Close(context.Background()) }, nil
	default:
		log.Warn("no job source configured, using built-in list", "count", len(jobs.Default))
		return jobs.Default, noop, nil
	}
}

