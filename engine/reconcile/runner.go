package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WessleyAI/dealer-reconcile/engine/domain"
	"github.com/WessleyAI/dealer-reconcile/engine/feed"
	"github.com/WessleyAI/dealer-reconcile/pkg/fn"
)

// Fetcher retrieves a CSV feed. *feed.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (feed.Table, error)
}

// Classifier labels a discrepant VIN. *status.Classifier implements it.
type Classifier interface {
	Classify(ctx context.Context, vin string, origin domain.Origin) domain.Result
}

// Sink receives finished reports.
type Sink interface {
	Emit(ctx context.Context, r domain.Report) error
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Fetcher    Fetcher
	Classifier Classifier
	Sink       Sink
	Metrics    *Metrics
	Logger     *slog.Logger
	// Workers bounds concurrent status lookups within a job. <= 0 means 1.
	Workers int
}

// Runner processes dealership jobs one at a time.
type Runner struct {
	deps  Deps
	runID string
	now   func() time.Time
}

// NewRunner creates a Runner. Each Runner stamps its reports with a fresh run ID.
func NewRunner(deps Deps) *Runner {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Workers <= 0 {
		deps.Workers = 1
	}
	return &Runner{deps: deps, runID: uuid.NewString(), now: time.Now}
}

// RunID identifies this runner's reports.
func (r *Runner) RunID() string { return r.runID }

// Summary counts job outcomes for a run.
type Summary struct {
	Succeeded int
	Failed    int
}

// Run processes jobs sequentially. A failing job is logged with its dealer ID
// and skipped; it never stops the jobs after it. Run stops early only when ctx
// is cancelled.
func (r *Runner) Run(ctx context.Context, jobs []domain.Job) Summary {
	var sum Summary
	log := r.deps.Logger
	for _, job := range jobs {
		if ctx.Err() != nil {
			log.Warn("run cancelled", "remaining", len(jobs)-sum.Succeeded-sum.Failed)
			break
		}

		started := r.now()
		rep, err := r.safeRunJob(ctx, job)
		if err != nil {
			sum.Failed++
			r.deps.Metrics.job("failed", started)
			log.Error("error processing dealership", "dealer_id", job.DealerID, "error", err)
			continue
		}
		sum.Succeeded++
		r.deps.Metrics.job("ok", started)

		if r.deps.Sink != nil {
			if err := r.deps.Sink.Emit(ctx, rep); err != nil {
				log.Error("report emit failed", "dealer_id", job.DealerID, "error", err)
			}
		}
	}
	r.deps.Metrics.runDone()
	log.Info("run complete", "run_id", r.runID, "succeeded", sum.Succeeded, "failed", sum.Failed)
	return sum
}

// safeRunJob turns a panic inside a job into an error.
func (r *Runner) safeRunJob(ctx context.Context, job domain.Job) (rep domain.Report, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.RunJob(ctx, job)
}

type loadedFeed struct {
	table  feed.Table
	status domain.FeedStatus
}

// RunJob reconciles one dealership and returns its report. Results are
// ordered: appearing VINs, then aggregator-only, then CRM-only, each in feed
// order. Unavailable feeds are treated as empty and flagged in the report;
// malformed feeds fail the job.
func (r *Runner) RunJob(ctx context.Context, job domain.Job) (domain.Report, error) {
	started := r.now()
	log := r.deps.Logger.With("dealer_id", job.DealerID)

	crm, err := fn.TracedStage("feed.crm", r.loadStage("crm", feed.CRMColumns))(ctx, job.CRMFeedURL).Unwrap()
	if err != nil {
		return domain.Report{}, err
	}
	agg, err := fn.TracedStage("feed.aggregator", r.loadStage("aggregator", feed.AggregatorColumns))(ctx, job.AggregatorFeedURL).Unwrap()
	if err != nil {
		return domain.Report{}, err
	}

	part := Diff(feed.AggregatorVINs(agg.table, job.DealerID), feed.CRMVINs(crm.table))
	log.Info("feeds diffed",
		"appearing", len(part.Appearing),
		"aggregator_only", len(part.AggregatorOnly),
		"crm_only", len(part.CRMOnly),
	)

	results := fn.Map(part.Appearing, func(v domain.VIN) domain.Result {
		return domain.Result{VIN: v, Label: domain.LabelAppearing}
	})
	classified, err := fn.TracedStage("status.classify", r.classifyStage(part))(ctx, part.Discrepancies()).Unwrap()
	if err != nil {
		return domain.Report{}, err
	}
	results = append(results, classified...)

	for _, res := range results {
		r.deps.Metrics.result(res.Label)
	}

	return domain.Report{
		RunID:          r.runID,
		DealerID:       job.DealerID,
		CRMFeed:        crm.status,
		AggregatorFeed: agg.status,
		Results:        results,
		StartedAt:      started,
		Duration:       r.now().Sub(started),
	}, nil
}

func (r *Runner) loadStage(name string, cols []string) fn.Stage[string, loadedFeed] {
	return func(ctx context.Context, url string) fn.Result[loadedFeed] {
		t, err := r.deps.Fetcher.Fetch(ctx, url)
		if errors.Is(err, feed.ErrFeedUnavailable) {
			r.deps.Metrics.feedUnavailable(name)
			return fn.Ok(loadedFeed{status: domain.FeedUnavailable})
		}
		if err != nil {
			return fn.Err[loadedFeed](fmt.Errorf("%s feed: %w", name, err))
		}
		if err := t.Require(cols...); err != nil {
			return fn.Err[loadedFeed](fmt.Errorf("%s feed %s: %w", name, url, err))
		}
		st := domain.FeedOK
		if len(t.Rows) == 0 {
			st = domain.FeedEmpty
		}
		return fn.Ok(loadedFeed{table: t, status: st})
	}
}

func (r *Runner) classifyStage(part Partition) fn.Stage[[]domain.VIN, []domain.Result] {
	return func(ctx context.Context, vins []domain.VIN) fn.Result[[]domain.Result] {
		var (
			mu       sync.Mutex
			panicked error
		)
		out := fn.ParMap(vins, r.deps.Workers, func(_ int, vin domain.VIN) (res domain.Result) {
			start := r.now()
			defer func() {
				r.deps.Metrics.lookup(start)
				if p := recover(); p != nil {
					mu.Lock()
					if panicked == nil {
						panicked = fmt.Errorf("classify %s: panic: %v", vin, p)
					}
					mu.Unlock()
				}
			}()
			return r.deps.Classifier.Classify(ctx, vin, part.Origin(vin))
		})
		if panicked != nil {
			return fn.Err[[]domain.Result](panicked)
		}
		if err := ctx.Err(); err != nil {
			return fn.Err[[]domain.Result](fmt.Errorf("classify: %w", err))
		}
		return fn.Ok(out)
	}
}
