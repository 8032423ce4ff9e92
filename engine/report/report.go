// Package report delivers finished dealership reports: to the log, as NDJSON
// on a writer, or onto a NATS subject.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/WessleyAI/dealer-reconcile/engine/domain"
)

// Sink receives one report per successfully processed dealership.
type Sink interface {
	Emit(ctx context.Context, r domain.Report) error
}

// LogSink writes each result as a structured log line, then a summary.
type LogSink struct {
	Log *slog.Logger
}

// Emit implements Sink.
func (s LogSink) Emit(_ context.Context, r domain.Report) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("dealer_id", r.DealerID, "run_id", r.RunID)
	for _, res := range r.Results {
		log.Info("vin result", "vin", res.VIN, "result", res.Label)
	}

	counts := r.Counts()
	labels := make([]string, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	attrs := []any{
		"crm_feed", string(r.CRMFeed),
		"aggregator_feed", string(r.AggregatorFeed),
		"total", len(r.Results),
		"duration", r.Duration,
	}
	for _, l := range labels {
		attrs = append(attrs, l, counts[l])
	}
	log.Info("dealership reconciled", attrs...)
	return nil
}

// JSONSink writes each report as one JSON line.
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONSink creates a JSONSink over w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

// Emit implements Sink.
func (s *JSONSink) Emit(_ context.Context, r domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(r)
}

// Multi fans a report out to every sink and joins their errors.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(ctx context.Context, r domain.Report) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
