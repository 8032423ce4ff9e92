// Package feed fetches dealer inventory CSV feeds and turns them into VIN sets.
package feed

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ErrFeedUnavailable means the feed could not be fetched. Callers treat it
	// as an empty feed and keep going.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrMissingColumn means a required column is absent from the header.
	ErrMissingColumn = errors.New("missing column")
)

// Row maps column name to cell value for one CSV line.
type Row map[string]string

// Table is a parsed CSV feed.
type Table struct {
	Header []string
	Rows   []Row
}

// Require checks that every named column is present in the header.
// An empty table (no header at all) passes.
func (t Table) Require(cols ...string) error {
	if len(t.Header) == 0 {
		return nil
	}
	have := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		have[h] = true
	}
	for _, c := range cols {
		if !have[c] {
			return fmt.Errorf("%w: %q", ErrMissingColumn, c)
		}
	}
	return nil
}

// Fetcher downloads CSV feeds over HTTP.
type Fetcher struct {
	client *http.Client
	log    *slog.Logger
}

// NewFetcher creates a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

// Fetch GETs url and parses the body as CSV with a header row.
// A failed request or non-2xx status is logged and returned as
// ErrFeedUnavailable; malformed CSV is returned as a parse error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Table{}, fmt.Errorf("feed request %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Error("feed fetch failed", "url", url, "error", err)
		return Table{}, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.Error("feed fetch failed", "url", url, "status", resp.StatusCode)
		return Table{}, fmt.Errorf("%w: %s: status %d", ErrFeedUnavailable, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Error("feed read failed", "url", url, "error", err)
		return Table{}, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, url, err)
	}

	t, err := Parse(bytes.NewReader(body))
	if err != nil {
		return Table{}, fmt.Errorf("parse feed %s: %w", url, err)
	}
	return t, nil
}

// Parse reads CSV with the first record as the header. Short or long records
// are a parse error.
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, nil
	}
	if err != nil {
		return Table{}, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := Table{Header: header}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, err
		}
		row := make(Row, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
