// Package domain defines the core types of the reconciliation pipeline:
// dealership jobs, VINs, discrepancy labels and per-job reports.
// It acts as the validation gate for job lists loaded from outside.
package domain

import "time"

// VIN is a vehicle identification number. No format validation is applied;
// feeds carry whatever the source systems hold.
type VIN = string

// Job is one dealership reconciliation pass.
type Job struct {
	DealerID          string `json:"dealer_id" yaml:"dealer_id"`
	CRMFeedURL        string `json:"crm_feed_url" yaml:"crm_feed_url"`
	AggregatorFeedURL string `json:"aggregator_feed_url" yaml:"aggregator_feed_url"`
}

// Origin records which feed(s) a VIN was found in.
type Origin int

const (
	OriginBoth       Origin = iota // present in both feeds
	OriginAggregator               // aggregator feed only
	OriginCRM                      // CRM feed only
)

func (o Origin) String() string {
	switch o {
	case OriginBoth:
		return "both"
	case OriginAggregator:
		return "aggregator"
	case OriginCRM:
		return "crm"
	default:
		return "unknown"
	}
}

// Result is a single VIN outcome. JSON keys match the report consumers expect.
type Result struct {
	VIN   VIN    `json:"VIN"`
	Label string `json:"Result"`
}

// FeedStatus describes how a feed fetch went.
type FeedStatus string

const (
	FeedOK          FeedStatus = "ok"
	FeedEmpty       FeedStatus = "empty"       // fetched, no rows
	FeedUnavailable FeedStatus = "unavailable" // fetch failed, treated as empty
)

// Report is the immutable output of one dealership job.
type Report struct {
	RunID          string        `json:"run_id"`
	DealerID       string        `json:"dealer_id"`
	CRMFeed        FeedStatus    `json:"crm_feed"`
	AggregatorFeed FeedStatus    `json:"aggregator_feed"`
	Results        []Result      `json:"results"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
}

// Counts tallies results by label.
func (r Report) Counts() map[string]int {
	out := make(map[string]int)
	for _, res := range r.Results {
		out[res.Label]++
	}
	return out
}
