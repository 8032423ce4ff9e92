// Package jobs loads the list of dealerships to reconcile from a file, an
// environment variable, Neo4j, or a literal list. Every loaded job is
// validated before it is returned.
package jobs

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/WessleyAI/dealer-reconcile/engine/domain"
)

// EnvVar holds an inline job document for EnvSource.
const EnvVar = "RECONCILE_JOBS"

// Source yields a work list.
type Source interface {
	Load(ctx context.Context) ([]domain.Job, error)
}

// Document is the on-disk job list format. JSON is accepted as well.
//
//	dealerships:
//	  - dealer_id: garberchevroletlinwood
//	    crm_feed_url: https://...
//	    aggregator_feed_url: https://...
type Document struct {
	Dealerships []domain.Job `yaml:"dealerships" json:"dealerships"`
}

// Parse decodes and validates a job document.
func Parse(data []byte) ([]domain.Job, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode job list: %w", err)
	}
	return Validate(doc.Dealerships)
}

// Validate checks every job, failing on the first invalid entry.
func Validate(list []domain.Job) ([]domain.Job, error) {
	for i, j := range list {
		if err := domain.ValidateJob(j); err != nil {
			return nil, fmt.Errorf("job %d (%s): %w", i, j.DealerID, err)
		}
	}
	return list, nil
}

// FileSource reads a YAML or JSON job document from Path.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context) ([]domain.Job, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read job list: %w", err)
	}
	return Parse(data)
}

// EnvSource reads a job document from an environment variable.
type EnvSource struct {
	Var string // defaults to EnvVar
}

func (s EnvSource) Load(_ context.Context) ([]domain.Job, error) {
	name := s.Var
	if name == "" {
		name = EnvVar
	}
	data, ok := os.LookupEnv(name)
	if !ok || data == "" {
		return nil, fmt.Errorf("%s is not set", name)
	}
	return Parse([]byte(data))
}

// Static is a literal work list.
type Static []domain.Job

func (s Static) Load(_ context.Context) ([]domain.Job, error) {
	return Validate(append([]domain.Job(nil), s...))
}

// Default is the built-in work list used when nothing else is configured.
var Default = Static{
	{
		DealerID:          "garberchevroletlinwood",
		CRMFeedURL:        "https://feeds.amp.auto/feeds/vinsolutions/garberchevroletlinwood-10117.csv",
		AggregatorFeedURL: "https://feeds.amp.auto/feeds/coxautomotive/garberchevroletlinwood.csv",
	},
}
