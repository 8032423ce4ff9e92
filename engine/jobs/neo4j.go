package jobs

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/dealer-reconcile/engine/domain"
)

const dealershipsCypher = `MATCH (d:Dealership)
WHERE coalesce(d.active, true)
RETURN d.dealer_id AS dealer_id, d.crm_feed_url AS crm_feed_url, d.aggregator_feed_url AS aggregator_feed_url
ORDER BY d.dealer_id`

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

// Neo4jSource loads active (:Dealership) nodes.
type Neo4jSource struct {
	driver     neo4j.DriverWithContext
	database   string
	newSession func(ctx context.Context) runner // for testing
}

// NewNeo4jSource creates a source over driver. An empty database uses the server default.
func NewNeo4jSource(driver neo4j.DriverWithContext, database string) *Neo4jSource {
	return &Neo4jSource{driver: driver, database: database}
}

func (s *Neo4jSource) session(ctx context.Context) runner {
	if s.newSession != nil {
		return s.newSession(ctx)
	}
	return &sessionAdapter{sess: s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})}
}

func (s *Neo4jSource) Load(ctx context.Context) ([]domain.Job, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, dealershipsCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("query dealerships: %w", err)
	}

	var list []domain.Job
	for res.Next(ctx) {
		rec := res.Record()
		list = append(list, domain.Job{
			DealerID:          stringField(rec, "dealer_id"),
			CRMFeedURL:        stringField(rec, "crm_feed_url"),
			AggregatorFeedURL: stringField(rec, "aggregator_feed_url"),
		})
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("read dealerships: %w", err)
	}
	return Validate(list)
}

func stringField(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
