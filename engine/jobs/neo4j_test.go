package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/WessleyAI/dealer-reconcile/engine/domain"
)

type fakeResult struct {
	records []*neo4j.Record
	i       int
	err     error
}

func (f *fakeResult) Next(context.Context) bool {
	if f.i >= len(f.records) {
		return false
	}
	f.i++
	return true
}

func (f *fakeResult) Record() *neo4j.Record { return f.records[f.i-1] }
func (f *fakeResult) Err() error            { return f.err }

type fakeSession struct {
	res    *fakeResult
	runErr error
	cypher string
	closed bool
}

func (s *fakeSession) Run(_ context.Context, cypher string, _ map[string]any) (result, error) {
	s.cypher = cypher
	if s.runErr != nil {
		return nil, s.runErr
	}
	return s.res, nil
}

func (s *fakeSession) Close(context.Context) error {
	s.closed = true
	return nil
}

func dealerRecord(id, crm, agg any) *neo4j.Record {
	return &neo4j.Record{
		Keys:   []string{"dealer_id", "crm_feed_url", "aggregator_feed_url"},
		Values: []any{id, crm, agg},
	}
}

func sourceWith(sess *fakeSession) *Neo4jSource {
	s := NewNeo4jSource(nil, "")
	s.newSession = func(context.Context) runner { return sess }
	return s
}

func TestNeo4jSourceLoad(t *testing.T) {
	sess := &fakeSession{res: &fakeResult{records: []*neo4j.Record{
		dealerRecord("a-dealer", "https://f.example/crm/a.csv", "https://f.example/agg.csv"),
		dealerRecord("b-dealer", "https://f.example/crm/b.csv", "https://f.example/agg.csv"),
	}}}

	list, err := sourceWith(sess).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].DealerID != "a-dealer" || list[1].CRMFeedURL != "https://f.example/crm/b.csv" {
		t.Fatalf("unexpected jobs: %+v", list)
	}
	if !strings.Contains(sess.cypher, "MATCH (d:Dealership)") || !sess.closed {
		t.Fatal("expected dealership query and closed session")
	}
}

func TestNeo4jSourceInvalidRecord(t *testing.T) {
	sess := &fakeSession{res: &fakeResult{records: []*neo4j.Record{
		dealerRecord("a-dealer", nil, "https://f.example/agg.csv"),
	}}}
	_, err := sourceWith(sess).Load(context.Background())
	if !errors.Is(err, domain.ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob, got %v", err)
	}
}

func TestNeo4jSourceErrors(t *testing.T) {
	boom := errors.New("connection refused")
	if _, err := sourceWith(&fakeSession{runErr: boom}).Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected run error, got %v", err)
	}
	if _, err := sourceWith(&fakeSession{res: &fakeResult{err: boom}}).Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected result error, got %v", err)
	}
}
