package report

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/dealer-reconcile/engine/domain"
	"github.com/WessleyAI/dealer-reconcile/pkg/natsutil"
)

// DefaultSubject is where reports are published unless configured otherwise.
const DefaultSubject = "dealer.reconcile.reports"

// NATSSink publishes each report as JSON on a subject.
type NATSSink struct {
	nc      *nats.Conn
	subject string
}

// NewNATSSink creates a NATSSink. An empty subject uses DefaultSubject.
func NewNATSSink(nc *nats.Conn, subject string) *NATSSink {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSink{nc: nc, subject: subject}
}

// Emit publishes r and flushes so delivery problems surface here.
func (s *NATSSink) Emit(ctx context.Context, r domain.Report) error {
	if err := natsutil.Publish(ctx, s.nc, s.subject, r); err != nil {
		return fmt.Errorf("publish report %s: %w", r.DealerID, err)
	}
	if err := s.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush report %s: %w", r.DealerID, err)
	}
	return nil
}
