package status

import (
	"context"
	"log/slog"
	"strings"

	"github.com/WessleyAI/dealer-reconcile/engine/domain"
)

const (
	recallMarker     = "This vehicle is temporarily unavailable"
	statusInTransit  = "Rtl_Intrans"
	statusCourtesyCT = "EligRtlStkCT"
)

// Looker fetches live vehicle status. *Client implements it.
type Looker interface {
	Lookup(ctx context.Context, vin string) (*VehicleStatus, error)
}

// Classify maps a lookup outcome to a discrepancy label. The first matching
// rule wins; origin is the side the VIN was found on.
func Classify(vin string, origin domain.Origin, vs *VehicleStatus, lookupErr error) domain.Result {
	res := domain.Result{VIN: vin}
	switch name := vs.StatusName(); {
	case lookupErr != nil:
		res.Label = domain.LabelAPIFailed
	case strings.Contains(vs.RecallInfo(), recallMarker):
		res.Label = domain.LabelRecall
	case name == statusInTransit && origin == domain.OriginAggregator:
		res.Label = domain.LabelInTransit
	case name == statusCourtesyCT:
		res.Label = domain.LabelCourtesy
	case name != "":
		res.Label = domain.OtherStatusLabel(name)
	case origin == domain.OriginAggregator:
		res.Label = domain.LabelExclusiveDealer
	default:
		res.Label = domain.LabelExclusiveHomeNet
	}
	return res
}

// Classifier looks a VIN up and labels it.
type Classifier struct {
	looker Looker
	log    *slog.Logger
}

// NewClassifier creates a Classifier over looker.
func NewClassifier(looker Looker, log *slog.Logger) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{looker: looker, log: log}
}

// Classify queries the status API for vin and returns its label. Lookup
// failures become "API request failed" and are logged, never returned. This
// includes a 2xx response whose body is not valid JSON: that VIN is labelled
// as failed and the rest of the dealership's job carries on.
func (c *Classifier) Classify(ctx context.Context, vin string, origin domain.Origin) domain.Result {
	vs, err := c.looker.Lookup(ctx, vin)
	if err != nil {
		c.log.Error("status lookup failed", "vin", vin, "origin", origin.String(), "error", err)
	}
	return Classify(vin, origin, vs, err)
}
