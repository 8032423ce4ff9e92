// Package reconcile diffs the CRM and aggregator VIN sets for a dealership and
// labels every VIN, one job at a time.
package reconcile

import (
	"github.com/WessleyAI/dealer-reconcile/engine/domain"
	"github.com/WessleyAI/dealer-reconcile/engine/feed"
)

// Partition splits the union of two VIN sets into three disjoint groups.
type Partition struct {
	Appearing      []domain.VIN // in both, aggregator order
	AggregatorOnly []domain.VIN // aggregator order
	CRMOnly        []domain.VIN // CRM order

	origins map[domain.VIN]domain.Origin
}

// Diff computes appearing = A∩B, aggregatorOnly = A−B and crmOnly = B−A.
func Diff(aggregator, crm *feed.VINSet) Partition {
	p := Partition{origins: make(map[domain.VIN]domain.Origin, aggregator.Len()+crm.Len())}
	for _, v := range aggregator.Slice() {
		if crm.Has(v) {
			p.Appearing = append(p.Appearing, v)
			p.origins[v] = domain.OriginBoth
			continue
		}
		p.AggregatorOnly = append(p.AggregatorOnly, v)
		p.origins[v] = domain.OriginAggregator
	}
	for _, v := range crm.Slice() {
		if !aggregator.Has(v) {
			p.CRMOnly = append(p.CRMOnly, v)
			p.origins[v] = domain.OriginCRM
		}
	}
	return p
}

// Origin reports which side vin came from. Unknown VINs are treated as CRM-only.
func (p Partition) Origin(vin domain.VIN) domain.Origin {
	if o, ok := p.origins[vin]; ok {
		return o
	}
	return domain.OriginCRM
}

// Discrepancies returns the VINs to classify: aggregator-only, then CRM-only.
func (p Partition) Discrepancies() []domain.VIN {
	out := make([]domain.VIN, 0, len(p.AggregatorOnly)+len(p.CRMOnly))
	out = append(out, p.AggregatorOnly...)
	return append(out, p.CRMOnly...)
}
