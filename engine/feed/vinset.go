package feed

import (
	"github.com/WessleyAI/dealer-reconcile/engine/domain"
	"github.com/WessleyAI/dealer-reconcile/pkg/fn"
)

// Column names differ in case between the two feeds.
const (
	CRMColVIN  = "VIN"
	CRMColType = "Type"

	AggColVIN    = "vin"
	AggColType   = "type"
	AggColDealer = "dealer_id"

	usedType = "Used"
)

// CRMColumns and AggregatorColumns are the columns each feed must carry.
var (
	CRMColumns        = []string{CRMColVIN, CRMColType}
	AggregatorColumns = []string{AggColVIN, AggColType, AggColDealer}
)

// VINSet is a set of VINs that remembers first-seen order.
type VINSet struct {
	order []domain.VIN
	index map[domain.VIN]struct{}
}

// NewVINSet builds a set from vins, collapsing duplicates.
func NewVINSet(vins ...domain.VIN) *VINSet {
	s := &VINSet{index: make(map[domain.VIN]struct{}, len(vins))}
	for _, v := range vins {
		s.Add(v)
	}
	return s
}

// Add inserts v if absent.
func (s *VINSet) Add(v domain.VIN) {
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.order = append(s.order, v)
}

// Has reports membership.
func (s *VINSet) Has(v domain.VIN) bool {
	_, ok := s.index[v]
	return ok
}

// Len returns the number of distinct VINs.
func (s *VINSet) Len() int { return len(s.order) }

// Slice returns the VINs in first-seen order.
func (s *VINSet) Slice() []domain.VIN {
	out := make([]domain.VIN, len(s.order))
	copy(out, s.order)
	return out
}

// BuildSet keeps rows matching pred and collects the VIN column.
func BuildSet(rows []Row, vinCol string, pred func(Row) bool) *VINSet {
	kept := fn.Filter(rows, pred)
	return NewVINSet(fn.Map(kept, func(r Row) domain.VIN { return r[vinCol] })...)
}

// CRMVINs returns the used-vehicle VINs of a CRM feed.
func CRMVINs(t Table) *VINSet {
	return BuildSet(t.Rows, CRMColVIN, func(r Row) bool {
		return r[CRMColType] == usedType
	})
}

// AggregatorVINs returns the used-vehicle VINs listed for dealerID in an
// aggregator feed, which may cover several dealers.
func AggregatorVINs(t Table, dealerID string) *VINSet {
	return BuildSet(t.Rows, AggColVIN, func(r Row) bool {
		return r[AggColType] == usedType && r[AggColDealer] == dealerID
	})
}
