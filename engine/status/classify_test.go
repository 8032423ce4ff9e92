package status

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/WessleyAI/dealer-reconcile/engine/domain"
)

func withStatus(name string) *VehicleStatus {
	return &VehicleStatus{InventoryStatus: &InventoryStatus{Name: name}}
}

func TestClassify(t *testing.T) {
	recall := &VehicleStatus{
		MathBox:         &MathBox{RecallInfo: "This vehicle is temporarily unavailable due to an open recall"},
		InventoryStatus: &InventoryStatus{Name: "EligRtlStkCT"},
	}
	cases := []struct {
		name   string
		origin domain.Origin
		vs     *VehicleStatus
		err    error
		want   string
	}{
		{"api failure", domain.OriginAggregator, nil, errors.New("http 500"), "API request failed"},
		{"api failure wins over body", domain.OriginCRM, recall, errors.New("x"), "API request failed"},
		{"recall", domain.OriginCRM, recall, nil, "Vehicle with Recall"},
		{"in transit aggregator", domain.OriginAggregator, withStatus("Rtl_Intrans"), nil, "In Transit - Not expected in HomeNet"},
		{"in transit crm", domain.OriginCRM, withStatus("Rtl_Intrans"), nil, "Other Inventory Status: Rtl_Intrans"},
		{"courtesy aggregator", domain.OriginAggregator, withStatus("EligRtlStkCT"), nil, "Courtesy Vehicle"},
		{"courtesy crm", domain.OriginCRM, withStatus("EligRtlStkCT"), nil, "Courtesy Vehicle"},
		{"other status", domain.OriginAggregator, withStatus("SomethingElse"), nil, "Other Inventory Status: SomethingElse"},
		{"no status aggregator", domain.OriginAggregator, &VehicleStatus{}, nil, "Exclusive to Dealer.com Website"},
		{"no status crm", domain.OriginCRM, &VehicleStatus{}, nil, "Exclusive to HomeNet"},
		{"empty status name", domain.OriginCRM, withStatus(""), nil, "Exclusive to HomeNet"},
		{"recall text elsewhere", domain.OriginAggregator, &VehicleStatus{MathBox: &MathBox{RecallInfo: "no recall"}}, nil, "Exclusive to Dealer.com Website"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify("1G1ZD5ST0LF000001", tc.origin, tc.vs, tc.err)
			if got.VIN != "1G1ZD5ST0LF000001" || got.Label != tc.want {
				t.Fatalf("got %+v, want label %q", got, tc.want)
			}
		})
	}
}

type fakeLooker struct {
	vs  *VehicleStatus
	err error
}

func (f fakeLooker) Lookup(context.Context, string) (*VehicleStatus, error) { return f.vs, f.err }

func TestClassifierUsesLooker(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	c := NewClassifier(fakeLooker{vs: withStatus("EligRtlStkCT")}, log)
	if got := c.Classify(context.Background(), "V1", domain.OriginCRM); got.Label != domain.LabelCourtesy {
		t.Fatalf("got %q", got.Label)
	}

	c = NewClassifier(fakeLooker{err: &HTTPError{VIN: "V2", Code: 404}}, log)
	if got := c.Classify(context.Background(), "V2", domain.OriginAggregator); got.Label != domain.LabelAPIFailed {
		t.Fatalf("got %q", got.Label)
	}
}

func TestTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&HTTPError{Code: 500}, true},
		{&HTTPError{Code: 503}, true},
		{&HTTPError{Code: 429}, true},
		{&HTTPError{Code: 404}, false},
		{ErrTransport, true},
		{context.Canceled, false},
		{errors.New("decode"), false},
	}
	for _, tc := range cases {
		if got := Transient(tc.err); got != tc.want {
			t.Errorf("Transient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
