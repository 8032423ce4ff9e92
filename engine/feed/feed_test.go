package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const crmCSV = "VIN,Type,Make\n1A2B3C,Used,Chevrolet\n4D5E6F,New,Chevrolet\n1A2B3C,Used,Chevrolet\n"

const aggCSV = `vin,type,dealer_id
1A2B3C,Used,garber
9X8Y7Z,Used,garber
7Q7Q7Q,Used,otherdealer
5N5N5N,New,garber
`

func TestParse(t *testing.T) {
	tbl, err := Parse(strings.NewReader(crmCSV))
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Header) != 3 || tbl.Header[0] != "VIN" {
		t.Fatalf("unexpected header: %v", tbl.Header)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[1]["Type"] != "New" {
		t.Fatalf("unexpected row: %v", tbl.Rows[1])
	}
}

func TestParseStripsBOM(t *testing.T) {
	tbl, err := Parse(strings.NewReader("\ufeffVIN,Type\nX1,Used\n"))
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Header[0] != "VIN" || CRMVINs(tbl).Len() != 1 {
		t.Fatalf("BOM not stripped: %q", tbl.Header[0])
	}
}

func TestParseEmptyBody(t *testing.T) {
	tbl, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(tbl.Rows) != 0 || len(tbl.Header) != 0 {
		t.Fatalf("expected empty table, got %+v", tbl)
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader("VIN,Type\n1A2B3C,Used,extra\n"))
	if err == nil {
		t.Fatal("expected error for ragged record")
	}
	_, err = Parse(strings.NewReader("VIN,Type\n\"unterminated,Used\n"))
	if err == nil {
		t.Fatal("expected error for bad quoting")
	}
}

func TestRequire(t *testing.T) {
	tbl, _ := Parse(strings.NewReader(crmCSV))
	if err := tbl.Require(CRMColumns...); err != nil {
		t.Fatalf("expected columns present, got %v", err)
	}
	if err := tbl.Require(AggregatorColumns...); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if err := (Table{}).Require("anything"); err != nil {
		t.Fatalf("empty table should pass, got %v", err)
	}
}

func TestCRMVINs(t *testing.T) {
	tbl, _ := Parse(strings.NewReader(crmCSV))
	set := CRMVINs(tbl)
	if set.Len() != 1 || !set.Has("1A2B3C") || set.Has("4D5E6F") {
		t.Fatalf("unexpected set: %v", set.Slice())
	}
}

func TestCRMVINsCaseSensitive(t *testing.T) {
	tbl, _ := Parse(strings.NewReader("VIN,Type\nA1,used\nA2,USED\nA3,Used\n"))
	if got := CRMVINs(tbl).Slice(); len(got) != 1 || got[0] != "A3" {
		t.Fatalf("expected only exact 'Used', got %v", got)
	}
}

func TestAggregatorVINs(t *testing.T) {
	tbl, _ := Parse(strings.NewReader(aggCSV))
	got := AggregatorVINs(tbl, "garber").Slice()
	if len(got) != 2 || got[0] != "1A2B3C" || got[1] != "9X8Y7Z" {
		t.Fatalf("unexpected VINs: %v", got)
	}
}

func TestAggregatorVINsIgnoresCRMColumns(t *testing.T) {
	// CRM-cased columns must not satisfy the aggregator filter.
	tbl, _ := Parse(strings.NewReader("VIN,Type,dealer_id\nA1,Used,garber\n"))
	if AggregatorVINs(tbl, "garber").Len() != 0 {
		t.Fatal("aggregator filter must use lowercase columns")
	}
}

func TestVINSet(t *testing.T) {
	s := NewVINSet("B", "A", "B", "C")
	if s.Len() != 3 {
		t.Fatalf("expected 3, got %d", s.Len())
	}
	got := s.Slice()
	if got[0] != "B" || got[1] != "A" || got[2] != "C" {
		t.Fatalf("order not preserved: %v", got)
	}
	got[0] = "Z"
	if s.Slice()[0] != "B" {
		t.Fatal("Slice must return a copy")
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crm.csv":
			w.Header().Set("Content-Type", "text/csv")
			io.WriteString(w, crmCSV)
		case "/broken.csv":
			io.WriteString(w, "VIN,Type\n1,Used,x\n")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, quietLogger())
	ctx := context.Background()

	t.Run("ok", func(t *testing.T) {
		tbl, err := f.Fetch(ctx, srv.URL+"/crm.csv")
		if err != nil {
			t.Fatal(err)
		}
		if len(tbl.Rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
		}
	})

	t.Run("not found", func(t *testing.T) {
		tbl, err := f.Fetch(ctx, srv.URL+"/missing.csv")
		if !errors.Is(err, ErrFeedUnavailable) {
			t.Fatalf("expected ErrFeedUnavailable, got %v", err)
		}
		if len(tbl.Rows) != 0 {
			t.Fatal("expected no rows")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := f.Fetch(ctx, srv.URL+"/broken.csv")
		if err == nil || errors.Is(err, ErrFeedUnavailable) {
			t.Fatalf("expected parse error, got %v", err)
		}
	})
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/crm.csv"
	srv.Close()

	_, err := NewFetcher(time.Second, quietLogger()).Fetch(context.Background(), url)
	if !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}
