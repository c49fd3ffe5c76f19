package render

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/i474232898/airline-rank-bot/internal/standings"
)

func intp(n int) *int { return &n }

func testSnapshot() standings.Snapshot {
	days := 40
	return standings.Snapshot{
		ReferenceID: 6076,
		Airlines: []standings.Airline{
			{ID: 1, Name: "Big Air", Abbr: "BIG", Owner: "Ann", TotalPilots: intp(1200), TotalFlights: intp(120000),
				FlightsLast30Days: intp(150), DaysToPass: &days, DaysToPassStr: "1 month, 10 days", Change: standings.ChangeUp},
			{ID: 6076, Name: "Crosswind", Abbr: "CCX", Owner: "Jo", TotalPilots: nil, TotalFlights: intp(100000),
				FlightsLast30Days: intp(300), DaysToPassStr: standings.NotApplicable, Change: standings.ChangeDown, Reference: true},
			{ID: 2, Name: "Small Air", Abbr: "SML", Owner: "Bo", TotalFlights: intp(50), Change: standings.ChangeUnknown},
		},
	}
}

func TestBuildTable(t *testing.T) {
	tbl := BuildTable(testSnapshot())

	if got := tbl.Header[6]; got != "Estimated Time Until CCX Passes" {
		t.Errorf("projection header = %q", got)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	if got := tbl.Rows[0][4]; got != "120,000" {
		t.Errorf("total flights cell = %q, want 120,000", got)
	}
	if got := tbl.Rows[1][3]; got != "N/A" {
		t.Errorf("missing pilots cell = %q, want N/A", got)
	}
	if got := tbl.Rows[2][5]; got != "N/A" {
		t.Errorf("missing 30-day cell = %q, want N/A", got)
	}
	if got := tbl.Rows[2][6]; got != "N/A" {
		t.Errorf("empty projection cell = %q, want N/A", got)
	}
	if !tbl.Reference[1] || tbl.Reference[0] {
		t.Errorf("reference flags = %v", tbl.Reference)
	}
}

func TestBuildTableWithoutReference(t *testing.T) {
	tbl := BuildTable(standings.Snapshot{ReferenceID: 99})
	if got := tbl.Header[6]; got != "Estimated Time Until Reference Passes" {
		t.Errorf("projection header = %q", got)
	}
}

func TestRenderPNG(t *testing.T) {
	r, err := NewTableRenderer()
	if err != nil {
		t.Fatalf("NewTableRenderer: %v", err)
	}

	var buf bytes.Buffer
	if err := r.Render(testSnapshot(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	b := img.Bounds()
	if want := rowHeight*4 + 2*margin; b.Dy() != want {
		t.Errorf("height = %d, want %d", b.Dy(), want)
	}
	if b.Dx() <= b.Dy() {
		t.Errorf("expected a wide table, got %dx%d", b.Dx(), b.Dy())
	}

	cr, cg, cb, _ := img.At(margin+3, margin+3).RGBA()
	if cr>>8 != 0x4a || cg>>8 != 0x7e || cb>>8 != 0xbb {
		t.Errorf("header pixel = #%02x%02x%02x, want #4a7ebb", cr>>8, cg>>8, cb>>8)
	}
}
