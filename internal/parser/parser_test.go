package parser

import (
	"testing"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

const devExpressFixture = `<!DOCTYPE html>
<html>
<head><title>Grid</title></head>
<body>
<h1>GT3 Cup Season 4 Standings</h1>
<table id="sidebar"><tr><td>Navigation</td></tr></table>
<table id="ctl00_grid_DXMainTable" class="dxgvTable">
  <tr class="dxgvHeader"><td>Pos.</td><td>#</td><td>Driver</td><td>Class</td><td>Points</td><td>Gap</td></tr>
  <tr class="dxgvFilterRow"><td></td><td></td><td><input/></td><td></td><td></td><td></td></tr>
  <tr class="dxgvDataRow"><td>2</td><td>#7</td><td>N. Piquet</td><td>Pro</td><td>132</td><td>13</td></tr>
  <tr class="dxgvDataRow"><td>1</td><td>#12</td><td><img src="/badges/senna.png"/> A. Senna</td><td>Pro</td><td>145</td><td>-</td></tr>
  <tr class="dxgvDataRow"><td>3</td><td>#44</td><td>J. Villeneuve</td><td>Am</td><td>99</td><td>46</td></tr>
  <tr class="dxgvPagerRow"><td colspan="6">Page 1 of 3</td></tr>
</table>
</body>
</html>`

func TestDevExpressParse(t *testing.T) {
	t.Parallel()

	page := standings.Page{
		FinalURL: "https://league.example.com/standings.aspx",
		Body:     []byte(devExpressFixture),
	}
	league := standings.League{Name: "GT3 Cup", Slug: "gt3-cup", Kind: standings.SourceDevExpress}

	table, err := NewDevExpress().Parse(page, league)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if table.League != "gt3-cup" {
		t.Fatalf("expected league slug, got %q", table.League)
	}
	if table.Title != "GT3 Cup Season 4 Standings" {
		t.Fatalf("unexpected title %q", table.Title)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 data rows, got %d: %+v", len(table.Rows), table.Rows)
	}

	leader := table.Rows[0]
	if leader.Position != 1 || leader.Driver != "A. Senna" {
		t.Fatalf("expected rows sorted by position, got leader %+v", leader)
	}
	if leader.CarNumber != "12" {
		t.Fatalf("expected '#' prefix stripped from car number, got %q", leader.CarNumber)
	}
	if leader.Diff != "" {
		t.Fatalf("expected leader diff normalized to empty, got %q", leader.Diff)
	}
	if leader.BadgeURL != "https://league.example.com/badges/senna.png" {
		t.Fatalf("expected badge resolved against page URL, got %q", leader.BadgeURL)
	}
	if table.Rows[2].Position != 3 || table.Rows[2].Class != "Am" {
		t.Fatalf("unexpected last row %+v", table.Rows[2])
	}
}

const simGridFixture = `<html>
<head><title>Championship Standings | SimGrid</title></head>
<body>
<table class="results">
  <thead>
    <tr><th>#</th><th>Team / Driver</th><th>Split</th><th>Total</th><th>Gap to Leader</th></tr>
  </thead>
  <tbody>
    <tr><td>P1</td><td><img src="https://cdn.simgrid.example/flags/br.png"> A. Senna</td><td>Pro</td><td>145</td><td>—</td></tr>
    <tr><td>P2</td><td>N. Piquet</td><td>Pro</td><td>132</td><td>13</td></tr>
  </tbody>
</table>
</body>
</html>`

func TestSimGridParse(t *testing.T) {
	t.Parallel()

	page := standings.Page{
		FinalURL: "https://www.simgrid.example/championships/42",
		Body:     []byte(simGridFixture),
	}
	league := standings.League{Name: "ACC Championship", Slug: "acc", Kind: standings.SourceSimGrid}

	table, err := NewSimGrid().Parse(page, league)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Title != "Championship Standings | SimGrid" {
		t.Fatalf("unexpected title %q", table.Title)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}

	leader := table.Rows[0]
	if leader.Position != 1 {
		t.Fatalf("expected P1 parsed as position 1, got %d", leader.Position)
	}
	if leader.Driver != "A. Senna" {
		t.Fatalf("unexpected driver %q", leader.Driver)
	}
	if leader.Class != "Pro" {
		t.Fatalf("expected split column mapped to class, got %q", leader.Class)
	}
	if leader.Diff != "" {
		t.Fatalf("expected em-dash diff normalized to empty, got %q", leader.Diff)
	}
	if leader.BadgeURL != "https://cdn.simgrid.example/flags/br.png" {
		t.Fatalf("expected absolute badge kept as is, got %q", leader.BadgeURL)
	}
}

func TestParseEmptyGridFails(t *testing.T) {
	t.Parallel()

	body := `<table>
	  <tr class="dxgvHeader"><td>Pos</td><td>Driver</td></tr>
	  <tr class="dxgvEmptyDataRow"><td colspan="2">No data to display</td></tr>
	</table>`
	_, err := NewDevExpress().Parse(standings.Page{Body: []byte(body)}, standings.League{Slug: "x"})
	if err == nil {
		t.Fatal("expected error for grid without data rows")
	}
}

func TestParseNoResultsTable(t *testing.T) {
	t.Parallel()

	body := `<html><body><table><tr><td>just layout</td></tr></table></body></html>`
	_, err := NewSimGrid().Parse(standings.Page{Body: []byte(body)}, standings.League{Slug: "x"})
	if err == nil {
		t.Fatal("expected error when no table has position and driver headers")
	}
}

func TestMapHeadersPositionClaimsBareHash(t *testing.T) {
	t.Parallel()

	headers := []string{"#", "driver", "no", "points"}
	columns := mapHeaders(headers, devExpressVocab)

	if columns[FieldPosition] != 0 {
		t.Fatalf("expected '#' claimed by position, got %v", columns)
	}
	if columns[FieldCarNumber] != 2 {
		t.Fatalf("expected 'no' claimed by car number, got %v", columns)
	}
}

func TestParsePosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{in: "1", want: 1, ok: true},
		{in: "12.", want: 12, ok: true},
		{in: "P3", want: 3, ok: true},
		{in: "p10", want: 10, ok: true},
		{in: "", ok: false},
		{in: "0", ok: false},
		{in: "DNF", ok: false},
		{in: "1st", ok: false},
	}
	for _, tt := range tests {
		got, ok := parsePosition(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("parsePosition(%q) = %d,%v want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestForKind(t *testing.T) {
	t.Parallel()

	if _, err := ForKind(standings.SourceDevExpress); err != nil {
		t.Fatalf("devexpress: %v", err)
	}
	if _, err := ForKind(standings.SourceSimGrid); err != nil {
		t.Fatalf("simgrid: %v", err)
	}
	if _, err := ForKind(standings.SourceKind("excel")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
