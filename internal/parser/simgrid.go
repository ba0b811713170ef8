package parser

import (
	"fmt"
	"sort"

	"github.com/PuerkitoBio/goquery"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// simGridVocab covers the header spellings SimGrid uses on championship and
// event results pages.
var simGridVocab = map[Field][]string{
	FieldPosition:  {"pos", "position", "#"},
	FieldDriver:    {"driver", "name", "team / driver", "competitor"},
	FieldPoints:    {"points", "pts", "total"},
	FieldClass:     {"class", "car class", "split", "division"},
	FieldCarNumber: {"no", "num", "number", "car"},
	FieldDiff:      {"gap", "diff", "behind", "interval", "gap to leader"},
}

// SimGrid parses the results table on a SimGrid page.
type SimGrid struct{}

// NewSimGrid returns a SimGrid results parser.
func NewSimGrid() *SimGrid {
	return &SimGrid{}
}

// Parse locates the results table and extracts its rows. SimGrid pages use
// a regular thead/tbody layout; badge images sit inside the driver cell and
// are referenced relatively, so they resolve against the page URL.
func (p *SimGrid) Parse(page standings.Page, league standings.League) (standings.Table, error) {
	doc, base, err := loadDocument(page)
	if err != nil {
		return standings.Table{}, err
	}

	match, err := findResultsTable(doc, simGridVocab)
	if err != nil {
		return standings.Table{}, fmt.Errorf("simgrid results: %w", err)
	}

	var rows []standings.Row
	body := match.table.Find("tbody tr")
	if body.Length() == 0 {
		body = match.table.Find("tr")
	}
	body.Each(func(_ int, tr *goquery.Selection) {
		if tr.IsSelection(match.header) {
			return
		}
		row, ok := buildRow(rowCells(tr), match.columns, base)
		if !ok {
			return
		}
		rows = append(rows, row)
	})
	if len(rows) == 0 {
		return standings.Table{}, fmt.Errorf("simgrid results: %w", standings.ErrEmptyTable)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })

	title := pageTitle(doc)
	if title == "" {
		title = league.Name
	}
	return standings.Table{
		League:    league.Slug,
		Title:     title,
		SourceURL: page.FinalURL,
		Rows:      rows,
	}, nil
}
