package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// devExpressVocab covers the header spellings seen across DevExpress-rendered
// ASP.NET league grids.
var devExpressVocab = map[Field][]string{
	FieldPosition:  {"pos", "position", "#", "p"},
	FieldDriver:    {"driver", "driver name", "name", "pilot"},
	FieldPoints:    {"points", "pts", "total", "total points"},
	FieldClass:     {"class", "car class", "category", "division"},
	FieldCarNumber: {"no", "num", "number", "car", "car no", "#"},
	FieldDiff:      {"diff", "gap", "behind", "interval"},
}

// DevExpress parses standings out of a DevExpress ASP.NET grid.
type DevExpress struct{}

// NewDevExpress returns a DevExpress grid parser.
func NewDevExpress() *DevExpress {
	return &DevExpress{}
}

// Parse locates the main grid table and extracts its data rows. DevExpress
// injects header, filter and pager rows into the same <table>; those are
// skipped by class name where present and otherwise dropped because they
// never yield a position plus driver.
func (p *DevExpress) Parse(page standings.Page, league standings.League) (standings.Table, error) {
	doc, base, err := loadDocument(page)
	if err != nil {
		return standings.Table{}, err
	}

	match, err := findResultsTable(doc, devExpressVocab)
	if err != nil {
		return standings.Table{}, fmt.Errorf("devexpress grid: %w", err)
	}

	var rows []standings.Row
	match.table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.IsSelection(match.header) || isChromeRow(tr) {
			return
		}
		row, ok := buildRow(rowCells(tr), match.columns, base)
		if !ok {
			return
		}
		rows = append(rows, row)
	})
	if len(rows) == 0 {
		return standings.Table{}, fmt.Errorf("devexpress grid: %w", standings.ErrEmptyTable)
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

// isChromeRow reports whether the row is DevExpress grid chrome rather than
// data: header, filter, pager, group and empty-data rows all carry a dxgv*
// class naming their role.
func isChromeRow(tr *goquery.Selection) bool {
	class, _ := tr.Attr("class")
	lower := strings.ToLower(class)
	for _, marker := range []string{"header", "filter", "pager", "group", "empty"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
