// Package parser extracts normalized standings tables from league HTML.
//
// Both supported sources render standings as a plain HTML table, but neither
// guarantees stable markup: DevExpress grids carry generated ids and inject
// filter/pager rows, and SimGrid reorders columns between seasons. The
// parsers therefore locate the results table by scoring header cells against
// a per-source vocabulary and map each matched header to a semantic field.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// Field is a semantic standings column.
type Field int

// Semantic fields a header cell can map to.
const (
	FieldPosition Field = iota
	FieldDriver
	FieldPoints
	FieldClass
	FieldCarNumber
	FieldDiff
)

// claimOrder is the priority in which fields claim header columns. Position
// goes first so a bare "#" header becomes the position column, not the car
// number.
var claimOrder = []Field{FieldPosition, FieldDriver, FieldPoints, FieldClass, FieldCarNumber, FieldDiff}

// ForKind returns the parser for a configured source kind.
func ForKind(kind standings.SourceKind) (standings.Parser, error) {
	switch kind {
	case standings.SourceDevExpress:
		return NewDevExpress(), nil
	case standings.SourceSimGrid:
		return NewSimGrid(), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

// Parsers returns the full kind-to-parser map the tracker consumes.
func Parsers() map[standings.SourceKind]standings.Parser {
	return map[standings.SourceKind]standings.Parser{
		standings.SourceDevExpress: NewDevExpress(),
		standings.SourceSimGrid:    NewSimGrid(),
	}
}

// columnMap records which header index feeds each semantic field.
type columnMap map[Field]int

// tableMatch is a candidate results table with its mapped columns.
type tableMatch struct {
	table   *goquery.Selection
	header  *goquery.Selection
	columns columnMap
	score   int
}

// findResultsTable scores every <table> in the document against the
// vocabulary and returns the best candidate. A table qualifies only when
// both a position and a driver column were identified.
func findResultsTable(doc *goquery.Document, vocab map[Field][]string) (*tableMatch, error) {
	var best *tableMatch
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		header := headerRow(table)
		if header == nil {
			return
		}
		columns := mapHeaders(headerCells(header), vocab)
		if _, ok := columns[FieldPosition]; !ok {
			return
		}
		if _, ok := columns[FieldDriver]; !ok {
			return
		}
		match := &tableMatch{table: table, header: header, columns: columns, score: len(columns)}
		if best == nil || match.score > best.score {
			best = match
		}
	})
	if best == nil {
		return nil, fmt.Errorf("no table with position and driver headers found")
	}
	return best, nil
}

// headerRow finds the row holding column headers: the first row containing
// <th> cells, else the first row at all.
func headerRow(table *goquery.Selection) *goquery.Selection {
	var header *goquery.Selection
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if row.Find("th").Length() > 0 {
			header = row
			return false
		}
		if header == nil {
			header = row
		}
		return true
	})
	return header
}

func headerCells(header *goquery.Selection) []string {
	var cells []string
	header.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, normalizeHeader(cellText(cell)))
	})
	return cells
}

// mapHeaders assigns header indexes to semantic fields. Fields claim
// columns in claimOrder; each column is claimed at most once.
func mapHeaders(headers []string, vocab map[Field][]string) columnMap {
	columns := make(columnMap)
	claimed := make(map[int]bool)
	for _, field := range claimOrder {
		for idx, header := range headers {
			if claimed[idx] || header == "" {
				continue
			}
			if matchesAlias(header, vocab[field]) {
				columns[field] = idx
				claimed[idx] = true
				break
			}
		}
	}
	return columns
}

func matchesAlias(header string, aliases []string) bool {
	for _, alias := range aliases {
		if header == alias {
			return true
		}
	}
	return false
}

func normalizeHeader(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return strings.TrimSuffix(s, ".")
}

// rowCells returns the row's cell selections in document order.
func rowCells(row *goquery.Selection) []*goquery.Selection {
	var cells []*goquery.Selection
	row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, cell)
	})
	return cells
}

func cellText(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(cell.Text()), " ")
}

// firstImageSrc returns the first <img src> inside the cell, resolved
// against base when relative.
func firstImageSrc(cell *goquery.Selection, base *url.URL) string {
	src, ok := cell.Find("img").First().Attr("src")
	if !ok || src == "" {
		return ""
	}
	if base == nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// buildRow assembles a normalized row from mapped cells. Rows without a
// parseable position or a driver name are reported as not ok and dropped by
// the callers; DevExpress filter and pager rows fail exactly this way.
func buildRow(cells []*goquery.Selection, columns columnMap, base *url.URL) (standings.Row, bool) {
	text := func(field Field) string {
		idx, ok := columns[field]
		if !ok || idx >= len(cells) {
			return ""
		}
		return cellText(cells[idx])
	}

	pos, ok := parsePosition(text(FieldPosition))
	if !ok {
		return standings.Row{}, false
	}
	driver := text(FieldDriver)
	if driver == "" {
		return standings.Row{}, false
	}

	row := standings.Row{
		Position:  pos,
		Driver:    driver,
		CarNumber: strings.TrimPrefix(text(FieldCarNumber), "#"),
		Class:     text(FieldClass),
		Points:    text(FieldPoints),
		Diff:      normalizeDiff(text(FieldDiff)),
	}
	for _, field := range []Field{FieldDriver, FieldClass} {
		idx, present := columns[field]
		if !present || idx >= len(cells) {
			continue
		}
		if src := firstImageSrc(cells[idx], base); src != "" {
			row.BadgeURL = src
			break
		}
	}
	return row, true
}

// parsePosition accepts "1", "1.", "P1" and similar.
func parsePosition(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	s = strings.TrimPrefix(strings.ToUpper(s), "P")
	if s == "" {
		return 0, false
	}
	pos := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		pos = pos*10 + int(r-'0')
	}
	if pos == 0 {
		return 0, false
	}
	return pos, true
}

// normalizeDiff keeps the leader's diff empty instead of "-" or "—".
func normalizeDiff(s string) string {
	switch s {
	case "-", "--", "—", "–":
		return ""
	}
	return s
}

// pageTitle pulls a human title for the table: the first <h1>, else the
// document title, else empty.
func pageTitle(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return strings.Join(strings.Fields(h1), " ")
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func loadDocument(page standings.Page) (*goquery.Document, *url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(page.FinalURL)
	if err != nil {
		base = nil
	}
	return doc, base, nil
}
