package render

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotTable is returned by Inspect when the fragment is not a single table.
var ErrNotTable = errors.New("fragment is not a single table")

var widthPattern = regexp.MustCompile(`width:\s*([^;"]+)`)

// Cell is one inspected table cell.
type Cell struct {
	Text  string `json:"text"`
	Width string `json:"width"`
}

// TableStats describes the structure of rendered table markup.
type TableStats struct {
	Rows  int      `json:"rows"`
	Cells [][]Cell `json:"-"`
}

// Inspect parses table markup and reports its rows and cells.
func Inspect(table string) (TableStats, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(table))
	if err != nil {
		return TableStats{}, fmt.Errorf("parse table: %w", err)
	}

	tables := doc.Find("table")
	if tables.Length() != 1 {
		return TableStats{}, fmt.Errorf("%w: found %d tables", ErrNotTable, tables.Length())
	}

	var stats TableStats
	tables.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []Cell
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			style, _ := td.Attr("style")
			var width string
			if m := widthPattern.FindStringSubmatch(style); m != nil {
				width = strings.TrimSpace(m[1])
			}
			row = append(row, Cell{
				Text:  strings.TrimSpace(td.Text()),
				Width: width,
			})
		})
		stats.Cells = append(stats.Cells, row)
	})
	stats.Rows = len(stats.Cells)

	return stats, nil
}
