package parser

import (
	"strings"

	"github.com/dgallion1/tblmaker/internal/roster"
)

// CoachPrefix marks the optional head coach line.
const CoachPrefix = "Главный тренер:"

// playerFields is the minimum number of non-empty cells a player line needs.
const playerFields = 5

// Parse turns tab-separated roster text into a Roster.
//
// The first line is a header and is not validated. Each following line is
// either blank (skipped), a coach line (the last one wins) or a player line.
// Empty cells are removed before counting, so stray tabs from spreadsheet
// copy-paste are tolerated; lines left with fewer than five cells are dropped
// without an error and counted in Roster.Dropped.
func Parse(text string) (*roster.Roster, error) {
	text = strings.TrimSpace(strings.TrimPrefix(text, "\ufeff"))
	if text == "" {
		return nil, ErrMalformedInput
	}

	lines := strings.Split(text, "\n")
	r := &roster.Roster{
		Header:  splitCells(lines[0]),
		Players: []roster.Player{},
	}

	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, CoachPrefix) {
			r.Coach = &roster.Coach{
				Name: strings.TrimSpace(strings.TrimPrefix(line, CoachPrefix)),
			}
			continue
		}

		cells := splitCells(line)
		if len(cells) < playerFields {
			r.Dropped++
			continue
		}
		r.Players = append(r.Players, roster.Player{
			Number:  cells[0],
			Name:    cells[1],
			Role:    cells[2],
			Birth:   cells[3],
			Country: cells[4],
		})
	}

	return r, nil
}

// splitCells splits a line on tabs, trims every cell and drops empty ones.
func splitCells(line string) []string {
	var cells []string
	for _, cell := range strings.Split(line, "\t") {
		if cell = strings.TrimSpace(cell); cell != "" {
			cells = append(cells, cell)
		}
	}
	return cells
}
