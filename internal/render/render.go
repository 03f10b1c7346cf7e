package render

import (
	"strings"

	"github.com/dgallion1/tblmaker/internal/roster"
	"golang.org/x/net/html"
)

// ColumnWidths are the fixed column widths the page builder expects, applied to
// every row.
var ColumnWidths = [5]string{"3.75%", "37.625%", "12.7937%", "26.1958%", "19.5542%"}

// HeaderLabels are the header row cells.
var HeaderLabels = [5]string{"№", "Фамилия, имя", "Амплуа", "Дата рождения", "Гражданство"}

// CoachLabel fills the role column of the coach row.
const CoachLabel = "гл.тр."

// EscapeFunc is applied to every roster value before it is written into the
// table markup.
type EscapeFunc func(string) string

// NoEscape writes values verbatim. The downstream page builder consumes the
// markup unescaped, so this is the default.
func NoEscape(s string) string { return s }

// HTMLEscape escapes <, >, &, ' and ".
func HTMLEscape(s string) string { return html.EscapeString(s) }

// Renderer produces the roster table markup.
type Renderer struct {
	Escape EscapeFunc // nil means NoEscape
}

// Render renders players and an optional coach with the default renderer.
func Render(players []roster.Player, coach *roster.Coach) string {
	return Renderer{}.Render(players, coach)
}

// Render returns a single <table> element: a header row, one row per player in
// order, and a trailing coach row when coach is not nil.
func (r Renderer) Render(players []roster.Player, coach *roster.Coach) string {
	esc := r.Escape
	if esc == nil {
		esc = NoEscape
	}

	var b strings.Builder
	b.WriteString(`<table style="width: 100%;"><tbody>`)

	b.WriteString("<tr>")
	for i, label := range HeaderLabels {
		b.WriteString(`<td style="text-align: center; width: ` + ColumnWidths[i] + `;">`)
		b.WriteString(label)
		b.WriteString("<br></td>")
	}
	b.WriteString("</tr>")

	for _, p := range players {
		writeRow(&b, [5]string{
			esc(p.Number),
			esc(p.Name),
			esc(Abbreviate(p.Role)),
			esc(p.Birth),
			esc(p.Country),
		})
	}

	if coach != nil {
		writeRow(&b, [5]string{"", esc(coach.Name), CoachLabel, "", ""})
	}

	b.WriteString("</tbody></table>")
	return b.String()
}

// RowCount is the number of rows Render emits: the header, one per player and
// the coach row when coach is not nil.
func RowCount(players []roster.Player, coach *roster.Coach) int {
	n := 1 + len(players)
	if coach != nil {
		n++
	}
	return n
}

func writeRow(b *strings.Builder, cells [5]string) {
	b.WriteString("<tr>")
	for i, cell := range cells {
		b.WriteString(`<td style="text-align: center; vertical-align: middle; width: ` + ColumnWidths[i] + `;">`)
		b.WriteString(cell)
		b.WriteString("<br></td>")
	}
	b.WriteString("</tr>")
}
