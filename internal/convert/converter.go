package convert

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/tblmaker/internal/creatium"
	"github.com/dgallion1/tblmaker/internal/metrics"
	"github.com/dgallion1/tblmaker/internal/parser"
	"github.com/dgallion1/tblmaker/internal/render"
)

// TemplateSource supplies a private copy of the current template.
type TemplateSource interface {
	Template() *creatium.Document
}

// Converter runs parse, render and embed for one roster text.
type Converter struct {
	templates TemplateSource
	renderer  render.Renderer
	metrics   *metrics.Metrics
	stats     *Stats
	log       *slog.Logger
}

func NewConverter(templates TemplateSource, renderer render.Renderer, m *metrics.Metrics, stats *Stats, log *slog.Logger) *Converter {
	return &Converter{
		templates: templates,
		renderer:  renderer,
		metrics:   m,
		stats:     stats,
		log:       log,
	}
}

// Stats returns the rolling conversion stats.
func (c *Converter) Stats() *Stats {
	return c.stats
}

// Convert parses text, renders the table and embeds it into a copy of the
// current template. Errors wrap parser.ErrMalformedInput or
// creatium.ErrStructuralMismatch.
func (c *Converter) Convert(text, filename string) (*Result, error) {
	start := time.Now()
	res, err := c.convert(text, filename)
	elapsed := time.Since(start)
	c.metrics.Duration.Observe(elapsed.Seconds())

	if err != nil {
		c.metrics.Conversions.WithLabelValues("error").Inc()
		c.stats.RecordFailure()
		c.log.Warn("conversion failed", "filename", filename, "error", err)
		return nil, err
	}

	players := len(res.Roster.Players)
	c.metrics.Conversions.WithLabelValues("ok").Inc()
	c.metrics.Players.Add(float64(players))
	c.metrics.DroppedLines.Add(float64(res.Roster.Dropped))
	c.stats.Record(elapsed, players, res.Roster.Dropped)

	log := c.log.With("id", res.ID, "filename", filename)
	if res.Roster.Dropped > 0 {
		log.Warn("dropped short lines", "dropped", res.Roster.Dropped)
	}
	log.Info("converted roster", "players", players, "coach", res.Roster.Coach != nil, "duration_us", elapsed.Microseconds())
	return res, nil
}

func (c *Converter) convert(text, filename string) (*Result, error) {
	r, err := parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	table := c.renderer.Render(r.Players, r.Coach)
	tableStats := c.inspect(table, render.RowCount(r.Players, r.Coach))

	out, err := creatium.Embed(c.templates.Template(), table)
	if err != nil {
		return nil, fmt.Errorf("embed table: %w", err)
	}

	now := time.Now()
	hash := ContentHashHex([]byte(text))
	return &Result{
		ID:          ContentHashHex([]byte(fmt.Sprintf("%s-%s-%d", hash, filename, now.UnixNano())))[:20],
		ContentHash: hash,
		Filename:    filename,
		Roster:      r,
		HTML:        table,
		JSON:        out,
		Table:       tableStats,
		CreatedAt:   now,
	}, nil
}

// inspect reports the cell layout of the rendered table. Values embedded
// verbatim may contain markup that changes how the table parses, so the row
// count always comes from the roster and a mismatch is only logged.
func (c *Converter) inspect(table string, rows int) render.TableStats {
	stats, err := render.Inspect(table)
	if err != nil {
		c.log.Warn("rendered table is not inspectable", "error", err)
		return render.TableStats{Rows: rows}
	}
	if stats.Rows != rows {
		c.log.Warn("rendered table markup differs from roster", "rows", rows, "parsed_rows", stats.Rows)
		return render.TableStats{Rows: rows}
	}
	return stats
}
