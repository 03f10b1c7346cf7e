package api

import (
	"bytes"
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
)

//go:embed help.md
var helpMarkdown []byte

const helpPage = `<!DOCTYPE html><html><head><meta charset="utf-8"><title>tblmaker</title></head><body>%s</body></html>`

// renderHelp converts the format instructions to an HTML page once at startup.
func renderHelp(log *slog.Logger) []byte {
	var body bytes.Buffer
	if err := goldmark.Convert(helpMarkdown, &body); err != nil {
		log.Error("render help", "error", err)
		body.Reset()
		body.WriteString("<pre>")
		body.WriteString(html.EscapeString(string(helpMarkdown)))
		body.WriteString("</pre>")
	}
	return bytes.Replace([]byte(helpPage), []byte("%s"), body.Bytes(), 1)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(s.help)
}
