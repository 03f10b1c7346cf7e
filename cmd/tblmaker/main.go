// Command tblmaker converts a tab-delimited roster file into a Creatium
// widget document.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/tblmaker/internal/creatium"
	"github.com/dgallion1/tblmaker/internal/parser"
	"github.com/dgallion1/tblmaker/internal/render"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(os.Args[1:], log); err != nil {
		log.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("tblmaker", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	in := fs.String("in", "in.txt", "roster text file")
	tpl := fs.String("template", "template.json", "Creatium template document")
	out := fs.String("out", "out.txt", "output document")
	escape := fs.Bool("escape-html", false, "escape markup in roster values")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Open(*in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	r, err := parser.ParseReader(f)
	if err != nil {
		return err
	}

	renderer := render.Renderer{}
	if *escape {
		renderer.Escape = render.HTMLEscape
	}
	table := renderer.Render(r.Players, r.Coach)

	doc, err := creatium.Load(*tpl)
	if err != nil {
		return err
	}
	if err := doc.SetAST(creatium.ASTVersion); err != nil {
		return err
	}
	if err := doc.SetCode(table); err != nil {
		return err
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	msg := fmt.Sprintf("processed %d players", len(r.Players))
	if r.Coach != nil {
		msg += fmt.Sprintf(" (+ coach %s)", r.Coach.Name)
	}
	log.Info(msg, "out", *out, "dropped", r.Dropped)
	return nil
}
