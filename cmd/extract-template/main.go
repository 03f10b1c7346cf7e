// Command extract-template turns a finished Creatium document back into a
// reusable template: the table code is replaced with a placeholder and the
// widget gets a fresh uid.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/tblmaker/internal/creatium"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(os.Args[1:], log); err != nil {
		log.Error("extract failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("extract-template", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	in := fs.String("in", "out.txt", "finished Creatium document")
	out := fs.String("out", "template.json", "template to write")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := creatium.Load(*in)
	if err != nil {
		return err
	}
	if err := doc.SetCode(creatium.Placeholder); err != nil {
		return err
	}
	doc.SetUID(creatium.NewUID())

	data, err := doc.MarshalIndent()
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	log.Info("template saved", "out", *out, "uid", doc.UID())
	return nil
}
