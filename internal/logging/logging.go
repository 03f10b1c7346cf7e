package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/tblmaker/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON slog logger writing to stdout and, when cfg.LogFile is
// set, to a size-rotated log file. The returned closer releases the file.
func New(cfg config.Config) (*slog.Logger, io.Closer) {
	if cfg.LogFile == "" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil)), nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
	}
	w := io.MultiWriter(os.Stdout, file)
	return slog.New(slog.NewJSONHandler(w, nil)), file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
