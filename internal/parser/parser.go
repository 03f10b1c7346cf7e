package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/tblmaker/internal/roster"
)

// ErrMalformedInput is returned when the text has no header line to consume.
var ErrMalformedInput = errors.New("malformed input: no header line")

// SupportedExtensions lists upload extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt": true,
	".tsv": true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseReader reads all of r and parses it as roster text.
func ParseReader(r io.Reader) (*roster.Roster, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(string(data))
}
