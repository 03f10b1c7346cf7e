package creatium

import (
	"strings"

	"github.com/google/uuid"
)

// NewUID returns a fresh 24-character hex widget uid.
func NewUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}
