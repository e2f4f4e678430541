package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique collection-run ID with the "run_" prefix.
// Run IDs tag diagnostic artifacts so pages from one run group together.
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}
