// -----------------------------------------------------------------------
// Diagnostics - persists raw markup and screenshots when a window fails
// -----------------------------------------------------------------------

package scraper

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
)

// Diagnostics writes failure artifacts to a fixed, predictable location so a
// failed run can be inspected offline. Artifacts are named by run ID and
// stage; writing is best-effort and never fails the caller.
type Diagnostics struct {
	dir    string
	runID  string
	logger arbor.ILogger
}

// NewDiagnostics creates a diagnostics writer for one collection run.
func NewDiagnostics(dir, runID string, logger arbor.ILogger) *Diagnostics {
	return &Diagnostics{dir: dir, runID: runID, logger: logger}
}

// SaveMarkup persists raw page markup for the given stage.
func (d *Diagnostics) SaveMarkup(stage, markup string) {
	d.save(stage, "html", []byte(markup))
}

// SaveScreenshot persists a PNG capture for the given stage.
func (d *Diagnostics) SaveScreenshot(stage string, png []byte) {
	d.save(stage, "png", png)
}

func (d *Diagnostics) save(stage, ext string, data []byte) {
	if d == nil || d.dir == "" {
		return
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		d.logger.Warn().Err(err).Str("dir", d.dir).Msg("Failed to create debug directory")
		return
	}

	path := filepath.Join(d.dir, fmt.Sprintf("%s_%s.%s", d.runID, stage, ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		d.logger.Warn().Err(err).Str("path", path).Msg("Failed to write diagnostic artifact")
		return
	}

	d.logger.Info().Str("path", path).Msg("Saved diagnostic artifact")
}
