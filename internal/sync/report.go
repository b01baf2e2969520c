package sync

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"mcsync/internal/versions"
)

// Report aggregates one cycle's outcomes. The cycle has no identity beyond
// it.
type Report struct {
	Profile  *versions.GameProfile `json:"profile"`
	Outcomes []Outcome             `json:"outcomes"`
	Duration time.Duration         `json:"-"`

	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	Skipped      int `json:"skipped"`
	FilesWritten int `json:"files_written"`
	FilesDeleted int `json:"files_deleted"`
}

func (r *Report) summarize() {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSucceeded:
			r.Succeeded++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
		r.FilesWritten += o.FilesWritten
		r.FilesDeleted += o.FilesDeleted
	}
}

// Success reports whether every rule succeeded. Individual failures still
// leave the rest of the install synced.
func (r *Report) Success() bool {
	return r.Failed == 0 && r.Skipped == 0
}

// Summary is the one-line, user-facing digest of the cycle.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d of %d paths synced; game version resolved to %s",
		r.Succeeded, len(r.Outcomes), r.Profile)
}

// Write renders the full report as indented JSON.
func (r *Report) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}
