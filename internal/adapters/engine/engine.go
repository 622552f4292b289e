// Package engine runs the external office-hours scheduler and extracts
// participant identifiers from preference CSVs.
package engine

import (
	"context"

	"github.com/matthigger/oh-sched-web/internal/domain/schedule"
)

// ConfigFile is the name of the config document handed to the engine.
const ConfigFile = "engine-config.yaml"

// Request describes one scheduling run.
type Request struct {
	// CSVPath is the preferences CSV to schedule.
	CSVPath string
	// Config is the validated scheduling config. Its FOut must point at
	// the calendar the engine is expected to write.
	Config schedule.Config
	// WorkDir receives scratch files and is the child's working directory.
	WorkDir string
}

// Output carries the captured console streams of a run.
type Output struct {
	Stdout []byte
	Stderr []byte
}

// Engine produces an office-hours calendar from a preferences CSV.
type Engine interface {
	// Schedule runs the scheduler. The captured output is returned even
	// when err is non-nil.
	Schedule(ctx context.Context, req Request) (Output, error)

	// Participants returns the participant identifiers listed in the CSV.
	Participants(ctx context.Context, csvPath string) ([]string, error)
}
