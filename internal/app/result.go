package app

import "fmt"

// Output file names of a run, besides the calendar.
const (
	ConfigEchoFile = "config.yaml"
	ErrorFile      = "error.txt"
	OutputFile     = "output.txt"
)

// ErrorKind classifies a failed run for presentation.
type ErrorKind string

// Error kinds surfaced on the results page.
const (
	KindUpload     ErrorKind = "upload"
	KindConfig     ErrorKind = "config"
	KindEngine     ErrorKind = "engine"
	KindFilesystem ErrorKind = "filesystem"
)

// ErrorInfo describes why a run did not produce a calendar.
type ErrorInfo struct {
	Kind    ErrorKind
	Message string
}

// Section is a named block of text shown on the results page.
type Section struct {
	Name string
	Body string
}

// Artifact is a downloadable run output.
type Artifact struct {
	Name string
	Path string
	URL  string
}

// Result is everything the results page needs about one run.
type Result struct {
	RunID     string
	Sections  []Section
	Artifacts []Artifact
	Err       *ErrorInfo
}

// OK reports whether the run produced a calendar.
func (r Result) OK() bool { return r.Err == nil }

// Section returns the body of the named section, if present.
func (r Result) Section(name string) (string, bool) {
	for _, s := range r.Sections {
		if s.Name == name {
			return s.Body, true
		}
	}
	return "", false
}

// DownloadURL is the route serving name from the run's output directory.
func DownloadURL(runID, name string) string {
	return fmt.Sprintf("/download/%s/%s", runID, name)
}
