package bootstrap

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kbukum/recordbind/pipeline"
)

// maxListedErrors caps the captured errors printed per run.
const maxListedErrors = 10

// RunReport describes one finished conversion run.
type RunReport struct {
	Name     string
	RunID    string
	Stats    pipeline.Stats
	LastLine int64
	Written  int64
	Captured []pipeline.CapturedError
	Err      error
}

// Summary collects run reports and prints them when the task ends.
type Summary struct {
	serviceName string
	version     string
	duration    time.Duration

	mu   sync.Mutex
	runs []RunReport
}

// NewSummary creates a new summary tracker.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     version,
		runs:        make([]RunReport, 0),
	}
}

// SetDuration records the total task time.
func (s *Summary) SetDuration(d time.Duration) {
	s.mu.Lock()
	s.duration = d
	s.mu.Unlock()
}

// TrackRun adds a finished run.
func (s *Summary) TrackRun(r RunReport) {
	s.mu.Lock()
	s.runs = append(s.runs, r)
	s.mu.Unlock()
}

// Runs returns the tracked runs.
func (s *Summary) Runs() []RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunReport, len(s.runs))
	copy(out, s.runs)
	return out
}

// Failed reports whether any run ended with an error.
func (s *Summary) Failed() bool {
	for _, r := range s.Runs() {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Display writes the summary to w.
func (s *Summary) Display(w io.Writer) {
	runs := s.Runs()
	fmt.Fprintf(w, "\n%s %s finished in %.2fs\n", s.serviceName, s.version, s.duration.Seconds())
	if len(runs) == 0 {
		fmt.Fprintf(w, "   └── no runs\n\n")
		return
	}

	for i, r := range runs {
		prefix, child := "├──", "│  "
		if i == len(runs)-1 {
			prefix, child = "└──", "   "
		}
		fmt.Fprintf(w, "   %s %s %s [%s]\n", prefix, runIcon(r), r.Name, r.RunID)
		fmt.Fprintf(w, "   %s  converted %d, filtered %d, captured %d, dropped %d",
			child, r.Stats.Succeeded, r.Stats.Filtered, r.Stats.Captured, r.Stats.Dropped)
		if r.Written > 0 {
			fmt.Fprintf(w, ", written %d", r.Written)
		}
		if r.LastLine > 0 {
			fmt.Fprintf(w, ", last line %d", r.LastLine)
		}
		fmt.Fprintln(w)
		if r.Err != nil {
			fmt.Fprintf(w, "   %s  error: %v\n", child, r.Err)
		}
		for j, c := range r.Captured {
			if j == maxListedErrors {
				fmt.Fprintf(w, "   %s  ... %d more\n", child, len(r.Captured)-j)
				break
			}
			fmt.Fprintf(w, "   %s  line %d: %s\n", child, c.Line, c.Err.Error())
		}
	}
	fmt.Fprintln(w)
}

func runIcon(r RunReport) string {
	switch {
	case r.Err != nil:
		return "❌"
	case len(r.Captured) > 0:
		return "⚠️"
	default:
		return "✅"
	}
}
