package render

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Kind classifies a per-file failure.
type Kind string

const (
	KindDecode Kind = "decode"
	KindShape  Kind = "shape"
	KindWarp   Kind = "warp"
	KindWrite  Kind = "write"
)

// FileResult is the outcome for one source file.
type FileResult struct {
	Input       string        `yaml:"input"`
	Output      string        `yaml:"output"`
	SourceShape string        `yaml:"source_shape,omitempty"`
	Skipped     bool          `yaml:"skipped,omitempty"`
	OutOfRange  int           `yaml:"out_of_range"`
	Duration    time.Duration `yaml:"duration"`
	Kind        Kind          `yaml:"error_kind,omitempty"`
	Error       string        `yaml:"error,omitempty"`
	Err         error         `yaml:"-"`
}

// Report summarizes a batch run.
type Report struct {
	RunID     string       `yaml:"run_id"`
	Started   time.Time    `yaml:"started"`
	Finished  time.Time    `yaml:"finished"`
	InputDir  string       `yaml:"input_directory"`
	OutputDir string       `yaml:"output_directory"`
	Shape     string       `yaml:"output_shape"`
	Files     []FileResult `yaml:"files"`
}

func (r *Report) count(match func(FileResult) bool) int {
	n := 0
	for _, f := range r.Files {
		if match(f) {
			n++
		}
	}
	return n
}

// Failed returns the number of files that produced no output.
func (r *Report) Failed() int {
	return r.count(func(f FileResult) bool { return f.Err != nil || f.Kind != "" })
}

func (r *Report) Skipped() int {
	return r.count(func(f FileResult) bool { return f.Skipped })
}

func (r *Report) Rendered() int {
	return len(r.Files) - r.Failed() - r.Skipped()
}

// WriteReport saves the report as YAML, creating parent directories.
func (r *Report) WriteReport(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
