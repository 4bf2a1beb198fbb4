package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/config"
	"github.com/roach88/tally/internal/harness"
)

// FileResult is the validation outcome of one file.
type FileResult struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"` // "config" | "scenario" | "script"
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateOutput lists every validated file.
type ValidateOutput struct {
	Files []FileResult `json:"files"`
	Valid bool         `json:"valid"`
}

func (o ValidateOutput) String() string {
	var b strings.Builder
	for i, r := range o.Files {
		if i > 0 {
			b.WriteByte('\n')
		}
		if r.Valid {
			fmt.Fprintf(&b, "ok      %s (%s)", r.Path, r.Kind)
		} else {
			fmt.Fprintf(&b, "invalid %s (%s): %s", r.Path, r.Kind, r.Error)
		}
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Validate config, scenario and script files",
		Long: `Validate files without running anything.

  *.cue          checked against the configuration schema
  *.yaml, *.yml  parsed as a scenario, or as a script when it has a
                 top-level "actions" list

With no arguments the file given by --config is validated.

Example:
  tally validate tally.cue testdata/scenarios/*.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, args)
		},
	}
}

func runValidate(cmd *cobra.Command, opts *RootOptions, files []string) error {
	f := opts.formatter(cmd)

	if len(files) == 0 {
		if opts.Config == "" {
			return f.Fail(&ExitError{Code: ExitCommandError, ErrCode: ErrCodeNoFiles, Message: "nothing to validate: pass files or --config"})
		}
		files = []string{opts.Config}
	}

	out := ValidateOutput{Valid: true}
	for _, path := range files {
		r := validateFile(path)
		f.VerboseLog("validated %s: %t", path, r.Valid)
		out.Files = append(out.Files, r)
		out.Valid = out.Valid && r.Valid
	}

	if !out.Valid {
		if opts.Format == "json" {
			_ = f.Error(ErrCodeScript, "validation failed", out)
		} else {
			_ = f.Success(out)
		}
		return &ExitError{Code: ExitFailure, ErrCode: ErrCodeScript, Message: "validation failed"}
	}
	return f.Success(out)
}

func validateFile(path string) FileResult {
	r := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		r.Kind = "unknown"
		r.Error = err.Error()
		return r
	}

	switch filepath.Ext(path) {
	case ".cue":
		r.Kind = "config"
		_, err = config.Parse(path, data)
	case ".yaml", ".yml":
		if isScript(data) {
			r.Kind = "script"
			err = validateScript(path)
		} else {
			r.Kind = "scenario"
			_, err = harness.ParseScenario(data)
		}
	default:
		r.Kind = "unknown"
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}

	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Valid = true
	return r
}

// isScript reports whether a YAML document has a top-level actions key.
func isScript(data []byte) bool {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return false
	}
	_, ok := top["actions"]
	return ok
}

func validateScript(path string) error {
	s, err := LoadScript(path)
	if err != nil {
		return err
	}
	_, err = s.Build()
	return err
}
