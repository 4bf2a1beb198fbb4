package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SuiteOptions controls RunSuite.
type SuiteOptions struct {
	// Filter is a glob matched against scenario file names without
	// extension. Empty matches everything.
	Filter string

	// Update rewrites golden files instead of comparing against them.
	Update bool
}

// ScenarioOutcome is the result of one scenario file.
type ScenarioOutcome struct {
	Name          string   `json:"name"`
	Path          string   `json:"path"`
	Pass          bool     `json:"pass"`
	GoldenUpdated bool     `json:"golden_updated,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// GoldenPath returns the golden file for a scenario file:
// <dir>/golden/<name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// FindScenarioFiles returns the .yaml and .yml files under dir whose base
// name matches filter.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// RunSuite runs every scenario file under dir.
//
// Each scenario must pass its own assertions. If a golden file exists
// next to it (see GoldenPath) the trace must also match byte for byte.
// With opts.Update the golden file is written instead.
func RunSuite(ctx context.Context, dir string, opts SuiteOptions) (*SuiteResult, error) {
	files, err := FindScenarioFiles(dir, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find scenarios: %w", err)
	}

	result := &SuiteResult{
		Scenarios: make([]ScenarioOutcome, 0, len(files)),
		Total:     len(files),
	}

	for _, file := range files {
		outcome := RunFile(ctx, file, opts.Update)
		result.Scenarios = append(result.Scenarios, outcome)
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	return result, nil
}

// RunFile loads and runs one scenario file, comparing or updating its
// golden trace.
func RunFile(ctx context.Context, file string, update bool) ScenarioOutcome {
	outcome := ScenarioOutcome{Name: filepath.Base(file), Path: file}

	scenario, err := LoadScenario(file)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return outcome
	}
	outcome.Name = scenario.Name

	result, err := RunContext(ctx, scenario)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return outcome
	}

	if !result.Pass {
		outcome.Errors = result.Errors
		return outcome
	}

	snapshot := NewTraceSnapshot(scenario.Name, result)
	data, err := snapshot.Bytes()
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("failed to marshal trace: %v", err)}
		return outcome
	}

	goldenPath := GoldenPath(file)

	if update {
		if err := writeGolden(goldenPath, data); err != nil {
			outcome.Errors = []string{err.Error()}
			return outcome
		}
		outcome.Pass = true
		outcome.GoldenUpdated = true
		return outcome
	}

	golden, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// Assertions only.
	case err != nil:
		outcome.Errors = []string{fmt.Sprintf("failed to read golden file: %v", err)}
		return outcome
	case !bytes.Equal(golden, data):
		outcome.Errors = []string{"trace does not match golden file (run with --update to regenerate)"}
		return outcome
	}

	outcome.Pass = true
	return outcome
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
