package convert

import (
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
	"heic-toolkit-go/pkg/stats"
	"heic-toolkit-go/pkg/utils"
)

// Summary is the machine-readable record of a run
type Summary struct {
	Root        string                `yaml:"root"`
	Backend     string                `yaml:"backend"`
	DryRun      bool                  `yaml:"dry_run"`
	Interrupted bool                  `yaml:"interrupted"`
	StartedAt   time.Time             `yaml:"started_at"`
	Duration    string                `yaml:"duration"`
	MappingFile string                `yaml:"mapping_file,omitempty"`
	Statistics  Statistics            `yaml:"statistics"`
	Statuses    map[string]int        `yaml:"statuses"`
	Failures    []string              `yaml:"failures,omitempty"`
	Targets     []stats.TargetSummary `yaml:"targets,omitempty"`
}

// NewSummary builds a Summary from a run result
func NewSummary(root string, dryRun bool, startedAt time.Time, result *Result) Summary {
	summary := Summary{
		Root:        root,
		Backend:     result.Backend,
		DryRun:      dryRun,
		Interrupted: result.Interrupted,
		StartedAt:   startedAt.UTC(),
		Duration:    result.Duration.Round(time.Millisecond).String(),
		MappingFile: result.MappingPath,
		Statistics:  result.Statistics,
		Statuses:    make(map[string]int),
		Targets:     result.Targets,
	}

	for _, o := range result.Outcomes {
		summary.Statuses[string(o.Status)]++
		if o.Status != StatusSuccess && o.Status != StatusSkipped {
			summary.Failures = append(summary.Failures, o.OriginalPath)
		}
	}
	sort.Strings(summary.Failures)

	return summary
}

// WriteSummary writes the summary as YAML
func WriteSummary(path string, summary Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return utils.WrapError(err, "failed to encode summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return utils.WrapErrorf(err, "failed to write summary %s", path)
	}
	return nil
}
