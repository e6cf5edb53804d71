package job

import (
	"github.com/corkine/cloud-native-tools/internal/command"
	"github.com/corkine/cloud-native-tools/internal/transfer"
)

// Report is the outcome of one upload run, one entry per destination.
type Report struct {
	DryRun  bool      `json:"dry_run"`
	Targets []*Target `json:"targets"`
}

// Target records what happened at one destination.
type Target struct {
	Transport   string           `json:"transport"`
	Destination string           `json:"destination"`
	Plan        *transfer.Plan   `json:"-"`
	Files       int64            `json:"files"`
	Dirs        int              `json:"dirs"`
	Bytes       int64            `json:"bytes"`
	Commands    []CommandOutcome `json:"commands,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// CommandOutcome is one executed remote command.
type CommandOutcome struct {
	Phase    string `json:"phase"` // "pre" or "post"
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
}

func (t *Target) addCommands(phase string, results []command.Result) {
	for _, r := range results {
		if r.Skipped {
			continue
		}
		t.Commands = append(t.Commands, CommandOutcome{Phase: phase, Command: r.Command, ExitCode: r.ExitCode})
	}
}

// failedCommands counts commands that exited non-zero.
func (t *Target) failedCommands() int {
	n := 0
	for _, c := range t.Commands {
		if c.ExitCode != 0 {
			n++
		}
	}
	return n
}

// PlanOutput is the machine-readable form of the plans of a run.
type PlanOutput struct {
	Targets []PlanTarget `json:"targets"`
	Summary PlanSummary  `json:"summary"`
}

// PlanTarget is the plan for one destination.
type PlanTarget struct {
	Transport string          `json:"transport"`
	Items     []transfer.Item `json:"items"`
}

// PlanSummary counts planned steps across all destinations.
type PlanSummary struct {
	Mkdir  int   `json:"mkdir"`
	Upload int   `json:"upload"`
	Bytes  int64 `json:"bytes"`
}

// PlanOutput collects the plans built during the run. Destinations that
// failed before planning are left out.
func (r *Report) PlanOutput() PlanOutput {
	out := PlanOutput{Targets: []PlanTarget{}}
	for _, t := range r.Targets {
		if t.Plan == nil {
			continue
		}
		items := t.Plan.Items
		if items == nil {
			items = []transfer.Item{}
		}
		out.Targets = append(out.Targets, PlanTarget{Transport: t.Transport, Items: items})
		out.Summary.Mkdir += len(t.Plan.Dirs())
		out.Summary.Upload += len(t.Plan.Files())
		out.Summary.Bytes += t.Plan.TotalBytes()
	}
	return out
}
