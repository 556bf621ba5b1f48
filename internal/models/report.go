package models

// Step names one reconciliation step.
type Step string

// Reconciliation steps, in execution order.
const (
	StepSecureBoot       Step = "secure_boot"
	StepTPM              Step = "tpm"
	StepVirtualization   Step = "virtualization"
	StepIOVirtualization Step = "io_virtualization"
)

// Steps lists all steps in execution order.
var Steps = []Step{StepSecureBoot, StepTPM, StepVirtualization, StepIOVirtualization}

// Action is what a step did.
type Action string

// Step actions.
const (
	ActionSkipped Action = "skipped"
	ActionApplied Action = "applied"
	ActionDryRun  Action = "dry-run"
	ActionMissing Action = "missing"
	ActionFailed  Action = "failed"
)

// StepOutcome records the decision taken for one step.
type StepOutcome struct {
	Step     Step
	Setting  string
	RawState string
	Command  string // redacted, empty when skipped
	Action   Action
}

// Report holds the result of a reconcile run.
type Report struct {
	Profile MachineProfile
	Steps   []StepOutcome
}

// Applied returns the number of steps that changed firmware.
func (r *Report) Applied() int {
	n := 0
	for _, s := range r.Steps {
		if s.Action == ActionApplied {
			n++
		}
	}
	return n
}
