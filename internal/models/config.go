// Package models contains the data structures used throughout fwprep.
package models

// ReconcileConfig holds the complete configuration for a reconcile run.
type ReconcileConfig struct {
	ConvertBootMode      bool
	GuardPrep            bool // only effective together with ConvertBootMode
	DryRun               bool
	Password             string // supervisor password, empty if none
	ExpectedManufacturer string
	Log                  LogSettings
	Rules                RuleOverrides
	Remote               *SSHConfig // nil for the local machine
}

// LogSettings holds optional file logging configuration.
type LogSettings struct {
	File string // append-only log file, empty disables it
}

// RuleOverrides replaces built-in setting rules, keyed by chassis.
type RuleOverrides struct {
	Laptop  map[Step]RuleOverride
	Desktop map[Step]RuleOverride
}

// RuleOverride replaces the setting name and/or the recognized transitions
// for one step.
type RuleOverride struct {
	Name        string
	Transitions map[string]string // current raw state -> target verb
}

// For returns the overrides for the given chassis.
func (r RuleOverrides) For(chassis ChassisKind) map[Step]RuleOverride {
	switch chassis {
	case ChassisLaptop:
		return r.Laptop
	case ChassisDesktop:
		return r.Desktop
	default:
		return nil
	}
}

// DefaultManufacturer is the vendor string reported by supported machines.
const DefaultManufacturer = "LENOVO"
