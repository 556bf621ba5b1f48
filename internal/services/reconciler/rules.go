package reconciler

import (
	"github.com/fgeck/lenovo-fwprep/internal/models"
)

// Rule names the firmware setting behind a step and maps each recognized
// "disabled" raw state to the verb that turns it on. Raw states not listed
// are left alone.
type Rule struct {
	Name        string
	Transitions map[string]string
}

// Target returns the verb to send for raw, if raw is a recognized disabled state.
func (r Rule) Target(raw string) (string, bool) {
	verb, ok := r.Transitions[raw]
	return verb, ok
}

// ThinkPad firmware uses compact names and Enable/Disable.
var laptopRules = map[models.Step]Rule{
	models.StepSecureBoot: {
		Name:        "SecureBoot",
		Transitions: map[string]string{"Disable": "Enable"},
	},
	models.StepTPM: {
		Name:        "SecurityChip",
		Transitions: map[string]string{"Disable": "Enable", "Inactive": "Active"},
	},
	models.StepVirtualization: {
		Name:        "VirtualizationTechnology",
		Transitions: map[string]string{"Disable": "Enable"},
	},
	models.StepIOVirtualization: {
		Name:        "VTdFeature",
		Transitions: map[string]string{"Disable": "Enable"},
	},
}

// ThinkCentre and ThinkStation firmware uses display names and Enabled/Disabled.
var desktopRules = map[models.Step]Rule{
	models.StepSecureBoot: {
		Name:        "Secure Boot",
		Transitions: map[string]string{"Disabled": "Enabled"},
	},
	models.StepTPM: {
		Name:        "Security Chip",
		Transitions: map[string]string{"Disabled": "Enabled", "Inactive": "Active"},
	},
	models.StepVirtualization: {
		Name:        "Intel(R) Virtualization Technology",
		Transitions: map[string]string{"Disabled": "Enabled"},
	},
	models.StepIOVirtualization: {
		Name:        "VT-d",
		Transitions: map[string]string{"Disabled": "Enabled"},
	},
}

// RulesFor returns the rules for chassis with overrides applied. It returns
// nil for an unknown chassis.
func RulesFor(chassis models.ChassisKind, overrides models.RuleOverrides) map[models.Step]Rule {
	var base map[models.Step]Rule
	switch chassis {
	case models.ChassisLaptop:
		base = laptopRules
	case models.ChassisDesktop:
		base = desktopRules
	default:
		return nil
	}

	rules := make(map[models.Step]Rule, len(base))
	for step, rule := range base {
		rules[step] = rule
	}

	for step, o := range overrides.For(chassis) {
		rule := rules[step]
		if o.Name != "" {
			rule.Name = o.Name
		}
		if len(o.Transitions) > 0 {
			rule.Transitions = o.Transitions
		}
		rules[step] = rule
	}

	return rules
}
