package models

import "strings"

// ChassisKind classifies the enclosure, which selects the setting vocabulary.
type ChassisKind int

// Chassis kinds.
const (
	ChassisUnknown ChassisKind = iota
	ChassisDesktop
	ChassisLaptop
)

func (c ChassisKind) String() string {
	switch c {
	case ChassisDesktop:
		return "desktop"
	case ChassisLaptop:
		return "laptop"
	default:
		return "unknown"
	}
}

// SMBIOS chassis type codes as reported by Win32_SystemEnclosure.ChassisTypes.
var (
	laptopChassisTypes  = map[int]bool{8: true, 9: true, 10: true, 11: true, 12: true, 14: true, 18: true, 21: true, 30: true, 31: true, 32: true}
	desktopChassisTypes = map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true, 13: true, 15: true, 16: true, 35: true, 36: true}
)

// ClassifyChassis maps SMBIOS chassis type codes to a ChassisKind. The first
// recognized code wins.
func ClassifyChassis(types []int) ChassisKind {
	for _, t := range types {
		if laptopChassisTypes[t] {
			return ChassisLaptop
		}
		if desktopChassisTypes[t] {
			return ChassisDesktop
		}
	}
	return ChassisUnknown
}

// MachineProfile describes the machine being reconciled. Read once per run.
type MachineProfile struct {
	Manufacturer        string
	Model               string
	Chassis             ChassisKind
	AdminPasswordLocked bool
}

// IsManufacturer reports whether the profile matches the expected vendor,
// ignoring case and surrounding whitespace.
func (p MachineProfile) IsManufacturer(expected string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Manufacturer), strings.TrimSpace(expected))
}
