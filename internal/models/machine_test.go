package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyChassis(t *testing.T) {
	assert.Equal(t, ChassisLaptop, ClassifyChassis([]int{10}))
	assert.Equal(t, ChassisLaptop, ClassifyChassis([]int{31}))
	assert.Equal(t, ChassisDesktop, ClassifyChassis([]int{3}))
	assert.Equal(t, ChassisDesktop, ClassifyChassis([]int{35}))
	assert.Equal(t, ChassisDesktop, ClassifyChassis([]int{2, 13}))
	assert.Equal(t, ChassisUnknown, ClassifyChassis([]int{1, 2}))
	assert.Equal(t, ChassisUnknown, ClassifyChassis(nil))
}

func TestChassisKind_String(t *testing.T) {
	assert.Equal(t, "laptop", ChassisLaptop.String())
	assert.Equal(t, "desktop", ChassisDesktop.String())
	assert.Equal(t, "unknown", ChassisUnknown.String())
}

func TestMachineProfile_IsManufacturer(t *testing.T) {
	p := MachineProfile{Manufacturer: "LENOVO "}

	assert.True(t, p.IsManufacturer("LENOVO"))
	assert.True(t, p.IsManufacturer("lenovo"))
	assert.False(t, p.IsManufacturer("Dell Inc."))
	assert.False(t, MachineProfile{}.IsManufacturer("LENOVO"))
}

func TestRuleOverrides_For(t *testing.T) {
	laptop := map[Step]RuleOverride{StepTPM: {Name: "TPM"}}
	overrides := RuleOverrides{Laptop: laptop}

	assert.Equal(t, laptop, overrides.For(ChassisLaptop))
	assert.Nil(t, overrides.For(ChassisDesktop))
	assert.Nil(t, overrides.For(ChassisUnknown))
}
