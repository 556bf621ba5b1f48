package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSetting(t *testing.T) {
	tests := []struct {
		line     string
		expected SettingSnapshot
		ok       bool
	}{
		{"SecureBoot,Disable", SettingSnapshot{Name: "SecureBoot", RawState: "Disable"}, true},
		{"SecureBoot,Enable;[Optional:Disable,Enable]", SettingSnapshot{Name: "SecureBoot", RawState: "Enable"}, true},
		{"Intel(R) Virtualization Technology,Disabled", SettingSnapshot{Name: "Intel(R) Virtualization Technology", RawState: "Disabled"}, true},
		{" VT-d , Enabled ", SettingSnapshot{Name: "VT-d", RawState: "Enabled"}, true},
		{"BootOrder,USBHDD:NVMe0:PXEBOOT", SettingSnapshot{Name: "BootOrder", RawState: "USBHDD:NVMe0:PXEBOOT"}, true},
		{"NoValue,", SettingSnapshot{Name: "NoValue", RawState: ""}, true},
		{"garbage", SettingSnapshot{}, false},
		{",Enable", SettingSnapshot{}, false},
		{"", SettingSnapshot{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseSetting(tt.line)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCommandString(t *testing.T) {
	cmd := CommandString{Setting: "SecureBoot", Verb: "Enable"}
	assert.Equal(t, "SecureBoot,Enable", cmd.String())
	assert.Equal(t, "SecureBoot,Enable", cmd.Redacted())

	cmd.Password = "s3cret"
	assert.Equal(t, "SecureBoot,Enable,s3cret", cmd.String())
	assert.Equal(t, "SecureBoot,Enable,********", cmd.Redacted())

	// Encoding and keyboard tokens travel with the password.
	cmd.Password = "s3cret,ascii,us"
	assert.Equal(t, "SecureBoot,Enable,s3cret,ascii,us", cmd.String())
	assert.Equal(t, "SecureBoot,Enable,********", cmd.Redacted())
}

func TestReport_Applied(t *testing.T) {
	report := &Report{Steps: []StepOutcome{
		{Step: StepSecureBoot, Action: ActionApplied},
		{Step: StepTPM, Action: ActionSkipped},
		{Step: StepVirtualization, Action: ActionDryRun},
		{Step: StepIOVirtualization, Action: ActionApplied},
	}}

	assert.Equal(t, 2, report.Applied())
}
