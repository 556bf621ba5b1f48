// Package wmi is the client for the Lenovo firmware management interface.
// Every call is a PowerShell CIM script run by an Executor, locally or on a
// remote target.
package wmi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/rs/zerolog"
)

// StatusSuccess is the status string returned by successful set and save calls.
const StatusSuccess = "Success"

// Password state bits of Lenovo_BiosPasswordSettings that block setting changes.
const (
	passwordStateSupervisor       = 0x02
	passwordStateSystemManagement = 0x40
)

// Service defines the interface for the firmware management interface.
type Service interface {
	Profile(ctx context.Context) (*models.MachineProfile, error)
	Settings(ctx context.Context) ([]models.SettingSnapshot, error)
	SetSetting(ctx context.Context, cmd models.CommandString) (string, error)
	SaveSettings(ctx context.Context, password string) (string, error)
}

// Executor runs a PowerShell script and returns its standard output.
type Executor interface {
	Execute(ctx context.Context, script string) ([]byte, error)
}

// Impl implements Service on top of an Executor.
type Impl struct {
	executor Executor
	logger   zerolog.Logger
}

// New creates a new management interface client.
func New(logger zerolog.Logger, executor Executor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

const profileScript = `$cs = Get-CimInstance -ClassName Win32_ComputerSystem
$en = Get-CimInstance -ClassName Win32_SystemEnclosure | Select-Object -First 1
$pw = Get-CimInstance -Namespace root/wmi -ClassName Lenovo_BiosPasswordSettings -ErrorAction SilentlyContinue | Select-Object -First 1
$state = 0
if ($pw) { $state = [int]$pw.PasswordState }
[pscustomobject]@{
  Manufacturer  = [string]$cs.Manufacturer
  Model         = [string]$cs.Model
  ChassisTypes  = @($en.ChassisTypes)
  PasswordState = $state
} | ConvertTo-Json -Compress`

const settingsScript = `$settings = @(Get-CimInstance -Namespace root/wmi -ClassName Lenovo_BiosSetting |
  Where-Object { $_.CurrentSetting } |
  ForEach-Object { [string]$_.CurrentSetting })
ConvertTo-Json -Compress -InputObject $settings`

const setScript = `$r = Get-CimInstance -Namespace root/wmi -ClassName Lenovo_SetBiosSetting |
  Invoke-CimMethod -MethodName SetBiosSetting -Arguments @{ parameter = %s }
Write-Output $r.return`

const saveScript = `$r = Get-CimInstance -Namespace root/wmi -ClassName Lenovo_SaveBiosSettings |
  Invoke-CimMethod -MethodName SaveBiosSettings -Arguments @{ parameter = %s }
Write-Output $r.return`

// profileJSON is the JSON structure emitted by profileScript.
type profileJSON struct {
	Manufacturer  string   `json:"Manufacturer"`
	Model         string   `json:"Model"`
	ChassisTypes  flexInts `json:"ChassisTypes"`
	PasswordState int      `json:"PasswordState"`
}

// Profile reads manufacturer, model, chassis kind and password state.
func (s *Impl) Profile(ctx context.Context) (*models.MachineProfile, error) {
	s.logger.Debug().Msg("reading machine profile")

	output, err := s.executor.Execute(ctx, profileScript)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine profile: %w", err)
	}

	var raw profileJSON
	if err := json.Unmarshal(cleanOutput(output), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse machine profile: %w", err)
	}

	profile := &models.MachineProfile{
		Manufacturer:        strings.TrimSpace(raw.Manufacturer),
		Model:               strings.TrimSpace(raw.Model),
		Chassis:             models.ClassifyChassis(raw.ChassisTypes),
		AdminPasswordLocked: raw.PasswordState&(passwordStateSupervisor|passwordStateSystemManagement) != 0,
	}

	s.logger.Debug().
		Str("manufacturer", profile.Manufacturer).
		Str("model", profile.Model).
		Ints("chassis_types", raw.ChassisTypes).
		Int("password_state", raw.PasswordState).
		Msg("machine profile read")

	return profile, nil
}

// Settings reads every firmware setting the interface exposes.
func (s *Impl) Settings(ctx context.Context) ([]models.SettingSnapshot, error) {
	s.logger.Debug().Msg("reading firmware settings")

	output, err := s.executor.Execute(ctx, settingsScript)
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware settings: %w", err)
	}

	output = cleanOutput(output)
	if len(output) == 0 {
		return nil, nil
	}

	var lines flexStrings
	if err := json.Unmarshal(output, &lines); err != nil {
		return nil, fmt.Errorf("failed to parse firmware settings: %w", err)
	}

	settings := make([]models.SettingSnapshot, 0, len(lines))
	for _, line := range lines {
		setting, ok := models.ParseSetting(line)
		if !ok {
			s.logger.Debug().Str("line", line).Msg("ignoring malformed setting")
			continue
		}
		settings = append(settings, setting)
	}

	s.logger.Debug().Int("count", len(settings)).Msg("firmware settings read")
	return settings, nil
}

// SetSetting invokes SetBiosSetting with the verbatim command string.
func (s *Impl) SetSetting(ctx context.Context, cmd models.CommandString) (string, error) {
	s.logger.Debug().Str("command", cmd.Redacted()).Msg("invoking SetBiosSetting")

	output, err := s.executor.Execute(ctx, fmt.Sprintf(setScript, quote(cmd.String())))
	if err != nil {
		return "", fmt.Errorf("SetBiosSetting failed: %w", err)
	}
	return status(output), nil
}

// SaveSettings invokes SaveBiosSettings, committing pending changes.
func (s *Impl) SaveSettings(ctx context.Context, password string) (string, error) {
	s.logger.Debug().Bool("password", password != "").Msg("invoking SaveBiosSettings")

	output, err := s.executor.Execute(ctx, fmt.Sprintf(saveScript, quote(password)))
	if err != nil {
		return "", fmt.Errorf("SaveBiosSettings failed: %w", err)
	}
	return status(output), nil
}

// quote renders s as a single-quoted PowerShell string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func status(output []byte) string {
	return string(cleanOutput(output))
}

// cleanOutput strips a UTF-8 BOM and surrounding whitespace.
func cleanOutput(output []byte) []byte {
	output = bytes.TrimPrefix(output, []byte("\xef\xbb\xbf"))
	return bytes.TrimSpace(output)
}

// flexInts decodes a JSON number, array of numbers or null. ConvertTo-Json
// collapses single-element arrays depending on the PowerShell version.
type flexInts []int

func (f *flexInts) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var v []int
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = v
		return nil
	default:
		var v int
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexInts{v}
		return nil
	}
}

// flexStrings decodes a JSON string, array of strings or null.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = nil
		return nil
	case len(data) > 0 && data[0] == '[':
		var v []string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = v
		return nil
	default:
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexStrings{v}
		return nil
	}
}
