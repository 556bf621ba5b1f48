// Package reconciler brings firmware settings to the state an OS deployment
// expects: secure boot on and, optionally, TPM and virtualization enabled.
package reconciler

import (
	"context"
	"fmt"

	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/fgeck/lenovo-fwprep/internal/services/wmi"
	"github.com/rs/zerolog"
)

// Service defines the interface for the firmware reconciler.
type Service interface {
	Run(ctx context.Context, cfg models.ReconcileConfig) (*models.Report, error)
	Inspect(ctx context.Context, cfg models.ReconcileConfig) (*models.Report, error)
}

// Impl implements the reconciler Service interface.
type Impl struct {
	fw     wmi.Service
	logger zerolog.Logger
}

// New creates a new reconciler talking to the management interface through executor.
func New(logger zerolog.Logger, executor wmi.Executor) *Impl {
	return &Impl{
		fw:     wmi.New(logger, executor),
		logger: logger,
	}
}

// NewWithService creates a new reconciler with a custom management interface (for testing).
func NewWithService(logger zerolog.Logger, fw wmi.Service) *Impl {
	return &Impl{
		fw:     fw,
		logger: logger,
	}
}

// Run executes preflight, the boot-mode step and, when requested together
// with it, the guard-prep steps. The first failure aborts the run with an
// *ExitError; changes already saved stay in place.
//
//nolint:gocognit,gocyclo // reconcile workflow has multiple steps by design
func (s *Impl) Run(ctx context.Context, cfg models.ReconcileConfig) (*models.Report, error) {
	report := &models.Report{}

	s.logger.Info().
		Bool("convert_boot_mode", cfg.ConvertBootMode).
		Bool("guard_prep", cfg.GuardPrep).
		Bool("dry_run", cfg.DryRun).
		Bool("password", cfg.Password != "").
		Msg("starting firmware reconcile")

	// Preflight: manufacturer, settings, password lock.
	profile, err := s.fw.Profile(ctx)
	if err != nil {
		return report, preflightError(ExitSettingsUnreadable, "%w", err)
	}
	report.Profile = *profile

	s.logger.Info().
		Str("manufacturer", profile.Manufacturer).
		Str("model", profile.Model).
		Stringer("chassis", profile.Chassis).
		Bool("password_locked", profile.AdminPasswordLocked).
		Msg("machine profile read")

	expected := cfg.ExpectedManufacturer
	if expected == "" {
		expected = models.DefaultManufacturer
	}
	if !profile.IsManufacturer(expected) {
		return report, preflightError(ExitWrongManufacturer,
			"manufacturer %q is not %q", profile.Manufacturer, expected)
	}

	rules := RulesFor(profile.Chassis, cfg.Rules)
	if rules == nil {
		return report, preflightError(ExitSettingsUnreadable, "unsupported chassis for model %q", profile.Model)
	}

	settings, err := s.fw.Settings(ctx)
	if err != nil {
		return report, preflightError(ExitSettingsUnreadable, "%w", err)
	}
	if len(settings) == 0 {
		return report, preflightError(ExitSettingsUnreadable, "no firmware settings reported, firmware may be outdated or unsupported")
	}

	requested := requestedSteps(cfg)
	for _, step := range requested {
		if _, ok := find(settings, rules[step].Name); !ok {
			return report, preflightError(ExitSettingsUnreadable, "setting %q not reported by firmware", rules[step].Name)
		}
	}

	if profile.AdminPasswordLocked && cfg.Password == "" {
		return report, preflightError(ExitPasswordLocked, "firmware is password protected and no password was supplied")
	}

	s.logger.Info().Int("settings", len(settings)).Msg("preflight passed")

	if !cfg.ConvertBootMode {
		if cfg.GuardPrep {
			s.logger.Warn().Msg("guard prep requires boot mode conversion, nothing to do")
		} else {
			s.logger.Info().Msg("no steps requested, nothing to do")
		}
		return report, nil
	}

	for _, step := range requested {
		// Toggling virtualization can change how the firmware reports VT-d.
		if step == models.StepIOVirtualization && virtualizationApplied(report) {
			s.logger.Debug().Msg("re-reading settings after virtualization change")
			settings, err = s.fw.Settings(ctx)
			if err != nil {
				return report, stepError(step, err)
			}
		}

		rule := rules[step]
		snapshot, ok := find(settings, rule.Name)
		if !ok {
			return report, stepError(step, fmt.Errorf("setting %q not reported by firmware", rule.Name))
		}

		outcome, err := s.reconcile(ctx, cfg, step, rule, snapshot)
		report.Steps = append(report.Steps, outcome)
		if err != nil {
			return report, err
		}
	}

	s.logger.Info().
		Int("applied", report.Applied()).
		Bool("dry_run", cfg.DryRun).
		Msg("firmware reconcile completed")

	return report, nil
}

// Inspect reads the profile and settings and reports what every step would
// do. It never changes firmware and does not enforce preflight.
func (s *Impl) Inspect(ctx context.Context, cfg models.ReconcileConfig) (*models.Report, error) {
	report := &models.Report{}

	profile, err := s.fw.Profile(ctx)
	if err != nil {
		return report, preflightError(ExitSettingsUnreadable, "%w", err)
	}
	report.Profile = *profile

	rules := RulesFor(profile.Chassis, cfg.Rules)
	if rules == nil {
		return report, nil
	}

	settings, err := s.fw.Settings(ctx)
	if err != nil {
		return report, preflightError(ExitSettingsUnreadable, "%w", err)
	}

	for _, step := range models.Steps {
		rule := rules[step]
		outcome := models.StepOutcome{Step: step, Setting: rule.Name, Action: models.ActionMissing}

		if snapshot, ok := find(settings, rule.Name); ok {
			outcome.RawState = snapshot.RawState
			outcome.Action = models.ActionSkipped
			if verb, ok := rule.Target(snapshot.RawState); ok {
				cmd := models.CommandString{Setting: rule.Name, Verb: verb, Password: cfg.Password}
				outcome.Command = cmd.Redacted()
				outcome.Action = models.ActionDryRun
			}
		}

		report.Steps = append(report.Steps, outcome)
	}

	return report, nil
}

func (s *Impl) reconcile(
	ctx context.Context,
	cfg models.ReconcileConfig,
	step models.Step,
	rule Rule,
	snapshot models.SettingSnapshot,
) (models.StepOutcome, error) {
	outcome := models.StepOutcome{
		Step:     step,
		Setting:  rule.Name,
		RawState: snapshot.RawState,
		Action:   models.ActionSkipped,
	}

	verb, ok := rule.Target(snapshot.RawState)
	if !ok {
		s.logger.Info().
			Str("step", string(step)).
			Str("setting", rule.Name).
			Str("state", snapshot.RawState).
			Msg("setting already in expected state, skipping")
		return outcome, nil
	}

	cmd := models.CommandString{Setting: rule.Name, Verb: verb, Password: cfg.Password}
	outcome.Command = cmd.Redacted()

	if cfg.DryRun {
		outcome.Action = models.ActionDryRun
		s.logger.Info().
			Str("step", string(step)).
			Str("state", snapshot.RawState).
			Str("command", cmd.Redacted()).
			Msg("dry run, would set and save setting")
		return outcome, nil
	}

	s.logger.Info().
		Str("step", string(step)).
		Str("state", snapshot.RawState).
		Str("command", cmd.Redacted()).
		Msg("setting firmware setting")

	outcome.Action = models.ActionFailed

	result, err := s.fw.SetSetting(ctx, cmd)
	if err != nil {
		return outcome, stepError(step, err)
	}
	if result != wmi.StatusSuccess {
		return outcome, stepError(step, fmt.Errorf("SetBiosSetting %q returned %q", cmd.Redacted(), result))
	}

	result, err = s.fw.SaveSettings(ctx, cfg.Password)
	if err != nil {
		return outcome, stepError(step, err)
	}
	if result != wmi.StatusSuccess {
		return outcome, stepError(step, fmt.Errorf("SaveBiosSettings returned %q", result))
	}

	outcome.Action = models.ActionApplied
	s.logger.Info().
		Str("step", string(step)).
		Str("setting", rule.Name).
		Str("verb", verb).
		Msg("firmware setting saved")

	return outcome, nil
}

// requestedSteps lists the steps cfg asks for, in execution order.
func requestedSteps(cfg models.ReconcileConfig) []models.Step {
	if !cfg.ConvertBootMode {
		return nil
	}
	if !cfg.GuardPrep {
		return []models.Step{models.StepSecureBoot}
	}
	return []models.Step{
		models.StepSecureBoot,
		models.StepTPM,
		models.StepVirtualization,
		models.StepIOVirtualization,
	}
}

func virtualizationApplied(report *models.Report) bool {
	for _, s := range report.Steps {
		if s.Step == models.StepVirtualization {
			return s.Action == models.ActionApplied
		}
	}
	return false
}

func find(settings []models.SettingSnapshot, name string) (models.SettingSnapshot, bool) {
	for _, s := range settings {
		if s.Name == name {
			return s, true
		}
	}
	return models.SettingSnapshot{}, false
}
