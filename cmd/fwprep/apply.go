package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/fgeck/lenovo-fwprep/internal/services/powershell"
	"github.com/fgeck/lenovo-fwprep/internal/services/reconciler"
	"github.com/fgeck/lenovo-fwprep/internal/services/ssh"
	"github.com/fgeck/lenovo-fwprep/internal/services/wmi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Reconcile firmware settings",
	Long: `Reconcile firmware settings in order:
1. Preflight: manufacturer, readable settings, password lock
2. Secure boot (--convert-boot-mode)
3. Security chip, virtualization, VT-d (--guard-prep, requires --convert-boot-mode)

Each setting found in a known disabled state is set and saved. Any failure
stops the run; settings already saved stay saved.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().Bool("convert-boot-mode", false, "enable secure boot")
	applyCmd.Flags().Bool("guard-prep", false, "enable TPM, virtualization and VT-d (requires --convert-boot-mode)")
	applyCmd.Flags().Bool("dry-run", false, "report what would be sent without changing firmware")
}

func runApply(cmd *cobra.Command, args []string) error {
	log.Info().
		Bool("remote", cfg.Remote != nil).
		Str("manufacturer", cfg.ExpectedManufacturer).
		Msg("configuration loaded")

	// Signals do not cancel the run. A console Ctrl+C can still reach a
	// local powershell.exe child.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sigChan)
		close(done)
	}()

	go logSignals(sigChan, done)

	svc := reconciler.New(log.Logger, newExecutor(cfg))
	report, err := svc.Run(context.Background(), *cfg)
	if err != nil {
		log.Error().Err(err).Int("exit_code", exitCode(err)).Msg("firmware reconcile failed")
		return err
	}

	log.Info().
		Int("applied", report.Applied()).
		Bool("dry_run", cfg.DryRun).
		Msg("firmware reconcile finished")
	return nil
}

// logSignals logs every signal received on sigChan until done is closed.
func logSignals(sigChan <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, finishing firmware reconcile first")
		case <-done:
			return
		}
	}
}

// newExecutor returns the PowerShell transport for the configured target.
func newExecutor(cfg *models.ReconcileConfig) wmi.Executor {
	if cfg.Remote != nil {
		return ssh.New(log.Logger, *cfg.Remote)
	}
	return powershell.New(log.Logger)
}
