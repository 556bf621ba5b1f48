package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fgeck/lenovo-fwprep/internal/services/reconciler"
	"github.com/fgeck/lenovo-fwprep/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show firmware settings and the planned changes",
	Long:  `Read the machine profile and firmware settings and print what apply would change. Firmware is never modified.`,
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if cfg.Remote != nil {
		result, err := ssh.New(log.Logger, *cfg.Remote).TestConnection(ctx)
		if err != nil {
			return err
		}
		if result.Error != nil {
			log.Error().Err(result.Error).Str("host", cfg.Remote.Host).Msg("remote target not reachable")
			return result.Error
		}
	}

	svc := reconciler.New(log.Logger, newExecutor(cfg))
	report, err := svc.Inspect(ctx, *cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to inspect firmware")
		return err
	}

	p := report.Profile
	fmt.Println("Machine:")
	fmt.Printf("  Manufacturer: %s\n", p.Manufacturer)
	fmt.Printf("  Model: %s\n", p.Model)
	fmt.Printf("  Chassis: %s\n", p.Chassis)
	fmt.Printf("  Password locked: %v\n", p.AdminPasswordLocked)
	fmt.Printf("  Supported: %v\n", p.IsManufacturer(cfg.ExpectedManufacturer) && len(report.Steps) > 0)

	if len(report.Steps) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSETTING\tSTATE\tACTION\tCOMMAND")
	for _, s := range report.Steps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Step, s.Setting, s.RawState, s.Action, s.Command)
	}
	return w.Flush()
}
