package main

import (
	"errors"
	"fmt"

	"github.com/fgeck/lenovo-fwprep/internal/config"
	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/fgeck/lenovo-fwprep/internal/services/reconciler"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var errConfigRequired = errors.New("config file is required, pass --config")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without touching firmware.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return errConfigRequired
	}

	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Manufacturer: %s\n", cfg.ExpectedManufacturer)
	fmt.Printf("  Convert boot mode: %v\n", cfg.ConvertBootMode)
	fmt.Printf("  Guard prep: %v\n", cfg.GuardPrep)
	fmt.Printf("  Dry run: %v\n", cfg.DryRun)
	fmt.Printf("  Password: %v\n", cfg.Password != "")
	if cfg.GuardPrep && !cfg.ConvertBootMode {
		fmt.Println("  Note: guard prep has no effect without boot mode conversion")
	}

	if cfg.Log.File != "" {
		fmt.Println()
		fmt.Println("Logging:")
		fmt.Printf("  File: %s\n", cfg.Log.File)
	}

	if cfg.Remote != nil {
		fmt.Println()
		fmt.Println("Remote Target:")
		fmt.Printf("  Host: %s\n", cfg.Remote.Host)
		fmt.Printf("  Port: %d\n", cfg.Remote.Port)
		fmt.Printf("  Username: %s\n", cfg.Remote.Username)
		fmt.Printf("  Key: %s\n", cfg.Remote.KeyPath)
	}

	for _, chassis := range []models.ChassisKind{models.ChassisLaptop, models.ChassisDesktop} {
		if len(cfg.Rules.For(chassis)) == 0 {
			continue
		}
		fmt.Println()
		fmt.Printf("Rules (%s):\n", chassis)
		rules := reconciler.RulesFor(chassis, cfg.Rules)
		for _, step := range models.Steps {
			fmt.Printf("  %s: %s %v\n", step, rules[step].Name, rules[step].Transitions)
		}
	}

	return nil
}
