package main

import (
	"io"

	"github.com/fgeck/lenovo-fwprep/internal/config"
	"github.com/fgeck/lenovo-fwprep/internal/logging"
	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	verbose    bool
	quiet      bool
	jsonOutput bool

	// Loaded before any subcommand runs.
	cfg       *models.ReconcileConfig
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "fwprep",
	Short: "Prepare Lenovo firmware settings for OS deployment",
	Long: `fwprep reconciles Lenovo firmware settings through the vendor WMI interface:
  - Secure boot (boot mode conversion)
  - Security chip (TPM)
  - Virtualization and VT-d (guard prep)

Run it from a deployment task sequence, locally or against a target over SSH.

Exit codes:
  0 success or nothing to do
  1 usage, configuration or unexpected error
  2 wrong manufacturer
  3 firmware password set but none supplied
  4 firmware settings unreadable
  5 boot mode change failed
  6 TPM change failed
  7 virtualization change failed`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	Version:            Version,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (optional)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	flags.BoolVar(&jsonOutput, "json", false, "output logs in JSON format")
	flags.String("log-file", "", "append timestamped logs to this file")
	flags.String("password", "", "firmware supervisor password token, e.g. pass,ascii,us (or FWPREP_PASSWORD)")
	flags.String("manufacturer", models.DefaultManufacturer, "expected manufacturer string")
	flags.String("ssh-host", "", "reconcile a remote target over SSH instead of this machine")
	flags.Int("ssh-port", 22, "SSH port of the remote target")
	flags.String("ssh-user", "Administrator", "SSH user on the remote target")
	flags.String("ssh-key", "", "private key file for the remote target")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(validateCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := setupLogging(""); err != nil {
		return err
	}

	parser := config.NewParser()
	if err := parser.BindFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := parser.BindFlags(cmd.InheritedFlags()); err != nil {
		return err
	}

	loaded, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}
	cfg = loaded

	if cfg.Log.File != "" {
		return setupLogging(cfg.Log.File)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}

func setupLogging(file string) error {
	logger, closer, err := logging.New(logging.Options{
		JSON:    jsonOutput,
		Verbose: verbose,
		Quiet:   quiet,
		File:    file,
	})
	if err != nil {
		log.Error().Err(err).Str("file", file).Msg("failed to open log file")
		return err
	}

	log.Logger = logger
	logCloser = closer
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
