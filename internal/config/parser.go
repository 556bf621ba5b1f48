// Package config provides configuration parsing from file, environment and flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the parser.
const EnvPrefix = "FWPREP"

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"convert-boot-mode": "reconcile.convert_boot_mode",
	"guard-prep":        "reconcile.guard_prep",
	"dry-run":           "reconcile.dry_run",
	"password":          "reconcile.password",
	"manufacturer":      "reconcile.manufacturer",
	"log-file":          "log.file",
	"ssh-host":          "ssh.host",
	"ssh-port":          "ssh.port",
	"ssh-user":          "ssh.username",
	"ssh-key":           "ssh.key_path",
}

var ruleSections = map[string]models.ChassisKind{
	"laptop":  models.ChassisLaptop,
	"desktop": models.ChassisDesktop,
}

// Parser handles configuration parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Task sequence variables are usually exposed under the short name.
	_ = v.BindEnv("reconcile.password", EnvPrefix+"_PASSWORD", EnvPrefix+"_RECONCILE_PASSWORD")

	v.SetDefault("reconcile.manufacturer", models.DefaultManufacturer)
	v.SetDefault("ssh.port", 22)
	v.SetDefault("ssh.username", "Administrator")

	return &Parser{v: v}
}

// BindFlags binds every flag in flags that has an entry in FlagKeys.
func (p *Parser) BindFlags(flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := p.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// LoadFile loads configuration from a file path. An empty path loads
// configuration from environment and flags only.
func (p *Parser) LoadFile(path string) (*models.ReconcileConfig, error) {
	if path == "" {
		return p.parse()
	}

	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.ReconcileConfig, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.ReconcileConfig, error) {
	cfg := &models.ReconcileConfig{
		ConvertBootMode:      p.v.GetBool("reconcile.convert_boot_mode"),
		GuardPrep:            p.v.GetBool("reconcile.guard_prep"),
		DryRun:               p.v.GetBool("reconcile.dry_run"),
		Password:             p.expandEnv(p.v.GetString("reconcile.password")),
		ExpectedManufacturer: strings.TrimSpace(p.v.GetString("reconcile.manufacturer")),
		Log: models.LogSettings{
			File: p.expandEnv(p.v.GetString("log.file")),
		},
	}

	if cfg.ExpectedManufacturer == "" {
		cfg.ExpectedManufacturer = models.DefaultManufacturer
	}

	// Parse optional remote target.
	if host := p.v.GetString("ssh.host"); host != "" {
		cfg.Remote = &models.SSHConfig{
			Host:     host,
			Port:     p.v.GetInt("ssh.port"),
			Username: p.v.GetString("ssh.username"),
			KeyPath:  p.expandEnv(p.v.GetString("ssh.key_path")),
		}

		if cfg.Remote.KeyPath == "" {
			return nil, fmt.Errorf("ssh.key_path is required when ssh.host is configured")
		}
		if cfg.Remote.Port <= 0 || cfg.Remote.Port > 65535 {
			return nil, fmt.Errorf("ssh.port must be between 1 and 65535")
		}
	}

	// Parse optional rule overrides.
	for section, chassis := range ruleSections {
		overrides, err := p.parseRules("rules." + section)
		if err != nil {
			return nil, err
		}
		switch chassis {
		case models.ChassisLaptop:
			cfg.Rules.Laptop = overrides
		case models.ChassisDesktop:
			cfg.Rules.Desktop = overrides
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (p *Parser) parseRules(prefix string) (map[models.Step]models.RuleOverride, error) {
	if !p.v.IsSet(prefix) {
		return nil, nil
	}

	overrides := make(map[models.Step]models.RuleOverride)
	for _, step := range models.Steps {
		key := prefix + "." + string(step)
		if !p.v.IsSet(key) {
			continue
		}

		override := models.RuleOverride{
			Name: strings.TrimSpace(p.v.GetString(key + ".name")),
		}

		transitions := p.v.GetStringSlice(key + ".transitions")
		if len(transitions) > 0 {
			override.Transitions = make(map[string]string, len(transitions))
		}
		for _, t := range transitions {
			from, to, ok := strings.Cut(t, "=")
			from, to = strings.TrimSpace(from), strings.TrimSpace(to)
			if !ok || from == "" || to == "" {
				return nil, fmt.Errorf("%s.transitions: %q must be of the form From=To", key, t)
			}
			override.Transitions[from] = to
		}

		if override.Name == "" && len(override.Transitions) == 0 {
			return nil, fmt.Errorf("%s must set name or transitions", key)
		}

		overrides[step] = override
	}

	return overrides, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.ReconcileConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Remote != nil && cfg.Remote.Host == "" {
		return fmt.Errorf("ssh.host is required for a remote target")
	}

	return nil
}
