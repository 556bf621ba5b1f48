package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadReader_MinimalConfig(t *testing.T) {
	yaml := `
reconcile:
  convert_boot_mode: true
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.True(t, cfg.ConvertBootMode)
	assert.False(t, cfg.GuardPrep)
	assert.False(t, cfg.DryRun)
	assert.Empty(t, cfg.Password)
	// Check defaults
	assert.Equal(t, "LENOVO", cfg.ExpectedManufacturer)
	assert.Nil(t, cfg.Remote)
	assert.Empty(t, cfg.Log.File)
	assert.Nil(t, cfg.Rules.Laptop)
	assert.Nil(t, cfg.Rules.Desktop)
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
reconcile:
  convert_boot_mode: true
  guard_prep: true
  dry_run: true
  password: "s3cret"
  manufacturer: "Lenovo"

log:
  file: "C:\\Windows\\Temp\\fwprep.log"

ssh:
  host: "10.0.0.42"
  port: 2222
  username: "deploy"
  key_path: "/keys/id_ed25519"

rules:
  laptop:
    secure_boot:
      name: "Secure Boot"
      transitions:
        - "Disabled=Enabled"
        - "Off = On"
  desktop:
    tpm:
      transitions:
        - "Disabled=Active"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.True(t, cfg.ConvertBootMode)
	assert.True(t, cfg.GuardPrep)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, "Lenovo", cfg.ExpectedManufacturer)
	assert.Equal(t, `C:\Windows\Temp\fwprep.log`, cfg.Log.File)

	require.NotNil(t, cfg.Remote)
	assert.Equal(t, "10.0.0.42", cfg.Remote.Host)
	assert.Equal(t, 2222, cfg.Remote.Port)
	assert.Equal(t, "deploy", cfg.Remote.Username)
	assert.Equal(t, "/keys/id_ed25519", cfg.Remote.KeyPath)

	assert.Equal(t, map[models.Step]models.RuleOverride{
		models.StepSecureBoot: {
			Name:        "Secure Boot",
			Transitions: map[string]string{"Disabled": "Enabled", "Off": "On"},
		},
	}, cfg.Rules.Laptop)
	assert.Equal(t, map[models.Step]models.RuleOverride{
		models.StepTPM: {
			Transitions: map[string]string{"Disabled": "Active"},
		},
	}, cfg.Rules.Desktop)
}

func TestParser_LoadReader_SSHDefaults(t *testing.T) {
	yaml := `
ssh:
  host: "10.0.0.42"
  key_path: "/keys/id_ed25519"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	require.NotNil(t, cfg.Remote)
	assert.Equal(t, 22, cfg.Remote.Port)
	assert.Equal(t, "Administrator", cfg.Remote.Username)
}

func TestParser_LoadReader_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "ssh without key",
			yaml: `
ssh:
  host: "10.0.0.42"
`,
			wantErr: "ssh.key_path is required",
		},
		{
			name: "ssh invalid port",
			yaml: `
ssh:
  host: "10.0.0.42"
  key_path: "/keys/id"
  port: 70000
`,
			wantErr: "ssh.port must be between",
		},
		{
			name: "malformed transition",
			yaml: `
rules:
  laptop:
    virtualization:
      transitions:
        - "Disable"
`,
			wantErr: "must be of the form From=To",
		},
		{
			name: "empty rule override",
			yaml: `
rules:
  desktop:
    io_virtualization:
      name: ""
`,
			wantErr: "must set name or transitions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			_, err := parser.LoadReader(tt.yaml)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParser_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_FW_PASSWORD", "fromenv")

	yaml := `
reconcile:
  password: "${TEST_FW_PASSWORD}"
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "fromenv", cfg.Password)
}

func TestParser_PasswordFromEnvironment(t *testing.T) {
	t.Setenv("FWPREP_PASSWORD", "tsvar")

	parser := NewParser()
	cfg, err := parser.LoadFile("")

	require.NoError(t, err)
	assert.Equal(t, "tsvar", cfg.Password)
}

func TestParser_PasswordWithEncodingSuffix(t *testing.T) {
	t.Setenv("FWPREP_PASSWORD", "pass,ascii,us")

	parser := NewParser()
	cfg, err := parser.LoadFile("")

	require.NoError(t, err)
	assert.Equal(t, "pass,ascii,us", cfg.Password)
}

func TestParser_AutomaticEnv(t *testing.T) {
	t.Setenv("FWPREP_RECONCILE_DRY_RUN", "true")

	parser := NewParser()
	cfg, err := parser.LoadFile("")

	require.NoError(t, err)
	assert.True(t, cfg.DryRun)
}

func TestParser_BindFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("convert-boot-mode", false, "")
	flags.Bool("guard-prep", false, "")
	flags.String("manufacturer", "LENOVO", "")
	flags.String("unrelated", "", "")
	require.NoError(t, flags.Parse([]string{"--convert-boot-mode", "--guard-prep"}))

	parser := NewParser()
	require.NoError(t, parser.BindFlags(flags))

	cfg, err := parser.LoadReader(`
reconcile:
  convert_boot_mode: false
  manufacturer: "LENOVO "
`)

	require.NoError(t, err)
	// Changed flags win over the file.
	assert.True(t, cfg.ConvertBootMode)
	assert.True(t, cfg.GuardPrep)
	assert.Equal(t, "LENOVO", cfg.ExpectedManufacturer)
}

func TestParser_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fwprep.yaml")
	err := os.WriteFile(path, []byte(`
reconcile:
  convert_boot_mode: true
  dry_run: true
`), 0o600)
	require.NoError(t, err)

	parser := NewParser()
	cfg, err := parser.LoadFile(path)

	require.NoError(t, err)
	assert.True(t, cfg.ConvertBootMode)
	assert.True(t, cfg.DryRun)
}

func TestParser_LoadFile_NotFound(t *testing.T) {
	parser := NewParser()
	_, err := parser.LoadFile("/nonexistent/fwprep.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate(t *testing.T) {
	assert.Error(t, Validate(nil))
	assert.NoError(t, Validate(&models.ReconcileConfig{Password: "secret"}))
	assert.NoError(t, Validate(&models.ReconcileConfig{Password: "pass,ascii,us"}))
	assert.Error(t, Validate(&models.ReconcileConfig{Remote: &models.SSHConfig{}}))
}
