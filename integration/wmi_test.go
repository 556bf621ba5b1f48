//go:build integration && windows

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/fgeck/lenovo-fwprep/internal/services/powershell"
	"github.com/fgeck/lenovo-fwprep/internal/services/reconciler"
	"github.com/fgeck/lenovo-fwprep/internal/services/wmi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func requireLenovo(t *testing.T, svc wmi.Service) *models.MachineProfile {
	t.Helper()

	profile, err := svc.Profile(context.Background())
	require.NoError(t, err)
	if !profile.IsManufacturer(models.DefaultManufacturer) {
		t.Skipf("not a Lenovo machine: %q", profile.Manufacturer)
	}
	return profile
}

func TestProfile_Integration(t *testing.T) {
	svc := wmi.New(testLogger(), powershell.New(testLogger()))

	profile, err := svc.Profile(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, profile.Manufacturer)
}

func TestSettings_Integration(t *testing.T) {
	svc := wmi.New(testLogger(), powershell.New(testLogger()))
	requireLenovo(t, svc)

	settings, err := svc.Settings(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, settings)
	for _, s := range settings {
		assert.NotEmpty(t, s.Name)
	}
}

func TestDryRun_Integration(t *testing.T) {
	logger := testLogger()
	fw := wmi.New(logger, powershell.New(logger))
	profile := requireLenovo(t, fw)
	if profile.AdminPasswordLocked && os.Getenv("TEST_FW_PASSWORD") == "" {
		t.Skip("firmware is password protected and TEST_FW_PASSWORD not set")
	}

	svc := reconciler.NewWithService(logger, fw)
	report, err := svc.Run(context.Background(), models.ReconcileConfig{
		ConvertBootMode:      true,
		GuardPrep:            true,
		DryRun:               true,
		Password:             os.Getenv("TEST_FW_PASSWORD"),
		ExpectedManufacturer: models.DefaultManufacturer,
	})

	require.NoError(t, err)
	assert.Len(t, report.Steps, 4)
	assert.Equal(t, 0, report.Applied())
}
