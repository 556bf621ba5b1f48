// Package powershell runs PowerShell scripts on the local machine.
package powershell

import (
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/unicode"
)

// Binary is the PowerShell executable available in Windows and WinPE images.
const Binary = "powershell.exe"

// CommandExecutor allows mocking exec.Command in tests.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command and returns its output.
func (e *DefaultExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// Impl runs scripts through a local PowerShell process.
type Impl struct {
	executor CommandExecutor
	logger   zerolog.Logger
}

// New creates a new local PowerShell runner.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new PowerShell runner with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor CommandExecutor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

// Execute runs script and returns its standard output.
func (s *Impl) Execute(ctx context.Context, script string) ([]byte, error) {
	args, err := Args(script)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Int("script_len", len(script)).Msg("running PowerShell script")

	output, err := s.executor.Execute(ctx, Binary, args...)
	if err != nil {
		return nil, fmt.Errorf("powershell failed: %w, output: %s", err, string(output))
	}
	return output, nil
}

// Args builds the PowerShell argument list for script. The script is passed
// as -EncodedCommand so no shell quoting applies.
func Args(script string) ([]string, error) {
	encoded, err := EncodeCommand(script)
	if err != nil {
		return nil, err
	}
	return []string{"-NoProfile", "-NonInteractive", "-ExecutionPolicy", "Bypass", "-EncodedCommand", encoded}, nil
}

// CommandLine is Args joined into a single command line, for transports that
// take one string.
func CommandLine(script string) (string, error) {
	encoded, err := EncodeCommand(script)
	if err != nil {
		return "", err
	}
	return Binary + " -NoProfile -NonInteractive -ExecutionPolicy Bypass -EncodedCommand " + encoded, nil
}

// EncodeCommand encodes script as base64 UTF-16LE, the format expected by
// -EncodedCommand.
func EncodeCommand(script string) (string, error) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	utf16, err := enc.String(script)
	if err != nil {
		return "", fmt.Errorf("failed to encode script: %w", err)
	}
	return base64.StdEncoding.EncodeToString([]byte(utf16)), nil
}
