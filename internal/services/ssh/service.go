// Package ssh runs PowerShell scripts on a remote deployment target over SSH.
package ssh

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/fgeck/lenovo-fwprep/internal/models"
	"github.com/fgeck/lenovo-fwprep/internal/services/powershell"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	Output(cmd string) ([]byte, error)
	Close() error
}

// ClientFactory creates SSH clients.
type ClientFactory interface {
	NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

// DefaultClientFactory is the default SSH client factory.
type DefaultClientFactory struct{}

// NewClient creates a new SSH client.
func (f *DefaultClientFactory) NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, err
	}
	return &defaultSSHClient{client: client}, nil
}

type defaultSSHClient struct {
	client *ssh.Client
}

func (c *defaultSSHClient) NewSession() (SSHSession, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &defaultSSHSession{session: session}, nil
}

func (c *defaultSSHClient) Close() error {
	return c.client.Close()
}

type defaultSSHSession struct {
	session *ssh.Session
}

func (s *defaultSSHSession) Output(cmd string) ([]byte, error) {
	return s.session.Output(cmd)
}

func (s *defaultSSHSession) Close() error {
	return s.session.Close()
}

// Impl runs scripts on one remote host. Every Execute opens its own
// connection.
type Impl struct {
	cfg           models.SSHConfig
	clientFactory ClientFactory
	logger        zerolog.Logger
}

// New creates a new remote runner for cfg.
func New(logger zerolog.Logger, cfg models.SSHConfig) *Impl {
	return &Impl{
		cfg:           cfg,
		clientFactory: &DefaultClientFactory{},
		logger:        logger,
	}
}

// NewWithClientFactory creates a new remote runner with a custom client factory (for testing).
func NewWithClientFactory(logger zerolog.Logger, cfg models.SSHConfig, factory ClientFactory) *Impl {
	return &Impl{
		cfg:           cfg,
		clientFactory: factory,
		logger:        logger,
	}
}

func (s *Impl) buildConfig() (*ssh.ClientConfig, error) {
	var key []byte
	var err error

	switch {
	case len(s.cfg.PrivateKey) > 0:
		key = s.cfg.PrivateKey
	case s.cfg.KeyPath != "":
		key, err = os.ReadFile(s.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key from %s: %w", s.cfg.KeyPath, err)
		}
	default:
		return nil, fmt.Errorf("no private key provided")
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &ssh.ClientConfig{
		User: s.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // freshly imaged deployment targets have no known host key
		Timeout:         30 * time.Second,
	}, nil
}

func (s *Impl) connect(ctx context.Context) (SSHClient, error) {
	sshConfig, err := s.buildConfig()
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	clientChan := make(chan struct {
		client SSHClient
		err    error
	}, 1)

	go func() {
		client, err := s.clientFactory.NewClient("tcp", addr, sshConfig)
		clientChan <- struct {
			client SSHClient
			err    error
		}{client, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-clientChan:
		if res.err != nil {
			return nil, fmt.Errorf("failed to connect: %w", res.err)
		}
		return res.client, nil
	}
}

func (s *Impl) run(ctx context.Context, cmd string) ([]byte, error) {
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	return session.Output(cmd)
}

// Execute runs script through PowerShell on the remote host and returns its
// standard output.
func (s *Impl) Execute(ctx context.Context, script string) ([]byte, error) {
	cmd, err := powershell.CommandLine(script)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("host", s.cfg.Host).
		Int("script_len", len(script)).
		Msg("running remote PowerShell script")

	output, err := s.run(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("remote powershell on %s failed: %w, output: %s", s.cfg.Host, err, string(output))
	}
	return output, nil
}

// TestConnection verifies SSH connectivity and that PowerShell is available.
func (s *Impl) TestConnection(ctx context.Context) (*models.SSHResult, error) {
	result := &models.SSHResult{}

	s.logger.Debug().
		Str("host", s.cfg.Host).
		Int("port", s.cfg.Port).
		Msg("testing SSH connection")

	cmd, err := powershell.CommandLine("Write-Output OK")
	if err != nil {
		result.Error = err
		return result, nil
	}

	client, err := s.connect(ctx)
	if err != nil {
		result.Error = err
		return result, nil
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		return result, nil
	}
	defer session.Close()

	output, err := session.Output(cmd)
	result.Output = string(output)
	result.CommandRun = true

	if err != nil {
		result.Error = fmt.Errorf("test command failed: %w", err)
	}

	return result, nil
}
