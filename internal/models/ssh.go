package models

// SSHConfig describes a remote deployment target reached over SSH.
type SSHConfig struct {
	Host       string
	Port       int
	Username   string
	PrivateKey []byte // loaded from file path
	KeyPath    string // path to key file
}

// SSHResult holds the result of an SSH connectivity check.
type SSHResult struct {
	CommandRun bool
	Output     string
	Error      error
}
