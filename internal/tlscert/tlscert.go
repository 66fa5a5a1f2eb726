// Package tlscert provides TLS certificates for the composer's HTTPS
// listener, from files on disk or a generated self-signed pair for
// local development.
package tlscert

import (
	"crypto/tls"
	"fmt"

	"pgcomposer/internal/logging"
)

// Mode selects the certificate source.
type Mode string

const (
	ModeFile       Mode = "file"
	ModeSelfSigned Mode = "selfsigned"
)

// Config holds TLS certificate configuration. TLS is off unless Enabled
// is set.
type Config struct {
	Enabled bool `mapstructure:"enabled"`
	Mode    Mode `mapstructure:"mode"`

	// File mode.
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`

	// Self-signed mode.
	SelfSignedDir   string   `mapstructure:"self_signed_dir"`
	SelfSignedHosts []string `mapstructure:"self_signed_hosts"`
}

// Manager produces tls.Config values for the HTTP server.
type Manager interface {
	// TLSConfig returns a tls.Config ready for use with http.Server.
	TLSConfig() (*tls.Config, error)

	// Description names the certificate source for startup logs.
	Description() string
}

// NewManager builds a certificate manager for the configured mode.
func NewManager(cfg Config, logger *logging.Logger) (Manager, error) {
	switch cfg.Mode {
	case ModeFile:
		return newFileManager(cfg, logger)
	case ModeSelfSigned:
		return newSelfSignedManager(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported TLS certificate mode: %s (valid modes: file, selfsigned)", cfg.Mode)
	}
}

// Servers negotiate TLS 1.3 or better.
const minTLSVersion = tls.VersionTLS13
