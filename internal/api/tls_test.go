package api

import (
	"os"
	"path/filepath"
	"testing"

	"travelbooking/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTLSConfigErrors(t *testing.T) {
	dir := t.TempDir()
	notPEM := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(notPEM, []byte("not a certificate"), 0o600))

	tests := []struct {
		name string
		cfg  config.APITLSConfig
		is   error
	}{
		{name: "missing key pair", cfg: config.APITLSConfig{Enabled: true}, is: errTLSMisconfigured},
		{
			name: "client cert without ca",
			cfg:  config.APITLSConfig{CertFile: "c.pem", KeyFile: "k.pem", RequireClientCert: true},
			is:   errTLSMisconfigured,
		},
		{name: "unreadable key pair", cfg: config.APITLSConfig{CertFile: filepath.Join(dir, "c.pem"), KeyFile: filepath.Join(dir, "k.pem")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildTLSConfig(tt.cfg)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	_, err := loadCertPool(notPEM)
	assert.ErrorIs(t, err, errTLSMisconfigured)
}
