package api

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"travelbooking/internal/config"
)

var errTLSMisconfigured = errors.New("grpc tls misconfigured")

// buildTLSConfig loads the server key pair and, when a client CA is given,
// verifies client certificates against it. RequireClientCert turns presented
// certificates into mandatory ones.
func buildTLSConfig(cfg config.APITLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("%w: cert_file and key_file are required", errTLSMisconfigured)
	}
	if cfg.RequireClientCert && cfg.ClientCAFile == "" {
		return nil, fmt.Errorf("%w: require_client_cert needs client_ca_file", errTLSMisconfigured)
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load grpc tls keypair: %w", err)
	}
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.ClientCAFile == "" {
		return tlsCfg, nil
	}

	pool, err := loadCertPool(cfg.ClientCAFile)
	if err != nil {
		return nil, err
	}
	tlsCfg.ClientCAs = pool
	tlsCfg.ClientAuth = tls.VerifyClientCertIfGiven
	if cfg.RequireClientCert {
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return tlsCfg, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client_ca_file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("%w: client_ca_file %s has no PEM certificates", errTLSMisconfigured, path)
	}
	return pool, nil
}
