package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("TEST_JWT_SECRET", "s3cret")

	yamlContent := `
database:
  path: "test.db"
auth:
  jwt_secret: "${TEST_JWT_SECRET}"
payment:
  provider: "Sandbox"
booking:
  admin_override_ignores_stock: true
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("expected expanded jwt secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Payment.Provider != ProviderSandbox {
		t.Errorf("expected provider sandbox, got %s", cfg.Payment.Provider)
	}
	if !cfg.Booking.AdminOverrideIgnoresStock {
		t.Errorf("expected lenient admin override")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid sandbox",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Auth:     AuthConfig{JWTSecret: "secret"},
				Payment:  PaymentConfig{Provider: ProviderSandbox},
			},
		},
		{
			name: "missing jwt secret",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Payment:  PaymentConfig{Provider: ProviderSandbox},
			},
			wantErr: true,
		},
		{
			name: "missing db path",
			cfg: Config{
				Auth:    AuthConfig{JWTSecret: "secret"},
				Payment: PaymentConfig{Provider: ProviderSandbox},
			},
			wantErr: true,
		},
		{
			name: "stripe without key",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Auth:     AuthConfig{JWTSecret: "secret"},
				Payment:  PaymentConfig{Provider: ProviderStripe},
			},
			wantErr: true,
		},
		{
			name: "razorpay with keys",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Auth:     AuthConfig{JWTSecret: "secret"},
				Payment:  PaymentConfig{Provider: ProviderRazorpay, KeyID: "rzp_test", SecretKey: "x"},
			},
		},
		{
			name: "unknown provider",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Auth:     AuthConfig{JWTSecret: "secret"},
				Payment:  PaymentConfig{Provider: "paypal"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.GRPC.Port != 8081 {
		t.Errorf("expected default gRPC port 8081, got %d", cfg.API.GRPC.Port)
	}
	if cfg.Payment.Currency != "inr" {
		t.Errorf("expected default currency inr, got %s", cfg.Payment.Currency)
	}
	if cfg.Payment.Provider != ProviderSandbox {
		t.Errorf("expected default provider sandbox, got %s", cfg.Payment.Provider)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Errorf("expected default token ttl 2h, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.Booking.AdminOverrideIgnoresStock {
		t.Errorf("expected strict admin override by default")
	}
	if cfg.Worker.MaxRetries != 5 {
		t.Errorf("expected default max retries 5, got %d", cfg.Worker.MaxRetries)
	}
}
