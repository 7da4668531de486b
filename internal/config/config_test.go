package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv() {
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("MFA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv()
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"AccessTokenExpiry", cfg.Auth.AccessTokenExpiry, 15 * time.Minute},
		{"ChallengeExpiry", cfg.Auth.ChallengeExpiry, 5 * time.Minute},
		{"LookbackWindow", cfg.Lockout.LookbackWindow, 15 * time.Minute},
		{"BlockWindow", cfg.Lockout.BlockWindow, 15 * time.Minute},
		{"MFALockoutDuration", cfg.MFA.LockoutDuration, 15 * time.Minute},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Lockout.MaxFailedAttempts != 5 {
		t.Errorf("MaxFailedAttempts: got %d, want 5", cfg.Lockout.MaxFailedAttempts)
	}
	if cfg.MFA.MaxAttempts != 5 {
		t.Errorf("MFA MaxAttempts: got %d, want 5", cfg.MFA.MaxAttempts)
	}
}

func TestLoad_CustomLockoutValues(t *testing.T) {
	setRequiredEnv()
	os.Setenv("LOCKOUT_MAX_FAILED_ATTEMPTS", "3")
	os.Setenv("LOCKOUT_BLOCK_WINDOW", "30m")
	os.Setenv("MFA_MAX_ATTEMPTS", "10")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Lockout.MaxFailedAttempts != 3 {
		t.Errorf("MaxFailedAttempts: got %d, want 3", cfg.Lockout.MaxFailedAttempts)
	}
	if cfg.Lockout.BlockWindow != 30*time.Minute {
		t.Errorf("BlockWindow: got %v, want 30m", cfg.Lockout.BlockWindow)
	}
	if cfg.MFA.MaxAttempts != 10 {
		t.Errorf("MFA MaxAttempts: got %d, want 10", cfg.MFA.MaxAttempts)
	}
}

func TestLoad_MissingJWTSecret(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("MFA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for missing JWT_SECRET")
	}
}

func TestLoad_WeakJWTSecretRejected(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "short")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("MFA_ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for weak JWT_SECRET")
	}
}

func TestLoad_BadEncryptionKeyLength(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	os.Setenv("DB_PASSWORD", "test")
	os.Setenv("MFA_ENCRYPTION_KEY", "too-short")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for bad MFA_ENCRYPTION_KEY length")
	}
}
