package config

import "time"

type SecurityConfig interface {
	GetSigningKeyPEM() string
	GetSigningKeyID() string
	GetLoginRateLimit() (requests int, window time.Duration)
	GetEnableRateLimiting() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetSigningKeyPEM returns the PEM-encoded RSA private key for access
// tokens. Empty means generate an ephemeral key at startup (DEV only; every
// restart invalidates outstanding access tokens).
func (Security) GetSigningKeyPEM() string {
	return GetEnv("SIGNING_KEY_PEM", "")
}

func (Security) GetSigningKeyID() string {
	return GetEnv("SIGNING_KEY_ID", "login-global-1")
}

// GetLoginRateLimit caps credential checks per client IP.
func (Security) GetLoginRateLimit() (int, time.Duration) {
	return 5, 60 * time.Second
}

func (Security) GetEnableRateLimiting() bool {
	return GetEnv("DISABLE_RATE_LIMITING", "") == ""
}
