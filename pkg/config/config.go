package config

import (
	"fmt"
	"os"
	"time"
)

// Built-in defaults used when neither a flag nor the matching environment
// variable supplies a path.
const (
	defaultPrivateKeyPath = "pico_priv_key.der"
	defaultPublicKeyPath  = "pico_pub_key.der"
	defaultUsersPath      = "users.txt"
)

// Config holds the authentication peripheral's configuration.
type Config struct {
	// Key material
	PrivateKeyPath string
	PublicKeyPath  string
	UsersPath      string

	// Framing
	MaxSendSize int

	// Lifecycle
	RecycleInterval time.Duration

	// Logging configuration
	LogLevel string
}

// New creates a new configuration. Per spec.md §7, a missing key or user
// file is not a configuration error: it is resolved later by keys.Load,
// which logs the failure and lets the FSM start regardless. Only the
// framing and lifecycle parameters are validated here: both must be
// positive (the Framer/TimerService constructors would otherwise silently
// substitute their defaults). The upper bound on maxSendSize is checked
// by NewFramer, not here.
//
// If a path is not supplied by its flag, it falls back to an environment
// variable (AUTHPERIPHERAL_KEY_DIR, AUTHPERIPHERAL_PUBKEY_DIR,
// AUTHPERIPHERAL_USERS_PATH), mirroring the teacher's PUMPX2_PATH fallback.
func New(privateKeyPath, publicKeyPath, usersPath string, maxSendSize int, recycleInterval time.Duration, logLevel string) (*Config, error) {
	if privateKeyPath == "" {
		privateKeyPath = os.Getenv("AUTHPERIPHERAL_KEY_DIR")
	}
	if privateKeyPath == "" {
		privateKeyPath = defaultPrivateKeyPath
	}

	if publicKeyPath == "" {
		publicKeyPath = os.Getenv("AUTHPERIPHERAL_PUBKEY_DIR")
	}
	if publicKeyPath == "" {
		publicKeyPath = defaultPublicKeyPath
	}

	if usersPath == "" {
		usersPath = os.Getenv("AUTHPERIPHERAL_USERS_PATH")
	}
	if usersPath == "" {
		usersPath = defaultUsersPath
	}

	if maxSendSize <= 0 {
		return nil, fmt.Errorf("invalid max-send-size: %d (must be positive)", maxSendSize)
	}

	if recycleInterval <= 0 {
		return nil, fmt.Errorf("invalid recycle-interval: %s (must be positive)", recycleInterval)
	}

	return &Config{
		PrivateKeyPath:  privateKeyPath,
		PublicKeyPath:   publicKeyPath,
		UsersPath:       usersPath,
		MaxSendSize:     maxSendSize,
		RecycleInterval: recycleInterval,
		LogLevel:        logLevel,
	}, nil
}
