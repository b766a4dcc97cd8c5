package config

import (
	"os"
	"testing"
	"time"
)

func TestNew_RejectsNonPositiveMaxSendSize(t *testing.T) {
	if _, err := New("priv", "pub", "users", 0, time.Second, "info"); err == nil {
		t.Fatal("expected an error for zero max-send-size")
	}
	if _, err := New("priv", "pub", "users", -1, time.Second, "info"); err == nil {
		t.Fatal("expected an error for negative max-send-size")
	}
}

func TestNew_RejectsNonPositiveRecycleInterval(t *testing.T) {
	if _, err := New("priv", "pub", "users", 128, 0, "info"); err == nil {
		t.Fatal("expected an error for zero recycle interval")
	}
	if _, err := New("priv", "pub", "users", 128, -time.Second, "info"); err == nil {
		t.Fatal("expected an error for negative recycle interval")
	}
}

// TestNew_MissingFilesAreNotConfigErrors checks that nonexistent key/user
// paths do not fail construction: loading those files is deferred to the
// keys package, which tolerates missing files.
func TestNew_MissingFilesAreNotConfigErrors(t *testing.T) {
	cfg, err := New("/nonexistent/priv.der", "/nonexistent/pub.der", "/nonexistent/users.txt", 128, time.Second, "info")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrivateKeyPath != "/nonexistent/priv.der" {
		t.Errorf("unexpected private key path: %s", cfg.PrivateKeyPath)
	}
}

// TestNew_EnvVarFallback checks that an empty path argument falls back to
// its environment variable, mirroring the teacher's PUMPX2_PATH pattern.
func TestNew_EnvVarFallback(t *testing.T) {
	t.Setenv("AUTHPERIPHERAL_KEY_DIR", "/env/priv.der")
	t.Setenv("AUTHPERIPHERAL_PUBKEY_DIR", "/env/pub.der")
	t.Setenv("AUTHPERIPHERAL_USERS_PATH", "/env/users.txt")

	cfg, err := New("", "", "", 128, time.Second, "info")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrivateKeyPath != "/env/priv.der" {
		t.Errorf("expected private key path from AUTHPERIPHERAL_KEY_DIR, got %s", cfg.PrivateKeyPath)
	}
	if cfg.PublicKeyPath != "/env/pub.der" {
		t.Errorf("expected public key path from AUTHPERIPHERAL_PUBKEY_DIR, got %s", cfg.PublicKeyPath)
	}
	if cfg.UsersPath != "/env/users.txt" {
		t.Errorf("expected users path from AUTHPERIPHERAL_USERS_PATH, got %s", cfg.UsersPath)
	}
}

// TestNew_FlagTakesPrecedenceOverEnvVar checks that a non-empty path
// argument is used as-is, ignoring the environment variable.
func TestNew_FlagTakesPrecedenceOverEnvVar(t *testing.T) {
	t.Setenv("AUTHPERIPHERAL_KEY_DIR", "/env/priv.der")

	cfg, err := New("/flag/priv.der", "pub", "users", 128, time.Second, "info")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrivateKeyPath != "/flag/priv.der" {
		t.Errorf("expected flag value to win over env var, got %s", cfg.PrivateKeyPath)
	}
}

// TestNew_BuiltinDefaultsWhenUnset checks that an empty path with no
// environment variable set falls back to the built-in default filename.
func TestNew_BuiltinDefaultsWhenUnset(t *testing.T) {
	os.Unsetenv("AUTHPERIPHERAL_KEY_DIR")
	os.Unsetenv("AUTHPERIPHERAL_PUBKEY_DIR")
	os.Unsetenv("AUTHPERIPHERAL_USERS_PATH")

	cfg, err := New("", "", "", 128, time.Second, "info")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrivateKeyPath != defaultPrivateKeyPath {
		t.Errorf("expected built-in default %s, got %s", defaultPrivateKeyPath, cfg.PrivateKeyPath)
	}
	if cfg.PublicKeyPath != defaultPublicKeyPath {
		t.Errorf("expected built-in default %s, got %s", defaultPublicKeyPath, cfg.PublicKeyPath)
	}
	if cfg.UsersPath != defaultUsersPath {
		t.Errorf("expected built-in default %s, got %s", defaultUsersPath, cfg.UsersPath)
	}
}
