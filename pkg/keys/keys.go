// Package keys loads the fixed-path key and user files the external
// authentication FSM consumes (spec.md §6 "Persisted inputs"). Parsing
// the DER key material and interpreting the user list are out of scope
// here; this package only reads bytes off disk.
package keys

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Material holds the raw bytes read from the key/user files, handed to
// AuthFSM.Start unparsed.
type Material struct {
	PrivateKeyDER []byte
	PublicKeyDER  []byte
	Users         []byte
}

// Load reads the private key, public key, and user list files. Per
// spec.md §7, a load failure is logged, not fatal: the FSM is still
// started, and its behaviour under missing credentials is its own
// concern.
func Load(privateKeyPath, publicKeyPath, usersPath string) *Material {
	m := &Material{}

	if b, err := os.ReadFile(privateKeyPath); err != nil {
		log.Errorf("keys: failed to load private key %s: %v", privateKeyPath, err)
	} else {
		m.PrivateKeyDER = b
	}

	if b, err := os.ReadFile(publicKeyPath); err != nil {
		log.Errorf("keys: failed to load public key %s: %v", publicKeyPath, err)
	} else {
		m.PublicKeyDER = b
	}

	if b, err := os.ReadFile(usersPath); err != nil {
		log.Errorf("keys: failed to load user file %s: %v", usersPath, err)
	} else {
		m.Users = b
	}

	return m
}
