// Package credential keeps the local profile identity in the system
// keyring. The profile id scopes every board read and write.
package credential

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/99designs/keyring"
	"github.com/google/uuid"

	"github.com/nhle/weekly-planner/internal/model"
)

const (
	serviceName = "planejamento"

	// OwnerKey is the keyring entry holding the profile id.
	OwnerKey = "owner-id"
)

// Vault reads and writes entries in a keyring.
type Vault struct {
	ring keyring.Keyring
}

// Open returns a Vault over the system keyring, falling back to an
// encrypted file under the config directory.
func Open() (*Vault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(model.ConfigDir(), "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("planejamento-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &Vault{ring: ring}, nil
}

// NewVault wraps an existing keyring.
func NewVault(ring keyring.Keyring) *Vault {
	return &Vault{ring: ring}
}

// Get retrieves a value by key. A missing key yields keyring.ErrKeyNotFound.
func (v *Vault) Get(key string) (string, error) {
	item, err := v.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a value by key.
func (v *Vault) Set(key, value string) error {
	err := v.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a value by key. Removing a missing key is not an error.
func (v *Vault) Delete(key string) error {
	err := v.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// ResolveOwner returns the profile id: configured if set, else the one in
// the keyring, else a new id which is stored for next time.
func ResolveOwner(configured string, v *Vault) (id string, created bool, err error) {
	if id := strings.TrimSpace(configured); id != "" {
		return id, false, nil
	}

	id, err = v.Get(OwnerKey)
	switch {
	case err == nil && id != "":
		return id, false, nil
	case err != nil && !errors.Is(err, keyring.ErrKeyNotFound):
		return "", false, err
	}

	id = uuid.NewString()
	if err := v.Set(OwnerKey, id); err != nil {
		return "", false, err
	}
	return id, true, nil
}
