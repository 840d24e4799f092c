package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"

	"github.com/nhle/mailclient/internal/model"
)

const serviceName = "mailclient"

// OpenKeyring returns a configured system keyring. fileDir is used by the
// encrypted-file fallback backend.
func OpenKeyring(fileDir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("mailclient-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// KeyringStore keeps the access token in a keyring under a fixed key.
type KeyringStore struct {
	ring keyring.Keyring
	key  string
}

// NewKeyringStore returns a Store backed by ring, storing the token under key.
func NewKeyringStore(ring keyring.Keyring, key string) *KeyringStore {
	if key == "" {
		key = model.DefaultCredentialKey
	}
	return &KeyringStore{ring: ring, key: key}
}

// Get retrieves the stored credential.
func (s *KeyringStore) Get() (model.Credential, error) {
	item, err := s.ring.Get(s.key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return model.Credential{}, ErrNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("getting credential %q: %w", s.key, err)
	}
	if len(item.Data) == 0 {
		return model.Credential{}, ErrNotFound
	}
	return model.Credential{Token: string(item.Data), Type: model.TokenTypeBearer}, nil
}

// Set stores cred, replacing any previous credential.
func (s *KeyringStore) Set(cred model.Credential) error {
	err := s.ring.Set(keyring.Item{
		Key:         s.key,
		Data:        []byte(cred.Token),
		Label:       "mailclient access token",
		Description: "bearer token for the mail service",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", s.key, err)
	}
	return nil
}

// Clear removes the stored credential.
func (s *KeyringStore) Clear() error {
	err := s.ring.Remove(s.key)
	if err == nil ||
		errors.Is(err, keyring.ErrKeyNotFound) ||
		errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("deleting credential %q: %w", s.key, err)
}
