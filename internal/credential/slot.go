package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/mailclient/internal/model"
	"github.com/nhle/mailclient/internal/store"
)

// Settings is the subset of the local store SlotStore needs.
type Settings interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// SlotStore keeps the access token in the local settings table.
type SlotStore struct {
	settings Settings
	key      string
}

// NewSlotStore returns a Store backed by the settings table.
func NewSlotStore(settings Settings, key string) *SlotStore {
	if key == "" {
		key = model.DefaultCredentialKey
	}
	return &SlotStore{settings: settings, key: key}
}

// Get retrieves the stored credential.
func (s *SlotStore) Get() (model.Credential, error) {
	token, err := s.settings.GetSetting(context.Background(), s.key)
	if errors.Is(err, store.ErrNotFound) {
		return model.Credential{}, ErrNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("getting credential %q: %w", s.key, err)
	}
	if token == "" {
		return model.Credential{}, ErrNotFound
	}
	return model.Credential{Token: token, Type: model.TokenTypeBearer}, nil
}

// Set stores cred, replacing any previous credential.
func (s *SlotStore) Set(cred model.Credential) error {
	if err := s.settings.SetSetting(context.Background(), s.key, cred.Token); err != nil {
		return fmt.Errorf("setting credential %q: %w", s.key, err)
	}
	return nil
}

// Clear removes the stored credential.
func (s *SlotStore) Clear() error {
	if err := s.settings.DeleteSetting(context.Background(), s.key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", s.key, err)
	}
	return nil
}
