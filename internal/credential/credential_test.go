package credential_test

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailclient/internal/credential"
	"github.com/nhle/mailclient/internal/model"
	"github.com/nhle/mailclient/tests/testutil"
)

// storesUnderTest returns every Store implementation backed by
// in-memory storage.
func storesUnderTest(t *testing.T) map[string]credential.Store {
	t.Helper()
	return map[string]credential.Store{
		"keyring": credential.NewKeyringStore(keyring.NewArrayKeyring(nil), ""),
		"sqlite":  credential.NewSlotStore(testutil.NewTestStore(t), ""),
	}
}

func TestStoreLifecycle(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get()
			require.ErrorIs(t, err, credential.ErrNotFound)

			require.NoError(t, s.Set(model.Credential{Token: "tok123", Type: model.TokenTypeBearer}))
			cred, err := s.Get()
			require.NoError(t, err)
			assert.Equal(t, "tok123", cred.Token)
			assert.Equal(t, model.TokenTypeBearer, cred.Type)

			require.NoError(t, s.Set(model.Credential{Token: "tok456"}))
			cred, err = s.Get()
			require.NoError(t, err)
			assert.Equal(t, "tok456", cred.Token, "last write wins")

			require.NoError(t, s.Clear())
			_, err = s.Get()
			require.ErrorIs(t, err, credential.ErrNotFound)

			require.NoError(t, s.Clear(), "clearing an empty slot")
		})
	}
}

func TestKeyringStoreUsesConfiguredKey(t *testing.T) {
	ring := keyring.NewArrayKeyring(nil)
	s := credential.NewKeyringStore(ring, "custom_token")

	require.NoError(t, s.Set(model.Credential{Token: "abc"}))

	item, err := ring.Get("custom_token")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(item.Data))

	_, err = ring.Get(model.DefaultCredentialKey)
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
}

func TestBuildHeaders(t *testing.T) {
	s := credential.NewKeyringStore(keyring.NewArrayKeyring(nil), "")

	h := credential.BuildHeaders(s)
	assert.Empty(t, h, "no credential, no headers")

	require.NoError(t, s.Set(model.Credential{Token: "tok123", Type: model.TokenTypeBearer}))
	h = credential.BuildHeaders(s)
	assert.Equal(t, "bearer tok123", h.Get("Authorization"))

	assert.Empty(t, credential.BuildHeaders(nil))
}

type brokenStore struct{}

func (brokenStore) Get() (model.Credential, error) {
	return model.Credential{}, errors.New("backend unavailable")
}
func (brokenStore) Set(model.Credential) error { return nil }
func (brokenStore) Clear() error               { return nil }

func TestBuildHeadersIgnoresBackendErrors(t *testing.T) {
	assert.Empty(t, credential.BuildHeaders(brokenStore{}))
}
