package credential

import (
	"errors"
	"net/http"

	"github.com/nhle/mailclient/internal/model"
)

// ErrNotFound is returned by Store.Get when no credential is stored.
var ErrNotFound = errors.New("credential not found")

// Store is the single durable slot holding the current access credential.
// Writes are last-write-wins. Clearing an empty slot is not an error.
type Store interface {
	Get() (model.Credential, error)
	Set(cred model.Credential) error
	Clear() error
}

// BuildHeaders returns the authorization headers for the credential in s,
// or an empty header set when there is none. It never fails: a backend
// read error is treated as an absent credential.
func BuildHeaders(s Store) http.Header {
	h := make(http.Header)
	if s == nil {
		return h
	}
	cred, err := s.Get()
	if err != nil || cred.Token == "" {
		return h
	}
	tokenType := cred.Type
	if tokenType == "" {
		tokenType = model.TokenTypeBearer
	}
	h.Set("Authorization", tokenType+" "+cred.Token)
	return h
}
