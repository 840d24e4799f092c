package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/mailclient/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// InboxSnapshot is the last inbox listing persisted locally.
type InboxSnapshot struct {
	Emails    []model.EmailSummary
	FetchedAt time.Time
}

// Find returns the email with id from the snapshot.
func (s *InboxSnapshot) Find(id string) (model.EmailSummary, bool) {
	for _, e := range s.Emails {
		if e.ID == id {
			return e, true
		}
	}
	return model.EmailSummary{}, false
}

// Store defines the local persistence interface: a durable key/value
// settings slot and the most recent inbox snapshot.
type Store interface {
	// === Settings ===

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	// === Inbox snapshot ===

	ReplaceInbox(ctx context.Context, emails []model.EmailSummary, fetchedAt time.Time) error
	GetInbox(ctx context.Context) (*InboxSnapshot, error)
	ClearInbox(ctx context.Context) error
}
