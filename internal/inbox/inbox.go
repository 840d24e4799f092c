package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/mailclient/internal/model"
	"github.com/nhle/mailclient/internal/store"
)

// Fetcher lists the remote inbox.
type Fetcher interface {
	ListEmails(ctx context.Context) ([]model.EmailSummary, error)
}

// Snapshotter persists the applied inbox so it can be shown offline.
type Snapshotter interface {
	ReplaceInbox(ctx context.Context, emails []model.EmailSummary, fetchedAt time.Time) error
	GetInbox(ctx context.Context) (*store.InboxSnapshot, error)
	ClearInbox(ctx context.Context) error
}

// Result is the outcome of one refresh. Applied is false when a newer
// refresh had already been applied by the time this one completed.
type Result struct {
	Seq     uint64
	Emails  []model.EmailSummary
	Applied bool
}

// RefreshedMsg is a tea.Msg sent when a refresh completes.
type RefreshedMsg struct {
	Result
	Err error
}

// Inbox holds the consumer's current email list. Each refresh is tagged
// with a sequence number when it starts; a response is applied only if
// no later-started refresh has been applied yet, and an applied response
// replaces the list wholesale.
type Inbox struct {
	fetcher Fetcher
	snap    Snapshotter
	logger  *slog.Logger

	// persistMu orders snapshot writes so an older list never
	// overwrites a newer one on disk.
	persistMu sync.Mutex

	mu        sync.RWMutex
	issued    uint64
	applied   uint64
	emails    []model.EmailSummary
	fetchedAt time.Time
}

// New creates an empty Inbox. snap may be nil.
func New(fetcher Fetcher, snap Snapshotter, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Inbox{fetcher: fetcher, snap: snap, logger: logger}
}

// Refresh fetches the inbox and applies it unless it is stale. Fetch
// errors leave the current list untouched.
func (b *Inbox) Refresh(ctx context.Context) (Result, error) {
	seq := b.begin()

	emails, err := b.fetcher.ListEmails(ctx)
	if err != nil {
		return Result{Seq: seq}, err
	}

	res := Result{Seq: seq, Emails: emails}
	res.Applied = b.apply(ctx, seq, emails)
	if !res.Applied {
		b.logger.Debug("discarding stale inbox response", "seq", seq)
	}
	return res, nil
}

// Emails returns a copy of the current list.
func (b *Inbox) Emails() []model.EmailSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.EmailSummary, len(b.emails))
	copy(out, b.emails)
	return out
}

// FetchedAt returns when the current list was applied.
func (b *Inbox) FetchedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.fetchedAt
}

// Cached returns the last persisted snapshot. It returns store.ErrNotFound
// when there is none or no Snapshotter is configured.
func (b *Inbox) Cached(ctx context.Context) (*store.InboxSnapshot, error) {
	if b.snap == nil {
		return nil, store.ErrNotFound
	}
	return b.snap.GetInbox(ctx)
}

// Reset empties the list and the persisted snapshot. Refreshes still in
// flight are discarded when they complete.
func (b *Inbox) Reset(ctx context.Context) error {
	b.persistMu.Lock()
	defer b.persistMu.Unlock()

	// Burning a sequence number invalidates every refresh issued so far,
	// including one that was applied but not yet persisted.
	b.mu.Lock()
	b.issued++
	b.applied = b.issued
	b.emails = nil
	b.fetchedAt = time.Time{}
	b.mu.Unlock()

	if b.snap == nil {
		return nil
	}
	if err := b.snap.ClearInbox(ctx); err != nil {
		return fmt.Errorf("clearing inbox snapshot: %w", err)
	}
	return nil
}

// begin issues the next sequence number.
func (b *Inbox) begin() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued++
	return b.issued
}

// apply replaces the list with emails if seq is newer than the last
// applied refresh.
func (b *Inbox) apply(ctx context.Context, seq uint64, emails []model.EmailSummary) bool {
	now := time.Now()

	b.mu.Lock()
	if seq <= b.applied {
		b.mu.Unlock()
		return false
	}
	b.applied = seq
	b.emails = make([]model.EmailSummary, len(emails))
	copy(b.emails, emails)
	b.fetchedAt = now
	b.mu.Unlock()

	b.persist(ctx, seq, emails, now)
	return true
}

// persist writes emails to the snapshot unless a newer refresh has been
// applied in the meantime.
func (b *Inbox) persist(ctx context.Context, seq uint64, emails []model.EmailSummary, at time.Time) {
	if b.snap == nil {
		return
	}

	b.persistMu.Lock()
	defer b.persistMu.Unlock()

	b.mu.RLock()
	current := b.applied
	b.mu.RUnlock()
	if current != seq {
		return
	}

	err := b.snap.ReplaceInbox(ctx, emails, at)
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Warn("persisting inbox snapshot", "error", err)
	}
}
