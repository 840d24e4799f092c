package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/mailclient/internal/model"
	"github.com/nhle/mailclient/internal/store"
	"github.com/nhle/mailclient/tests/testutil"
)

func strPtr(s string) *string { return &s }

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.GetSetting(ctx, "access_token")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetSetting(ctx, "access_token", "tok1"))
	require.NoError(t, s.SetSetting(ctx, "access_token", "tok2"))

	v, err := s.GetSetting(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "tok2", v)

	require.NoError(t, s.DeleteSetting(ctx, "access_token"))
	require.NoError(t, s.DeleteSetting(ctx, "access_token"))
	_, err = s.GetSetting(ctx, "access_token")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestInboxSnapshotIsReplacedWholesale(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.GetInbox(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	first := []model.EmailSummary{
		{ID: "e1", Sender: "a@b.com", Subject: strPtr("Hello"), Timestamp: "2024-01-01T10:00:00Z"},
		{ID: "e2", Sender: "c@d.com", Timestamp: "2024-01-02T10:00:00Z",
			Attachments: []model.AttachmentMeta{
				{Filename: "report.pdf", ContentType: "application/pdf", SizeBytes: 1024},
			},
			HasAttachmentsFlag: true,
		},
	}
	fetched := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReplaceInbox(ctx, first, fetched))

	snap, err := s.GetInbox(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Emails, 2)
	assert.True(t, snap.FetchedAt.Equal(fetched))
	assert.Equal(t, "e1", snap.Emails[0].ID)
	assert.Equal(t, "Hello", snap.Emails[0].DisplaySubject())
	assert.Nil(t, snap.Emails[1].Subject)
	assert.Equal(t, first[1].Attachments, snap.Emails[1].Attachments)
	assert.True(t, snap.Emails[1].HasAttachmentsFlag)

	second := []model.EmailSummary{{ID: "e9", Sender: "z@y.com"}}
	require.NoError(t, s.ReplaceInbox(ctx, second, fetched.Add(time.Hour)))

	snap, err = s.GetInbox(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Emails, 1)
	assert.Equal(t, "e9", snap.Emails[0].ID)
	assert.Empty(t, snap.Emails[0].Attachments)

	require.NoError(t, s.ClearInbox(ctx))
	_, err = s.GetInbox(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEmptyInboxSnapshot(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	fetched := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReplaceInbox(ctx, []model.EmailSummary{}, fetched))

	snap, err := s.GetInbox(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Emails)
	assert.True(t, snap.FetchedAt.Equal(fetched))

	require.NoError(t, s.ClearInbox(ctx))
	_, err = s.GetInbox(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSnapshotFind(t *testing.T) {
	snap := &store.InboxSnapshot{Emails: []model.EmailSummary{{ID: "e1"}, {ID: "e2"}}}

	e, ok := snap.Find("e2")
	require.True(t, ok)
	assert.Equal(t, "e2", e.ID)

	_, ok = snap.Find("missing")
	assert.False(t, ok)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	first, path := testutil.NewFileStore(t)
	require.NoError(t, first.SetSetting(context.Background(), "k", "v"))

	// Reopening runs migrations again against an up-to-date schema.
	second, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	v, err := second.GetSetting(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
