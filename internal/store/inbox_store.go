package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/mailclient/internal/model"
)

// inboxRow is the database shape of a persisted EmailSummary.
type inboxRow struct {
	Position       int            `db:"position"`
	ID             string         `db:"id"`
	Sender         string         `db:"sender"`
	Subject        sql.NullString `db:"subject"`
	Timestamp      string         `db:"timestamp"`
	HasAttachments int            `db:"has_attachments"`
	Attachments    string         `db:"attachments"`
}

// inboxFetchedAtKey is the settings row marking that a snapshot exists.
// An applied empty inbox has no email rows but still has this marker.
const inboxFetchedAtKey = "inbox_fetched_at"

// ReplaceInbox swaps the persisted snapshot for emails in a single
// transaction. Order is preserved.
func (s *SQLiteStore) ReplaceInbox(
	ctx context.Context,
	emails []model.EmailSummary,
	fetchedAt time.Time,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM inbox_emails"); err != nil {
		return fmt.Errorf("clearing inbox snapshot: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO inbox_emails (
			position, id, sender, subject, timestamp,
			has_attachments, attachments, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing inbox insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range emails {
		attachments := e.Attachments
		if attachments == nil {
			attachments = []model.AttachmentMeta{}
		}
		data, err := json.Marshal(attachments)
		if err != nil {
			return fmt.Errorf("marshaling attachments for email %s: %w", e.ID, err)
		}

		var subject sql.NullString
		if e.Subject != nil {
			subject = sql.NullString{String: *e.Subject, Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			i, e.ID, e.Sender, subject, e.Timestamp,
			boolToInt(e.HasAttachmentsFlag), string(data), fetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting email %s: %w", e.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)`,
		inboxFetchedAtKey, fetchedAt.UTC().Format(time.RFC3339Nano), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("marking inbox snapshot: %w", err)
	}

	return tx.Commit()
}

// GetInbox returns the persisted snapshot, or ErrNotFound when nothing
// has been stored yet. A stored empty inbox is returned with no emails.
func (s *SQLiteStore) GetInbox(ctx context.Context) (*InboxSnapshot, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var marker string
	err = tx.GetContext(ctx, &marker,
		"SELECT value FROM settings WHERE key = ?", inboxFetchedAtKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading inbox marker: %w", err)
	}
	fetchedAt, err := time.Parse(time.RFC3339Nano, marker)
	if err != nil {
		return nil, fmt.Errorf("parsing inbox fetch time %q: %w", marker, err)
	}

	var rows []inboxRow
	err = tx.SelectContext(ctx, &rows, `
		SELECT position, id, sender, subject, timestamp, has_attachments, attachments
		FROM inbox_emails
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying inbox snapshot: %w", err)
	}

	snap := &InboxSnapshot{
		Emails:    make([]model.EmailSummary, 0, len(rows)),
		FetchedAt: fetchedAt,
	}
	for _, r := range rows {
		e := model.EmailSummary{
			ID:                 r.ID,
			Sender:             r.Sender,
			Timestamp:          r.Timestamp,
			HasAttachmentsFlag: r.HasAttachments == 1,
		}
		if r.Subject.Valid {
			subject := r.Subject.String
			e.Subject = &subject
		}
		if err := json.Unmarshal([]byte(r.Attachments), &e.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshaling attachments for email %s: %w", r.ID, err)
		}
		snap.Emails = append(snap.Emails, e)
	}

	return snap, nil
}

// ClearInbox removes the persisted snapshot.
func (s *SQLiteStore) ClearInbox(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM inbox_emails"); err != nil {
		return fmt.Errorf("clearing inbox snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", inboxFetchedAtKey); err != nil {
		return fmt.Errorf("clearing inbox marker: %w", err)
	}

	return tx.Commit()
}
