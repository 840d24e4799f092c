package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nhle/mailclient/internal/model"
	"github.com/nhle/mailclient/internal/theme"
)

// renderInbox prints one block per email in the order given.
func renderInbox(w io.Writer, emails []model.EmailSummary, fetchedAt time.Time) {
	header := theme.HeaderStyle.Render(fmt.Sprintf("Inbox (%d)", len(emails)))
	if !fetchedAt.IsZero() {
		header += " " + theme.MutedStyle.Render("fetched "+humanize.Time(fetchedAt))
	}
	fmt.Fprintln(w, header)

	if len(emails) == 0 {
		fmt.Fprintln(w, theme.MutedStyle.Render("No emails"))
		return
	}

	for _, e := range emails {
		fmt.Fprintf(w, "%s  %s  %s\n",
			theme.SenderStyle.Render(e.Sender),
			theme.SubjectStyle.Render(e.DisplaySubject()),
			theme.MutedStyle.Render(displayTime(e.Timestamp)+"  "+e.ID),
		)
		if !e.HasAttachments() {
			continue
		}
		for _, att := range e.Attachments {
			fmt.Fprintln(w, theme.AttachmentStyle.Render(fmt.Sprintf(
				"+ %s (%s, %s)",
				att.Filename, att.ContentType, humanize.Bytes(uint64(max(att.SizeBytes, 0))),
			)))
		}
	}
}

// renderProfile prints the account profile.
func renderProfile(w io.Writer, p *model.UserProfile) {
	fmt.Fprintln(w, theme.HeaderStyle.Render("Profile"))
	fmt.Fprintf(w, "%s %s\n", theme.MutedStyle.Render("Email:  "), p.Email)
	fmt.Fprintf(w, "%s %s\n", theme.MutedStyle.Render("Created:"), displayTime(p.CreatedAt))
}

// displayTime formats an ISO-8601 timestamp for the terminal, falling
// back to the raw value when it does not parse.
func displayTime(ts string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.Local().Format("Jan 2, 2006 15:04")
		}
	}
	return ts
}
