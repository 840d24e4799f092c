package model

// NoSubject is shown in place of a missing or empty subject line.
const NoSubject = "No Subject"

// AttachmentMeta describes a single file attached to an email. Filenames
// are unique within their email.
type AttachmentMeta struct {
	// Filename is the attachment's name as stored by the mail service.
	Filename string `json:"filename"`

	// ContentType is the MIME type reported by the mail service.
	ContentType string `json:"content_type"`

	// SizeBytes is the attachment size in bytes.
	SizeBytes int64 `json:"size"`
}

// EmailSummary is the list-view projection of a remote mail item. It
// never carries the message body.
type EmailSummary struct {
	// ID is the stable, unique identifier of the email.
	ID string `json:"id"`

	// Sender is the From address as indexed by the mail service.
	Sender string `json:"sender"`

	// Subject may be null on the wire; use DisplaySubject for output.
	Subject *string `json:"subject"`

	// Timestamp is the ISO-8601 receive time, kept verbatim.
	Timestamp string `json:"timestamp"`

	// Attachments lists the files attached to the email.
	Attachments []AttachmentMeta `json:"attachments"`

	// HasAttachmentsFlag mirrors the wire has_attachments field. It is
	// kept for inspection only; decisions go through HasAttachments.
	HasAttachmentsFlag bool `json:"has_attachments"`
}

// DisplaySubject returns the subject, or NoSubject when it is missing.
func (e EmailSummary) DisplaySubject() string {
	if e.Subject == nil || *e.Subject == "" {
		return NoSubject
	}
	return *e.Subject
}

// HasAttachments reports whether the email carries any attachments.
// It is derived from the attachment list, never from the wire flag.
func (e EmailSummary) HasAttachments() bool {
	return len(e.Attachments) > 0
}

// Attachment returns the metadata for filename, if the email has it.
func (e EmailSummary) Attachment(filename string) (AttachmentMeta, bool) {
	for _, a := range e.Attachments {
		if a.Filename == filename {
			return a, true
		}
	}
	return AttachmentMeta{}, false
}

// Attachment is a downloaded attachment payload.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
