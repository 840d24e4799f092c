package api

import (
	"net/http"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailclient/internal/model"
)

// attachmentFromResponse names and types a downloaded payload. The
// Content-Disposition filename wins over the requested one when the
// service sends it; go-message handles RFC 2231 and encoded-word names.
func attachmentFromResponse(requested string, header http.Header, data []byte) *model.Attachment {
	var h mail.AttachmentHeader
	if v := header.Get("Content-Disposition"); v != "" {
		h.Set("Content-Disposition", v)
	}
	if v := header.Get("Content-Type"); v != "" {
		h.Set("Content-Type", v)
	}

	att := &model.Attachment{
		Filename:    requested,
		ContentType: "application/octet-stream",
		Data:        data,
	}

	if name, err := h.Filename(); err == nil && name != "" {
		att.Filename = name
	}
	if t, _, err := h.ContentType(); err == nil && t != "" {
		att.ContentType = t
	}

	return att
}
