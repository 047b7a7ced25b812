// Package draft assembles unsent email drafts with a PDF attached and keeps
// them in an outbox as .eml files.
package draft

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// Request holds the user-supplied parts of a draft.
type Request struct {
	Recipient   string
	Subject     string
	Body        string
	SenderEmail string
	SenderName  string
}

type Attachment struct {
	Filename string
	Data     []byte
}

// Compose serializes a multipart/mixed message with an HTML body and att as a
// PDF attachment. Mail clients that honour X-Unsent open it as a draft.
func Compose(req Request, att Attachment, now time.Time) ([]byte, error) {
	recipient := sanitizeHeader(req.Recipient)
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient email is required", ErrInvalidRequest)
	}
	filename := sanitizeHeader(att.Filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: attachment filename is required", ErrInvalidRequest)
	}

	var h mail.Header
	h.SetDate(now)
	h.Set("To", recipient)
	h.SetSubject(sanitizeHeader(req.Subject))
	if sender := sanitizeHeader(req.SenderEmail); sender != "" {
		if name := sanitizeHeader(req.SenderName); name != "" {
			h.SetAddressList("From", []*mail.Address{{Name: name, Address: sender}})
		} else {
			h.Set("From", sender)
		}
	}
	h.Set("X-Unsent", "1")
	h.Set("X-UnsentDraft", "1")

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("%w: create writer: %v", ErrAssembly, err)
	}

	var bh mail.InlineHeader
	bh.SetContentType("text/html", map[string]string{"charset": "utf-8"})
	bh.Set("Content-Transfer-Encoding", "quoted-printable")
	if err := writePart(func() (io.WriteCloser, error) { return mw.CreateSingleInline(bh) }, []byte(req.Body)); err != nil {
		return nil, fmt.Errorf("%w: write body: %v", ErrAssembly, err)
	}

	var ah mail.AttachmentHeader
	ah.SetContentType("application/pdf", nil)
	ah.Set("Content-Transfer-Encoding", "base64")
	ah.SetFilename(filename)
	if err := writePart(func() (io.WriteCloser, error) { return mw.CreateAttachment(ah) }, att.Data); err != nil {
		return nil, fmt.Errorf("%w: write attachment: %v", ErrAssembly, err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: close message: %v", ErrAssembly, err)
	}
	return buf.Bytes(), nil
}

func writePart(create func() (io.WriteCloser, error), data []byte) error {
	w, err := create()
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func sanitizeHeader(value string) string {
	cleaned := strings.ReplaceAll(value, "\r", "")
	cleaned = strings.ReplaceAll(cleaned, "\n", "")
	return strings.TrimSpace(cleaned)
}
