package draft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.io/infrasutra/speedydraft/internal/fsutil"
	"github.io/infrasutra/speedydraft/internal/spool"
)

var (
	ErrPDFNotFound    = errors.New("PDF file not found")
	ErrInvalidRequest = errors.New("invalid draft request")
	ErrAssembly       = errors.New("assemble draft")
)

// Draft is a generated .eml file in the outbox.
type Draft struct {
	Filename string
	Path     string
}

type Assembler struct {
	outbox *spool.Spool
	logger *slog.Logger
	now    func() time.Time
}

func NewAssembler(outbox *spool.Spool, logger *slog.Logger) *Assembler {
	return &Assembler{outbox: outbox, logger: logger, now: time.Now}
}

// FromPath attaches the PDF at pdfPath under the name pdfFilename.
func (a *Assembler) FromPath(ctx context.Context, req Request, pdfFilename, pdfPath string) (Draft, error) {
	if err := validate(req); err != nil {
		return Draft{}, err
	}
	if err := ctx.Err(); err != nil {
		return Draft{}, err
	}

	info, err := os.Stat(pdfPath)
	if err != nil || info.IsDir() {
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return Draft{}, fmt.Errorf("%w: %s", ErrPDFNotFound, pdfPath)
		}
		return Draft{}, fmt.Errorf("%w: stat pdf: %v", ErrAssembly, err)
	}
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: read pdf: %v", ErrAssembly, err)
	}
	return a.build(req, Attachment{Filename: pdfFilename, Data: data})
}

// FromUpload attaches an uploaded PDF.
func (a *Assembler) FromUpload(ctx context.Context, req Request, att Attachment) (Draft, error) {
	if err := validate(req); err != nil {
		return Draft{}, err
	}
	if err := ctx.Err(); err != nil {
		return Draft{}, err
	}
	return a.build(req, att)
}

func (a *Assembler) build(req Request, att Attachment) (Draft, error) {
	raw, err := Compose(req, att, a.now())
	if err != nil {
		return Draft{}, err
	}

	name := FileName(att.Filename)
	path, err := a.outbox.WriteFile(name, raw)
	if err != nil {
		return Draft{}, fmt.Errorf("%w: %v", ErrAssembly, err)
	}
	a.logger.Info("draft created", "file", name, "attachment", att.Filename, "bytes", len(raw))
	return Draft{Filename: name, Path: path}, nil
}

// FileName returns draft_<8 hex>_<attachment name without .pdf>.eml.
func FileName(attachment string) string {
	stem := fsutil.SanitizeFilename(attachment)
	if strings.HasSuffix(strings.ToLower(stem), ".pdf") {
		stem = stem[:len(stem)-len(".pdf")]
	}
	return fmt.Sprintf("draft_%s_%s.eml", strings.ReplaceAll(uuid.NewString(), "-", "")[:8], stem)
}

func validate(req Request) error {
	if sanitizeHeader(req.Recipient) == "" {
		return fmt.Errorf("%w: recipient email is required", ErrInvalidRequest)
	}
	return nil
}
