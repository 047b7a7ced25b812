// Package pdftext pulls plain text out of PDF documents. Extraction never
// fails loudly: problems are logged and yield empty text.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// FromFile returns the text of every page of the PDF at path, in page order.
func (e *Extractor) FromFile(path string) string {
	file, err := os.Open(path)
	if err != nil {
		e.logger.Warn("open pdf", "path", path, "error", err)
		return ""
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		e.logger.Warn("stat pdf", "path", path, "error", err)
		return ""
	}
	return e.extract(file, info.Size(), path)
}

// FromBytes is FromFile for an in-memory document.
func (e *Extractor) FromBytes(data []byte) string {
	return e.extract(bytes.NewReader(data), int64(len(data)), "upload")
}

func (e *Extractor) extract(src io.ReaderAt, size int64, source string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extract pdf text", "source", source, "error", fmt.Sprint(r))
			text = ""
		}
	}()

	if size == 0 {
		e.logger.Warn("extract pdf text", "source", source, "error", "empty document")
		return ""
	}
	reader, err := pdf.NewReader(src, size)
	if err != nil {
		e.logger.Warn("parse pdf", "source", source, "error", err)
		return ""
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		e.logger.Warn("extract pdf text", "source", source, "error", err)
		return ""
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		e.logger.Warn("read pdf text", "source", source, "error", err)
		return ""
	}
	return buf.String()
}
