package pdftext

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.io/infrasutra/speedydraft/internal/pdftext/pdftest"
)

func newExtractor() *Extractor {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFromBytes(t *testing.T) {
	text := newExtractor().FromBytes(pdftest.Document("Reach me at test@example.com"))
	assert.Contains(t, text, "test@example.com")
}

func TestFromFileLeavesSourceUntouched(t *testing.T) {
	data := pdftest.Document("Invoice for ops@example.org")
	path := filepath.Join(t.TempDir(), "statement.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	text := newExtractor().FromFile(path)
	assert.Contains(t, text, "ops@example.org")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, after)
}

func TestFailuresYieldEmptyText(t *testing.T) {
	e := newExtractor()

	assert.Empty(t, e.FromFile(filepath.Join(t.TempDir(), "missing.pdf")))
	assert.Empty(t, e.FromBytes(nil))
	assert.Empty(t, e.FromBytes([]byte("%PDF-1.4\nthis is not really a pdf")))
}
