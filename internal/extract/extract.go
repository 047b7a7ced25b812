// Package extract runs the email harvesting pipeline over a folder of PDF
// statements or a batch of uploaded PDFs.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.io/infrasutra/speedydraft/internal/harvest"
	"github.io/infrasutra/speedydraft/internal/spool"
)

var (
	ErrFolderNotFound   = errors.New("folder path does not exist")
	ErrNotDirectory     = errors.New("path is not a directory")
	ErrPermissionDenied = errors.New("permission denied to access folder")
	ErrNoPDFs           = errors.New("no PDF files found in the specified folder")
	ErrNoFiles          = errors.New("no files uploaded")
	ErrNoValidUploads   = errors.New("no valid PDF files uploaded")
)

const DefaultWorkers = 4

// TextExtractor turns a PDF into plain text, returning "" on any failure.
type TextExtractor interface {
	FromFile(path string) string
	FromBytes(data []byte) string
}

// Result is the outcome for one PDF. FilePath points at a file a draft can be
// built from later.
type Result struct {
	Filename string   `json:"filename"`
	Emails   []string `json:"emails"`
	FilePath string   `json:"file_path"`
}

type Upload struct {
	Filename string
	Data     []byte
}

type Service struct {
	text    TextExtractor
	uploads *spool.Spool
	workers int
	logger  *slog.Logger
}

func NewService(text TextExtractor, uploads *spool.Spool, workers int, logger *slog.Logger) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{text: text, uploads: uploads, workers: workers, logger: logger}
}

// NormalizeFolder undoes doubled backslashes and strips the quotes and
// whitespace that come with paths pasted from a file manager.
func NormalizeFolder(folder string) string {
	folder = strings.ReplaceAll(folder, `\\`, `\`)
	folder = strings.TrimSpace(folder)
	folder = strings.Trim(folder, `"`)
	folder = strings.Trim(folder, `'`)
	return strings.TrimSpace(folder)
}

func IsPDF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// FromFolder harvests every PDF directly inside folder, sorted by name.
func (s *Service) FromFolder(ctx context.Context, folder string) ([]Result, error) {
	folder = NormalizeFolder(folder)

	info, err := os.Stat(folder)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	case errors.Is(err, os.ErrPermission):
		return nil, ErrPermissionDenied
	case err != nil:
		return nil, fmt.Errorf("stat folder: %w", err)
	case !info.IsDir():
		return nil, ErrNotDirectory
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("read folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if IsPDF(entry.Name()) && isRegularFile(folder, entry) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, ErrNoPDFs
	}

	s.logger.Info("extract folder", "folder", folder, "files", len(names))
	return s.run(ctx, len(names), func(i int) (Result, error) {
		path := filepath.Join(folder, names[i])
		return s.harvestOne(names[i], path, func() string {
			return s.text.FromFile(path)
		}), nil
	})
}

// isRegularFile reports whether entry is a regular file, following symlinks.
func isRegularFile(folder string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(folder, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

// FromUploads harvests the PDF uploads in memory and keeps a copy of each in
// the upload spool. Uploads without a .pdf name are skipped.
func (s *Service) FromUploads(ctx context.Context, uploads []Upload) ([]Result, error) {
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	var kept []Upload
	for _, upload := range uploads {
		if !IsPDF(upload.Filename) {
			s.logger.Debug("skip non-pdf upload", "filename", upload.Filename)
			continue
		}
		kept = append(kept, upload)
	}
	if len(kept) == 0 {
		return nil, ErrNoValidUploads
	}

	return s.run(ctx, len(kept), func(i int) (Result, error) {
		upload := kept[i]
		path, err := s.uploads.Save(upload.Filename, upload.Data)
		if err != nil {
			return Result{}, fmt.Errorf("keep upload %s: %w", upload.Filename, err)
		}
		return s.harvestOne(upload.Filename, path, func() string {
			return s.text.FromBytes(upload.Data)
		}), nil
	})
}

// harvestOne never fails: a broken document yields a result without addresses.
func (s *Service) harvestOne(filename, path string, text func() string) (result Result) {
	result = Result{Filename: filename, Emails: []string{}, FilePath: path}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("extract emails", "filename", filename, "error", fmt.Sprint(r))
			result.Emails = []string{}
		}
	}()
	result.Emails = harvest.Emails(text())
	return result
}

// run calls fn for 0..n-1 on at most s.workers goroutines and keeps results
// in index order.
func (s *Service) run(ctx context.Context, n int, fn func(i int) (Result, error)) ([]Result, error) {
	results := make([]Result, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := fn(i)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
