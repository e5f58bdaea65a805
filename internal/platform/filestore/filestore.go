// Package filestore keeps essay uploads on local disk under generated names.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"rsc.io/pdf"
)

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrEmptyFile           = errors.New("file is empty")
	ErrInvalidPDF          = errors.New("file is not a readable PDF")
	ErrOutsideStore        = errors.New("path is outside the upload directory")
)

// allowedTypes maps accepted content types to the extension stored on disk.
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Allowed reports whether contentType can be stored.
func Allowed(contentType string) bool {
	_, ok := allowedTypes[contentType]
	return ok
}

// Stored describes a saved upload.
type Stored struct {
	Path        string
	ContentType string
	Size        int64
	// Pages is set for PDFs.
	Pages int
}

// Store writes uploads into a single directory.
type Store struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger
}

// New creates dir if needed and returns a store for it.
func New(dir string, maxBytes int64, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload directory cannot be empty")
	}
	if maxBytes <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: abs, maxBytes: maxBytes, logger: logger.With("component", "filestore")}, nil
}

// MaxBytes is the largest upload accepted.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Save reads r fully, checks its size and detected type, and writes it
// under a fresh name. The declared type is ignored in favour of the bytes.
func (s *Store) Save(ctx context.Context, r io.Reader) (Stored, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Stored{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Stored{}, fmt.Errorf("%w: max %d bytes", ErrFileTooLarge, s.maxBytes)
	}
	if len(data) == 0 {
		return Stored{}, ErrEmptyFile
	}
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}

	contentType := mimetype.Detect(data).String()
	// Detect may append parameters, e.g. "text/plain; charset=utf-8".
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Stored{}, fmt.Errorf("%w: %s", ErrUnsupportedFileType, contentType)
	}

	stored := Stored{ContentType: contentType, Size: int64(len(data))}
	if contentType == "application/pdf" {
		pages, err := PageCount(data)
		if err != nil {
			return Stored{}, err
		}
		stored.Pages = pages
	}

	stored.Path = filepath.Join(s.dir, uuid.NewString()+ext)
	if err := os.WriteFile(stored.Path, data, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write file: %w", err)
	}

	s.logger.Debug("stored upload", "path", stored.Path, "content_type", contentType, "size", stored.Size)
	return stored, nil
}

// Read returns the contents of a file previously returned by Save.
func (s *Store) Read(ctx context.Context, path string) ([]byte, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}
	return data, nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *Store) Delete(path string) error {
	if err := s.contains(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete stored file: %w", err)
	}
	return nil
}

func (s *Store) contains(path string) error {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrOutsideStore, path)
	}
	return nil
}

// PageCount parses data as a PDF and returns its page count.
func PageCount(data []byte) (n int, err error) {
	// rsc.io/pdf panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	n = doc.NumPage()
	if n == 0 {
		return 0, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}
	return n, nil
}
