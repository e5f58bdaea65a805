package filestore

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// minimalPDF builds a one-page PDF with a correct xref table.
func minimalPDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func newStore(t *testing.T, max int64) *Store {
	t.Helper()
	s, err := New(t.TempDir(), max, nil)
	require.NoError(t, err)
	return s
}

func TestSave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("png", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, 1024)
		stored, err := s.Save(ctx, bytes.NewReader(pngHeader))
		require.NoError(t, err)
		assert.Equal(t, "image/png", stored.ContentType)
		assert.Equal(t, int64(len(pngHeader)), stored.Size)
		assert.Equal(t, ".png", filepath.Ext(stored.Path))

		data, err := s.Read(ctx, stored.Path)
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)
	})

	t.Run("pdf", func(t *testing.T) {
		t.Parallel()
		s := newStore(t, 1<<20)
		stored, err := s.Save(ctx, bytes.NewReader(minimalPDF()))
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", stored.ContentType)
		assert.Equal(t, 1, stored.Pages)
	})

	tests := []struct {
		name string
		data []byte
		max  int64
		want error
	}{
		{name: "too large", data: bytes.Repeat([]byte("a"), 11), max: 10, want: ErrFileTooLarge},
		{name: "empty", data: nil, max: 10, want: ErrEmptyFile},
		{name: "plain text", data: []byte("just some words"), max: 100, want: ErrUnsupportedFileType},
		{name: "broken pdf", data: []byte("%PDF-1.4\ngarbage"), max: 100, want: ErrInvalidPDF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := newStore(t, tc.max)
			_, err := s.Save(ctx, bytes.NewReader(tc.data))
			assert.ErrorIs(t, err, tc.want)

			entries, err := os.ReadDir(s.dir)
			require.NoError(t, err)
			assert.Empty(t, entries, "rejected uploads must not be written")
		})
	}
}

func TestReadAndDeleteStayInsideStore(t *testing.T) {
	t.Parallel()
	s := newStore(t, 1024)
	ctx := context.Background()

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	for _, p := range []string{outside, filepath.Join(s.dir, "..", "x"), s.dir} {
		_, err := s.Read(ctx, p)
		assert.ErrorIs(t, err, ErrOutsideStore, p)
		assert.ErrorIs(t, s.Delete(p), ErrOutsideStore, p)
	}

	stored, err := s.Save(ctx, bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.NoError(t, s.Delete(stored.Path))
	require.NoError(t, s.Delete(stored.Path))
	_, err = s.Read(ctx, stored.Path)
	assert.Error(t, err)
}

func TestNewValidates(t *testing.T) {
	t.Parallel()
	_, err := New("", 10, nil)
	assert.Error(t, err)
	_, err = New(t.TempDir(), 0, nil)
	assert.Error(t, err)

	nested := filepath.Join(t.TempDir(), "a", "b")
	s, err := New(nested, 10, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(s.dir, filepath.Join("a", "b")))
	assert.Equal(t, int64(10), s.MaxBytes())
	assert.True(t, Allowed("image/webp"))
	assert.False(t, Allowed("text/plain"))
}
