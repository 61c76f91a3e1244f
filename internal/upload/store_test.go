package upload_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/appreviewer/internal/testutil"
	"github.com/raysh454/appreviewer/internal/upload"
)

func newStore(t *testing.T, v upload.Validator) *upload.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := upload.Open(context.Background(), filepath.Join(dir, "uploads.db"), filepath.Join(dir, "files"), v, &testutil.DummyLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveGetContent(t *testing.T) {
	t.Parallel()
	s := newStore(t, upload.Validator{})
	ctx := context.Background()

	src := []byte("export const App = () => null;\n")
	f, err := s.Save(ctx, "dir/App.JSX", src)
	require.NoError(t, err)
	assert.Equal(t, "App.JSX", f.Name)
	assert.Equal(t, ".jsx", f.Extension)
	assert.Equal(t, int64(len(src)), f.Size)
	assert.Len(t, f.SHA256, 64)

	got, err := s.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, f.SHA256, got.SHA256)
	assert.True(t, f.UploadedAt.Equal(got.UploadedAt))

	data, err := s.Content(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, src, data)

	req, err := s.Request(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, string(src), req.Content)
	assert.Equal(t, f.Metadata(), req.Metadata)
}

func TestStore_ListNewestFirstAndDelete(t *testing.T) {
	t.Parallel()
	s := newStore(t, upload.Validator{})
	ctx := context.Background()

	a, err := s.Save(ctx, "a.js", []byte("1"))
	require.NoError(t, err)
	b, err := s.Save(ctx, "b.js", []byte("2"))
	require.NoError(t, err)

	files, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, b.ID, files[0].ID)
	assert.Equal(t, a.ID, files[1].ID)

	limited, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.Delete(ctx, a.ID))
	_, err = s.Get(ctx, a.ID)
	assert.ErrorIs(t, err, upload.ErrFileNotFound)
	_, err = s.Content(ctx, a.ID)
	assert.ErrorIs(t, err, upload.ErrFileNotFound)
	assert.ErrorIs(t, s.Delete(ctx, a.ID), upload.ErrFileNotFound)
}

func TestStore_ValidationRejectsBeforeWriting(t *testing.T) {
	t.Parallel()
	s := newStore(t, upload.Validator{MaxSize: 8})
	ctx := context.Background()

	cases := []struct {
		name    string
		file    string
		content []byte
		want    error
	}{
		{"unsupported type", "main.py", []byte("print(1)"), upload.ErrUnsupportedType},
		{"no extension", "Makefile", []byte("all:"), upload.ErrUnsupportedType},
		{"empty", "a.js", nil, upload.ErrEmptyFile},
		{"too large", "a.js", []byte("123456789"), upload.ErrFileTooLarge},
		{"binary", "a.js", []byte{0xff, 0xfe, 0x00}, upload.ErrInvalidEncoding},
	}
	for _, tc := range cases {
		_, err := s.Save(ctx, tc.file, tc.content)
		assert.True(t, errors.Is(err, tc.want), "%s: got %v", tc.name, err)
		assert.True(t, upload.IsValidation(err), tc.name)
	}

	files, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestValidator_Defaults(t *testing.T) {
	t.Parallel()
	v := upload.Validator{}
	assert.NoError(t, v.Validate("App.tsx", []byte("x")))
	err := v.Validate("App.ts", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".js, .jsx, .tsx")
	assert.ErrorIs(t, v.Validate("a.js", []byte(strings.Repeat("a", int(upload.DefaultMaxFileSize)+1))), upload.ErrFileTooLarge)
	assert.False(t, upload.IsValidation(errors.New("disk full")))
}

func TestValidator_Allowed(t *testing.T) {
	t.Parallel()
	v := upload.Validator{Extensions: []string{".jsx", ".vue"}}
	assert.True(t, v.Allowed("src/App.JSX"))
	assert.True(t, v.Allowed("Panel.vue"))
	assert.False(t, v.Allowed("App.tsx"))
	assert.False(t, v.Allowed("Makefile"))
}

func TestStore_Diff(t *testing.T) {
	t.Parallel()
	s := newStore(t, upload.Validator{})
	ctx := context.Background()

	base, err := s.Save(ctx, "a.js", []byte("el.innerHTML = value;\n"))
	require.NoError(t, err)
	head, err := s.Save(ctx, "a.js", []byte("el.textContent = value;\n"))
	require.NoError(t, err)

	d, err := s.Diff(ctx, base.ID, head.ID)
	require.NoError(t, err)
	assert.Equal(t, base.ID, d.BaseID)
	assert.Equal(t, head.ID, d.HeadID)
	require.NotEmpty(t, d.Chunks)
	assert.Positive(t, d.Added)
	assert.Positive(t, d.Removed)

	var removed, added strings.Builder
	for _, c := range d.Chunks {
		switch c.Type {
		case "removed":
			removed.WriteString(c.Content)
		case "added":
			added.WriteString(c.Content)
		}
	}
	assert.Contains(t, removed.String(), "innerHTML")
	assert.Contains(t, added.String(), "textContent")

	_, err = s.Diff(ctx, base.ID, "missing")
	assert.ErrorIs(t, err, upload.ErrFileNotFound)
}

func TestTextDiff_Identical(t *testing.T) {
	t.Parallel()
	d := upload.TextDiff("same", "same")
	assert.Zero(t, d.Added)
	assert.Zero(t, d.Removed)
	assert.Empty(t, d.Chunks)
}
