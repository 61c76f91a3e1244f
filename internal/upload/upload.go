// Package upload validates and stores the files submitted for analysis.
package upload

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raysh454/appreviewer/internal/model"
)

// DefaultMaxFileSize is 10 MiB.
const DefaultMaxFileSize int64 = 10 << 20

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// DefaultExtensions lists the file types accepted for analysis.
func DefaultExtensions() []string {
	return []string{".js", ".jsx", ".tsx"}
}

// File is the metadata of a stored upload.
type File struct {
	ID         string    `json:"file_id"`
	Name       string    `json:"filename"`
	Extension  string    `json:"file_type"`
	Size       int64     `json:"file_size"`
	SHA256     string    `json:"sha256"`
	UploadedAt time.Time `json:"upload_time"`

	path string
}

// Metadata returns the analysis view of f.
func (f *File) Metadata() model.FileMetadata {
	return model.FileMetadata{ID: f.ID, Name: f.Name, Size: f.Size, Extension: f.Extension}
}

// Validator checks uploads against type and size limits.
type Validator struct {
	MaxSize    int64
	Extensions []string
}

// Extension returns the lower-cased extension of name.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Validate returns an error wrapping one of the sentinel errors when content
// cannot be accepted.
func (v Validator) Validate(name string, content []byte) error {
	ext := Extension(name)
	if !v.allowed(ext) {
		return fmt.Errorf("%w: %q, supported types: %s", ErrUnsupportedType, ext, strings.Join(v.extensions(), ", "))
	}
	if len(content) == 0 {
		return ErrEmptyFile
	}
	if limit := v.maxSize(); int64(len(content)) > limit {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(content), limit)
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

// Allowed reports whether name has a supported extension.
func (v Validator) Allowed(name string) bool {
	return v.allowed(Extension(name))
}

func (v Validator) maxSize() int64 {
	if v.MaxSize <= 0 {
		return DefaultMaxFileSize
	}
	return v.MaxSize
}

func (v Validator) extensions() []string {
	if len(v.Extensions) == 0 {
		return DefaultExtensions()
	}
	return v.Extensions
}

func (v Validator) allowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, e := range v.extensions() {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is a client-side upload problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnsupportedType) || errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrEmptyFile) || errors.Is(err, ErrInvalidEncoding)
}
