package upload

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store keeps file contents under a directory and their metadata in SQLite.
type Store struct {
	db        *sql.DB
	dir       string
	validator Validator
	logger    logging.Logger
}

// Open opens (or creates) the SQLite database at dbPath, applies migrations
// and returns a Store writing contents under dir.
func Open(ctx context.Context, dbPath, dir string, v Validator, logger logging.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open upload database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}
	s, err := New(ctx, db, dir, v, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New migrates db and returns a Store. The caller keeps ownership of db
// unless it calls Close.
func New(ctx context.Context, db *sql.DB, dir string, v Validator, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if dir == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure upload dir %s: %w", dir, err)
	}
	if err := migrate(ctx, db); err != nil {
		return nil, err
	}
	return &Store{
		db:        db,
		dir:       dir,
		validator: v,
		logger:    logger.With(logging.Field{Key: "component", Value: "upload_store"}),
	}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Validator returns the limits the store enforces.
func (s *Store) Validator() Validator { return s.validator }

// Save validates content and stores it under a fresh id.
func (s *Store) Save(ctx context.Context, name string, content []byte) (*File, error) {
	if err := s.validator.Validate(name, content); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(content)
	f := &File{
		ID:         uuid.New().String(),
		Name:       filepath.Base(name),
		Extension:  Extension(name),
		Size:       int64(len(content)),
		SHA256:     hex.EncodeToString(sum[:]),
		UploadedAt: time.Now().UTC(),
	}
	f.path = filepath.Join(s.dir, f.ID+f.Extension)

	if err := os.WriteFile(f.path, content, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (id, name, extension, size, sha256, path, uploaded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Extension, f.Size, f.SHA256, f.path, f.UploadedAt.UnixNano(),
	)
	if err != nil {
		_ = os.Remove(f.path)
		return nil, fmt.Errorf("insert file: %w", err)
	}

	s.logger.Info("file stored",
		logging.Field{Key: "file_id", Value: f.ID},
		logging.Field{Key: "name", Value: f.Name},
		logging.Field{Key: "size", Value: f.Size})
	return f, nil
}

const fileColumns = `id, name, extension, size, sha256, path, uploaded_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*File, error) {
	var (
		f  File
		ts int64
	)
	if err := row.Scan(&f.ID, &f.Name, &f.Extension, &f.Size, &f.SHA256, &f.path, &ts); err != nil {
		return nil, err
	}
	f.UploadedAt = time.Unix(0, ts).UTC()
	return &f, nil
}

// Get returns the metadata of a stored file.
func (s *Store) Get(ctx context.Context, id string) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ? LIMIT 1`, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return f, nil
}

// Content returns the stored bytes of a file.
func (s *Store) Content(ctx context.Context, id string) ([]byte, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", id, err)
	}
	return data, nil
}

// Request loads a file as an analysis request.
func (s *Store) Request(ctx context.Context, id string) (model.AnalysisRequest, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return model.AnalysisRequest{}, err
	}
	data, err := s.Content(ctx, id)
	if err != nil {
		return model.AnalysisRequest{}, err
	}
	return model.AnalysisRequest{Content: string(data), Metadata: f.Metadata()}, nil
}

// List returns stored files, newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*File, error) {
	q := `SELECT ` + fileColumns + ` FROM files ORDER BY uploaded_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	out := []*File{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Delete removes the metadata row and the stored content.
func (s *Store) Delete(ctx context.Context, id string) error {
	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove upload content",
			logging.Field{Key: "file_id", Value: id},
			logging.Field{Key: "error", Value: err})
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
