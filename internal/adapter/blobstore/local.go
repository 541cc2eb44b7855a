// Package blobstore persists uploaded documents and recorded media on local
// disk. References are relative paths under the store's base directory, so a
// database row never carries an absolute filesystem path.
package blobstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Store implements domain.BlobStore on the local filesystem.
type Store struct {
	baseDir string
}

// New creates the base directory if needed and returns a Store rooted there.
func New(baseDir string) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("op=blobstore.New: %w: empty base dir", domain.ErrInvalidArgument)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("op=blobstore.New: create base dir: %w", err)
	}
	return &Store{baseDir: baseDir}, nil
}

// Save streams r into a new file under kind/ and returns its reference. The
// original filename only contributes its extension; the stored name is a
// fresh UUID so uploads never collide or leak user-supplied names.
func (s *Store) Save(ctx domain.Context, kind, filename string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch kind {
	case domain.BlobKindResume, domain.BlobKindAudio, domain.BlobKindVideo:
	default:
		return "", fmt.Errorf("op=blobstore.Save: %w: unknown kind %q", domain.ErrInvalidArgument, kind)
	}

	dir := filepath.Join(s.baseDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("op=blobstore.Save: create dir: %w", err)
	}

	name := uuid.NewString() + safeExt(filename)
	target := filepath.Join(dir, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("op=blobstore.Save: create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("op=blobstore.Save: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("op=blobstore.Save: close file: %w", err)
	}

	return filepath.ToSlash(filepath.Join(kind, name)), nil
}

// Open returns the stored bytes for ref.
func (s *Store) Open(ctx domain.Context, ref string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("op=blobstore.Open: %w: %s", domain.ErrNotFound, ref)
		}
		return nil, fmt.Errorf("op=blobstore.Open: %w", err)
	}
	return f, nil
}

// Delete removes the stored file for ref. Deleting a missing ref is not an
// error; callers use Delete for best-effort cleanup.
func (s *Store) Delete(ctx domain.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("op=blobstore.Delete: %w", err)
	}
	return nil
}

// resolve maps a reference to an absolute path, rejecting anything that
// would escape the base directory.
func (s *Store) resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("op=blobstore.resolve: %w: empty ref", domain.ErrInvalidArgument)
	}
	clean := filepath.Clean(filepath.FromSlash(ref))
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("op=blobstore.resolve: %w: disallowed ref %q", domain.ErrInvalidArgument, ref)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// safeExt returns a lowercase file extension stripped of anything unusual.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if r != '.' && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
