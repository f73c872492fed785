package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	logging "github.com/ipfs/go-log/v2"

	"github.com/mehul-tandon/WipeOut/internal/models"
)

var fileLog = logging.Logger("store/file")

// FileStore keeps one JSON file per certificate id in a flat directory.
//
// Commits are atomic: the payload is written to a temp file in the same
// directory and linked into place under its final name. The link fails
// if the name already exists, which doubles as the overwrite-never
// check, and a crash mid-write leaves only an orphaned temp file, never
// a readable half-certificate.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating certificate directory: %w", err)
	}
	fileLog.Infow("file store initialized", "dir", dir)
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Put(ctx context.Context, cert *models.Certificate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.certPath(cert.CertificateID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cert, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding certificate: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-cert-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing certificate: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing certificate: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing certificate: %w", err)
	}

	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, cert.CertificateID)
		}
		return fmt.Errorf("committing certificate: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*models.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.certPath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading certificate: %w", err)
	}

	var cert models.Certificate
	if err := json.Unmarshal(data, &cert); err != nil {
		return nil, fmt.Errorf("decoding certificate %s: %w", id, err)
	}
	return &cert, nil
}

// certPath rejects ids that could escape the store directory. Issued
// ids are UUIDs, so anything with separators is hostile input.
func (s *FileStore) certPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: invalid certificate id %q", ErrNotFound, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

var _ Store = (*FileStore)(nil)
