package statefile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by Load when no document is stored under a name.
var ErrNotFound = errors.New("state document not found")

// Store persists documents by name.
type Store interface {
	Save(ctx context.Context, name string, doc *Document) error
	Load(ctx context.Context, name string) (*Document, error)
}

// FileStore keeps documents as files in Dir. The codec follows the file
// extension; names without an extension are stored as JSON.
type FileStore struct {
	Dir string
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	if filepath.Ext(name) == "" {
		name += JSON.Extension()
	}
	return filepath.Join(s.Dir, name), nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, name string, doc *Document) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	data, err := CodecFor(path).Encode(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.Dir, ".state-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, name string) (*Document, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return CodecFor(path).Decode(data)
}

// List returns the names of all stored documents.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") {
			continue
		}
		if strings.HasSuffix(n, JSON.Extension()) || strings.HasSuffix(n, MsgpackZstd.Extension()) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// SaveFile writes doc to path, choosing the codec from the extension.
func SaveFile(ctx context.Context, path string, doc *Document) error {
	s := &FileStore{Dir: filepath.Dir(path)}
	return s.Save(ctx, filepath.Base(path), doc)
}

// LoadFile reads a document from path.
func LoadFile(ctx context.Context, path string) (*Document, error) {
	s := &FileStore{Dir: filepath.Dir(path)}
	return s.Load(ctx, filepath.Base(path))
}
