package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/covcall/pkg/metrics"
)

// MemorySymbolStore keeps saved symbols for the life of the process.
type MemorySymbolStore struct {
	mu      sync.RWMutex
	symbols []string
}

var _ SymbolStore = (*MemorySymbolStore)(nil)

// NewMemorySymbolStore creates a store seeded with symbols.
func NewMemorySymbolStore(symbols ...string) *MemorySymbolStore {
	return &MemorySymbolStore{symbols: append([]string(nil), symbols...)}
}

// Load implements SymbolStore.
func (s *MemorySymbolStore) Load(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.symbols...), nil
}

// Save implements SymbolStore.
func (s *MemorySymbolStore) Save(_ context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.symbols = append([]string(nil), symbols...)
	metrics.UpdateSavedSymbols(len(s.symbols))
	return nil
}

// FileSymbolStore keeps saved symbols as a JSON array on disk.
type FileSymbolStore struct {
	mu   sync.Mutex
	path string
}

var _ SymbolStore = (*FileSymbolStore)(nil)

// NewFileSymbolStore creates a store backed by path. The file is created
// on first Save.
func NewFileSymbolStore(path string) *FileSymbolStore {
	return &FileSymbolStore{path: path}
}

// Path returns the backing file.
func (s *FileSymbolStore) Path() string { return s.path }

// Load implements SymbolStore.
func (s *FileSymbolStore) Load(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		metrics.RecordStoreFailure("load")
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		metrics.RecordStoreFailure("load")
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
	}
	if symbols == nil {
		symbols = []string{}
	}
	metrics.UpdateSavedSymbols(len(symbols))
	return symbols, nil
}

// Save implements SymbolStore. The file is replaced atomically.
func (s *FileSymbolStore) Save(_ context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if symbols == nil {
		symbols = []string{}
	}
	data, err := json.MarshalIndent(symbols, "", "  ")
	if err != nil {
		return err
	}
	if err := s.write(data); err != nil {
		metrics.RecordStoreFailure("save")
		return err
	}
	metrics.UpdateSavedSymbols(len(symbols))
	return nil
}

func (s *FileSymbolStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".symbols-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
