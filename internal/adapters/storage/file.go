package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/alejandrodnm/streakbot/internal/domain"
)

// FileStore persiste el estado como un documento JSON en disco. Compatible con
// el bot_state.json de la primera versión: lo migra al cargar.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore crea el store. El directorio padre se crea si no existe.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage.NewFileStore: mkdir %q: %w", dir, err)
		}
	}
	return &FileStore{path: path}, nil
}

// Load implementa ports.StateStore. Un fichero inexistente es un estado vacío.
func (f *FileStore) Load(_ context.Context) (*domain.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.FileStore.Load: read %q: %w", f.path, err)
	}

	st, err := domain.DecodeState(data)
	if err != nil {
		return nil, fmt.Errorf("storage.FileStore.Load: %w", err)
	}
	return st, nil
}

// Save implementa ports.StateStore. Escribe en un temporal y renombra, así un
// crash a mitad de escritura nunca deja el documento truncado.
func (f *FileStore) Save(_ context.Context, st *domain.State) error {
	data, err := domain.EncodeState(st)
	if err != nil {
		return fmt.Errorf("storage.FileStore.Save: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage.FileStore.Save: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.FileStore.Save: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("storage.FileStore.Save: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage.FileStore.Save: close: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage.FileStore.Save: rename: %w", err)
	}
	return nil
}

// Close implementa ports.StateStore.
func (f *FileStore) Close() error { return nil }
