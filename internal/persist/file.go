package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStorage keeps every key in a single JSON document on disk.
type FileStorage struct {
	FilePath string
	mu       sync.RWMutex
	data     map[string]json.RawMessage
}

// NewFileStorage opens (or prepares) the document at filePath.
func NewFileStorage(filePath string) (*FileStorage, error) {
	s := &FileStorage{
		FilePath: filePath,
		data:     make(map[string]json.RawMessage),
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if err := s.loadFromFile(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", filePath, err)
	}
	return s, nil
}

var _ Storage = (*FileStorage)(nil)

func (s *FileStorage) loadFromFile() error {
	raw, err := os.ReadFile(s.FilePath)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &s.data)
}

// saveToFile writes through a temp file so a crash never leaves a torn document.
func (s *FileStorage) saveToFile() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.FilePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.FilePath)
}

func (s *FileStorage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	var out string
	if err := json.Unmarshal(v, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return []byte(out), nil
}

// Set stores value as a JSON string, the way browser storage holds it.
func (s *FileStorage) Set(_ context.Context, key string, value []byte) error {
	encoded, err := json.Marshal(string(value))
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = encoded
	return s.saveToFile()
}

func (s *FileStorage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.saveToFile()
}
