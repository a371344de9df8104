// Package storage mirrors archived questions into secondary backends.
// The filesystem archive is the source of truth; backends here are
// optional replicas (currently MongoDB).
package storage

import (
	"github.com/gretools/greharvest/internal/types"
)

// Storage is the interface for all mirror backends.
type Storage interface {
	// Store persists a batch of question records.
	Store(records []*types.QuestionRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// MultiStorage writes records to multiple backends simultaneously.
type MultiStorage struct {
	backends []Storage
}

// NewMultiStorage creates a storage that fans out to multiple backends.
func NewMultiStorage(backends ...Storage) *MultiStorage {
	return &MultiStorage{backends: backends}
}

func (s *MultiStorage) Name() string { return "multi" }

func (s *MultiStorage) Store(records []*types.QuestionRecord) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Store(records); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *MultiStorage) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
