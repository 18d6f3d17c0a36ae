package tasks

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for single-session use and testing.
type MemStore struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		tasks: make(map[string]Task),
	}
}

// Create implements [Store.Create].
func (s *MemStore) Create(ctx context.Context, task Task) (Task, error) {
	if task.ID == "" {
		id, err := generateID()
		if err != nil {
			return Task{}, fmt.Errorf("tasks: generate id: %w", err)
		}
		task.ID = id
	}
	if task.Status == "" {
		task.Status = StatusOpen
	}
	if !task.Status.IsValid() {
		return Task{}, fmt.Errorf("tasks: invalid status %q", task.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tasks == nil {
		s.tasks = make(map[string]Task)
	}
	if _, exists := s.tasks[task.ID]; exists {
		return Task{}, ErrDuplicateID
	}

	s.tasks[task.ID] = task
	return task, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		result = append(result, t)
	}
	return result, nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, task Task) error {
	if !task.Status.IsValid() {
		return fmt.Errorf("tasks: invalid status %q", task.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return ErrNotFound
	}

	s.tasks[task.ID] = task
	return nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}

	delete(s.tasks, id)
	return nil
}

// SetStatus implements [Store.SetStatus].
func (s *MemStore) SetStatus(ctx context.Context, id string, status Status) error {
	if !status.IsValid() {
		return fmt.Errorf("tasks: invalid status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}

	t.Status = status
	s.tasks[id] = t
	return nil
}

// generateID produces a random 16-byte hex string using crypto/rand.
// The resulting string is 32 hex characters and is statistically unique.
func generateID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
