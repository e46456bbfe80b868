package tasks

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process store for local/dev use and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	tasks  map[int64]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[int64]string)}
}

func (s *MemoryStore) ListTasks(_ context.Context) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, 0, len(s.tasks))
	for id, text := range s.tasks {
		out = append(out, Task{ID: id, Text: text})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateTask(_ context.Context, text string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.tasks[s.nextID] = text
	return Task{ID: s.nextID, Text: text}, nil
}

func (s *MemoryStore) UpdateTaskText(_ context.Context, id int64, text string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return Task{}, notFound(id)
	}
	s.tasks[id] = text
	return Task{ID: id, Text: text}, nil
}

func (s *MemoryStore) DeleteTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return notFound(id)
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Close() error { return nil }
