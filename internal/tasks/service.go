package tasks

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ent0n29/tasklist/internal/events"
)

// Publisher receives a notification after every successful mutation.
type Publisher interface {
	Publish(evt events.Event)
}

// Service maps task operations one-to-one onto the injected Store.
type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

func NewService(store Store, publisher Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, publisher: publisher, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Task, error) {
	return s.store.ListTasks(ctx)
}

// Add trims text and rejects it when nothing is left.
func (s *Service) Add(ctx context.Context, text string) (Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Task{}, NewValidationError("text", "Missing or empty 'text' field")
	}
	task, err := s.store.CreateTask(ctx, text)
	if err != nil {
		return Task{}, err
	}
	s.logger.DebugContext(ctx, "task added", "task_id", task.ID)
	s.publish(events.Event{Type: events.TypeTaskAdded, TaskID: task.ID, Text: task.Text})
	return task, nil
}

// Update replaces the text of an existing task. Unlike Add, whitespace-only
// text is stored as an empty string rather than rejected.
func (s *Service) Update(ctx context.Context, id int64, text string) (Task, error) {
	task, err := s.store.UpdateTaskText(ctx, id, strings.TrimSpace(text))
	if err != nil {
		return Task{}, err
	}
	s.logger.DebugContext(ctx, "task updated", "task_id", task.ID)
	s.publish(events.Event{Type: events.TypeTaskUpdated, TaskID: task.ID, Text: task.Text})
	return task, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "task deleted", "task_id", id)
	s.publish(events.Event{Type: events.TypeTaskDeleted, TaskID: id})
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) StoreKind() string {
	return s.store.Kind()
}

func (s *Service) publish(evt events.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(evt)
}
