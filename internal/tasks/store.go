package tasks

import "context"

// Store persists tasks. Implementations acquire a connection per call and
// release it before returning.
type Store interface {
	ListTasks(ctx context.Context) ([]Task, error)
	CreateTask(ctx context.Context, text string) (Task, error)
	UpdateTaskText(ctx context.Context, id int64, text string) (Task, error)
	DeleteTask(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Kind() string
	Close() error
}
