package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTaskSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initTaskSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmt := `CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		text VARCHAR(300) NOT NULL
	);`
	if _, err := pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("init task schema failed on %q: %w", stmt, err)
	}
	return nil
}

func (s *PostgresStore) withConn(ctx context.Context, fn func(conn *pgxpool.Conn) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire postgres connection: %w", err)
	}
	defer conn.Release()
	return fn(conn)
}

func (s *PostgresStore) ListTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `SELECT id, text FROM tasks ORDER BY id ASC`)
		if err != nil {
			return fmt.Errorf("list tasks: %w", err)
		}
		defer rows.Close()

		out = make([]Task, 0, 16)
		for rows.Next() {
			var t Task
			if err := rows.Scan(&t.ID, &t.Text); err != nil {
				return fmt.Errorf("scan task row: %w", err)
			}
			out = append(out, t)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate task rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, text string) (Task, error) {
	var task Task
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		row := conn.QueryRow(ctx, `INSERT INTO tasks (text) VALUES ($1) RETURNING id, text`, text)
		if err := row.Scan(&task.ID, &task.Text); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		return nil
	})
	return task, err
}

func (s *PostgresStore) UpdateTaskText(ctx context.Context, id int64, text string) (Task, error) {
	var task Task
	err := s.withConn(ctx, func(conn *pgxpool.Conn) error {
		row := conn.QueryRow(ctx, `UPDATE tasks SET text=$1 WHERE id=$2 RETURNING id, text`, text, id)
		if err := row.Scan(&task.ID, &task.Text); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return notFound(id)
			}
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return task, nil
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id int64) error {
	return s.withConn(ctx, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return notFound(id)
		}
		return nil
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Kind() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
