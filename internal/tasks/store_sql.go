package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

type sqlDialect struct {
	name   string
	schema string
}

var (
	sqliteDialect = sqlDialect{
		name: "sqlite",
		schema: `CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text VARCHAR(300) NOT NULL
		)`,
	}
	mysqlDialect = sqlDialect{
		name: "mysql",
		schema: `CREATE TABLE IF NOT EXISTS tasks (
			id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			text VARCHAR(300) NOT NULL
		) DEFAULT CHARSET=utf8mb4`,
	}
)

// SQLStore keeps tasks in a database/sql backend (SQLite or MySQL).
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
}

// NewSQLiteStore opens (or creates) the SQLite database at path and ensures
// the tasks table exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect)
}

// NewMySQLStore connects with a go-sql-driver DSN, e.g.
// "user:pass@tcp(127.0.0.1:3306)/tasks".
func NewMySQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	cfg, err := mysql.ParseDSN(strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	// Report matched rows so an update with unchanged text is not a miss.
	cfg.ClientFoundRows = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return newSQLStore(ctx, sql.OpenDB(connector), mysqlDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect sqlDialect) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s: %w", dialect.name, err)
	}
	if _, err := db.ExecContext(ctx, dialect.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init task schema (%s): %w", dialect.name, err)
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

func (s *SQLStore) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire %s connection: %w", s.dialect.name, err)
	}
	defer conn.Close()
	return fn(conn)
}

func (s *SQLStore) ListTasks(ctx context.Context) ([]Task, error) {
	var out []Task
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT id, text FROM tasks ORDER BY id ASC`)
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

func (s *SQLStore) CreateTask(ctx context.Context, text string) (Task, error) {
	var task Task
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `INSERT INTO tasks (text) VALUES (?)`, text)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		task = Task{ID: id, Text: text}
		return nil
	})
	return task, err
}

func (s *SQLStore) UpdateTaskText(ctx context.Context, id int64, text string) (Task, error) {
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `UPDATE tasks SET text = ? WHERE id = ?`, text, id)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return checkAffected(res, id)
	})
	if err != nil {
		return Task{}, err
	}
	return Task{ID: id, Text: text}, nil
}

func (s *SQLStore) DeleteTask(ctx context.Context, id int64) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return checkAffected(res, id)
	})
}

func checkAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Kind() string { return s.dialect.name }

func (s *SQLStore) Close() error {
	return s.db.Close()
}
