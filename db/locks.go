package db

import (
	"context"
	"database/sql"
	"fmt"
)

// JobLock держит session-scoped advisory lock Postgres на время фонового
// задания. Блокировка привязана к соединению, поэтому из пула выделяется
// отдельный *sql.Conn и удерживается до Release.
type JobLock struct {
	conn *sql.Conn
	name string
}

// TryJobLock пытается взять advisory lock по имени задания без ожидания.
// Возвращает (nil, nil), если блокировка уже занята другим процессом —
// вызывающий в этом случае пропускает запуск.
func TryJobLock(ctx context.Context, db *sql.DB, name string) (*JobLock, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for job lock %q: %w", name, err)
	}

	var acquired bool
	err = conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, name).Scan(&acquired)
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to try job lock %q: %w (close: %v)", name, err, closeErr)
		}
		return nil, fmt.Errorf("failed to try job lock %q: %w", name, err)
	}
	if !acquired {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("job lock %q busy, failed to release connection: %w", name, closeErr)
		}
		return nil, nil
	}

	return &JobLock{conn: conn, name: name}, nil
}

// Release снимает блокировку и возвращает соединение в пул.
func (l *JobLock) Release(ctx context.Context) error {
	if l == nil || l.conn == nil {
		return nil
	}
	_, err := l.conn.ExecContext(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, l.name)
	closeErr := l.conn.Close()
	l.conn = nil
	if err != nil {
		return fmt.Errorf("failed to release job lock %q: %w", l.name, err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close job lock connection for %q: %w", l.name, closeErr)
	}
	return nil
}
