// Package distlock provides best-effort mutual exclusion across processes.
// Redis locks guard short critical sections such as connection-status
// writes; PostgreSQL advisory locks guard schema migrations.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
)

// ErrNotAcquired is returned by Run when another holder owns the lock.
var ErrNotAcquired = errors.New("distlock: lock held elsewhere")

// Locker is a non-blocking lock.
type Locker interface {
	// TryAcquire reports whether the lock was obtained.
	TryAcquire(ctx context.Context) (bool, error)
	// Release drops the lock if still owned.
	Release(ctx context.Context) error
}

// Run executes fn while holding l. It returns ErrNotAcquired without
// calling fn when the lock is taken.
func Run(ctx context.Context, l Locker, fn func(ctx context.Context) error) error {
	ok, err := l.TryAcquire(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAcquired
	}
	defer l.Release(context.WithoutCancel(ctx))
	return fn(ctx)
}

// AdvisoryLock uses pg_try_advisory_lock. The lock is session-scoped, so it
// pins one connection from the pool for its lifetime.
type AdvisoryLock struct {
	db     *sql.DB
	conn   *sql.Conn
	lockID int64
}

// NewAdvisoryLock derives a stable lock ID from key.
func NewAdvisoryLock(db *sql.DB, key string) *AdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &AdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

func (l *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *AdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	defer func() {
		l.conn.Close()
		l.conn = nil
	}()
	_, err := l.conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
