// Package ephemeral implements the ephemeral store (§4.2): an in-memory
// staging area for pre-confirmation registrants, with background eviction.
package ephemeral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stickfixdb "github.com/stickfix/stickfix/internal/db"
	"github.com/stickfix/stickfix/internal/store"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS users (
	chat_id BIGINT PRIMARY KEY,
	username VARCHAR(50) NOT NULL,
	state VARCHAR(50) NOT NULL,
	created TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// Store is the ephemeral store: its own in-memory connection, never
// shared with the persistent store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	cancel context.CancelFunc
}

// Init opens a dedicated in-memory connection, creates its schema, and
// starts the background eviction task. interval/threshold come from
// internal/config's EphemeralConfig. The returned Store's eviction
// goroutine runs until ctx is cancelled.
func Init(ctx context.Context, logger *slog.Logger, interval, threshold time.Duration) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := stickfixdb.Open(stickfixdb.Driver, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open ephemeral store: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaDDL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ephemeral schema: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &Store{
		db:     conn,
		logger: logger.With(slog.String("component", "ephemeral")),
		cancel: cancel,
	}
	go s.evictLoop(runCtx, interval, threshold)
	return s, nil
}

// Close stops the eviction task and closes the underlying connection.
func (s *Store) Close() error {
	s.cancel()
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type preconditionError struct {
	kind    store.ErrorKind
	message string
}

func (e *preconditionError) Error() string { return e.message }

func precondition(kind store.ErrorKind, message string) error {
	return &preconditionError{kind: kind, message: message}
}

func asFailure[T any](err error) store.Result[T] {
	var pe *preconditionError
	if errors.As(err, &pe) {
		return store.Failure[T](pe.message, pe.kind)
	}
	return store.Failure[T](err.Error(), store.ErrBackend)
}

// Add registers a pre-confirmation user. Fails with ConstraintViolation
// if id is already staged.
func (s *Store) Add(ctx context.Context, id int64, username, state string) store.Result[store.User] {
	var user store.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE chat_id = ?`, id).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return precondition(store.ErrConstraintViolation, "user already staged")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (chat_id, username, state) VALUES (?, ?, ?)`, id, username, state); err != nil {
			if stickfixdb.IsConstraintViolation(err) {
				return precondition(store.ErrConstraintViolation, "user already staged")
			}
			return err
		}
		row := tx.QueryRowContext(ctx, `SELECT chat_id, username, state, created FROM users WHERE chat_id = ?`, id)
		return row.Scan(&user.ID, &user.Username, &user.State, &user.CreatedAt)
	})
	if err != nil {
		return asFailure[store.User](err)
	}
	return store.Success("user staged", user)
}

// Get fails with ConstraintViolation if id is not staged.
func (s *Store) Get(ctx context.Context, id int64) store.Result[store.User] {
	var user store.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT chat_id, username, state, created FROM users WHERE chat_id = ?`, id)
		if err := row.Scan(&user.ID, &user.Username, &user.State, &user.CreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return precondition(store.ErrConstraintViolation, "user not staged")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return asFailure[store.User](err)
	}
	return store.Success("user found", user)
}

// Delete fails with ConstraintViolation if id is not staged.
func (s *Store) Delete(ctx context.Context, id int64) store.Result[store.User] {
	var user store.User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT chat_id, username, state, created FROM users WHERE chat_id = ?`, id)
		if err := row.Scan(&user.ID, &user.Username, &user.State, &user.CreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return precondition(store.ErrConstraintViolation, "user not staged")
			}
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE chat_id = ?`, id)
		return err
	})
	if err != nil {
		return asFailure[store.User](err)
	}
	return store.Success("user removed", user)
}

func (s *Store) evictLoop(ctx context.Context, interval, threshold time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.evictOlderThan(ctx, threshold); err != nil {
				s.logger.Error("eviction failed", slog.String("error", err.Error()))
			} else if n > 0 {
				s.logger.Info("evicted stale staged users", slog.Int64("count", n))
			}
		}
	}
}

func (s *Store) evictOlderThan(ctx context.Context, threshold time.Duration) (int64, error) {
	cutoff := time.Now().Add(-threshold)
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE created < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
