// Package store implements the persistent store (§4.1): precondition-checked
// CRUD over the users/meta/stickers tables, with every public operation
// wrapped in a single database transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	stickfixdb "github.com/stickfix/stickfix/internal/db"
)

// Store is the persistent store. It owns one *sql.DB connection and
// guarantees per-operation atomicity: every public method below runs
// entirely inside one transaction.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Init opens (or migrates) the schema on conn and returns a ready Store.
// Table creation and the default-user insert are schema invariants, applied
// by the embedded migration rather than ad hoc checks (spec.md §9).
// Migration failure is a SchemaError and is fatal: it is returned as a
// plain error, not a Result, since it can happen before a transactional
// boundary even exists.
func Init(logger *slog.Logger, conn *sql.DB, migrationsFS fs.FS) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := stickfixdb.RunMigrate(logger, conn, migrationsFS, "up", nil); err != nil {
		return nil, fmt.Errorf("schema migration: %w", err)
	}
	return &Store{db: conn, logger: logger.With(slog.String("component", "store"))}, nil
}

// preconditionError marks a caught, recoverable precondition failure that
// withTx converts into a Failure Result instead of propagating as a real
// error.
type preconditionError struct {
	kind    ErrorKind
	message string
}

func (e *preconditionError) Error() string { return e.message }

func precondition(kind ErrorKind, message string) error {
	return &preconditionError{kind: kind, message: message}
}

// withTx opens a transaction, runs fn, and commits on success. A
// preconditionError or a driver constraint violation rolls back and is
// classified by the caller; any other error also rolls back but is
// reported as ErrBackend, never re-raised, per the store's "catch SQL
// errors and precondition-violation errors, nothing else propagates"
// discipline (spec.md §4.1).
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

// asFailure converts an error returned from withTx into a Result failure.
func asFailure[T any](err error) Result[T] {
	var pe *preconditionError
	if errors.As(err, &pe) {
		return Failure[T](pe.message, pe.kind)
	}
	return Failure[T](err.Error(), ErrBackend)
}

func countWhere(ctx context.Context, tx *sql.Tx, query string, args ...any) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func userExists(ctx context.Context, tx *sql.Tx, id int64) (bool, error) {
	n, err := countWhere(ctx, tx, `SELECT COUNT(*) FROM users WHERE chat_id = ?`, id)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// QueryAPIKey succeeds iff exactly one API_KEY row exists in meta.
func (s *Store) QueryAPIKey(ctx context.Context) Result[string] {
	var key string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT value FROM meta WHERE key = 'API_KEY'`)
		if err != nil {
			return err
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			if err := rows.Scan(&key); err != nil {
				return err
			}
			count++
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if count != 1 || key == "" {
			return precondition(ErrConstraintViolation, "API key must be present")
		}
		return nil
	})
	if err != nil {
		return asFailure[string](err)
	}
	return Success("api key found", key)
}

// GetUser fails with ConstraintViolation if no row exists for id.
func (s *Store) GetUser(ctx context.Context, id int64) Result[User] {
	var user User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT chat_id, username, state, private_mode, shuffle, created FROM users WHERE chat_id = ?`, id)
		if err := row.Scan(&user.ID, &user.Username, &user.State, &user.PrivateMode, &user.Shuffle, &user.CreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return precondition(ErrConstraintViolation, "user must exist")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return asFailure[User](err)
	}
	return Success("user found", user)
}

// AddUser fails with ConstraintViolation if a row already exists for
// user.ID. Empty usernames are accepted (spec.md §4.1 tie-break). The new
// row always starts in IdleStateName.
func (s *Store) AddUser(ctx context.Context, id int64, username string) Result[User] {
	var user User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := userExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if exists {
			return precondition(ErrConstraintViolation, "user must not exist")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (chat_id, username, state) VALUES (?, ?, ?)`,
			id, username, IdleStateName); err != nil {
			if stickfixdb.IsConstraintViolation(err) {
				return precondition(ErrConstraintViolation, "user must not exist")
			}
			return err
		}
		row := tx.QueryRowContext(ctx, `SELECT chat_id, username, state, private_mode, shuffle, created FROM users WHERE chat_id = ?`, id)
		return row.Scan(&user.ID, &user.Username, &user.State, &user.PrivateMode, &user.Shuffle, &user.CreatedAt)
	})
	if err != nil {
		return asFailure[User](err)
	}
	return Success("user added", user)
}

// SetUserState fails if id is the default user (I2) or the user does not
// exist (I3). stateName is persisted verbatim (the caller, internal/fsm,
// supplies the canonical PascalCase tag name).
func (s *Store) SetUserState(ctx context.Context, id int64, stateName string) Result[string] {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if id == DefaultUserID {
			return precondition(ErrInvariantViolation, "default user state cannot be changed")
		}
		exists, err := userExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return precondition(ErrConstraintViolation, "user must exist")
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET state = ? WHERE chat_id = ?`, stateName, id)
		return err
	})
	if err != nil {
		return asFailure[string](err)
	}
	return Success("state updated", stateName)
}

// DeleteUser fails if id is the default user (I2) or the user does not
// exist (I3). The user's stickers are deleted together with the user.
func (s *Store) DeleteUser(ctx context.Context, id int64) Result[User] {
	var user User
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if id == DefaultUserID {
			return precondition(ErrInvariantViolation, "default user cannot be deleted")
		}
		row := tx.QueryRowContext(ctx, `SELECT chat_id, username, state, private_mode, shuffle, created FROM users WHERE chat_id = ?`, id)
		if err := row.Scan(&user.ID, &user.Username, &user.State, &user.PrivateMode, &user.Shuffle, &user.CreatedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return precondition(ErrConstraintViolation, "user must exist")
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM stickers WHERE user_id = ?`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM users WHERE chat_id = ?`, id)
		return err
	})
	if err != nil {
		return asFailure[User](err)
	}
	return Success("user deleted", user)
}

// SetPrivateMode fails if id is the default user or does not exist.
func (s *Store) SetPrivateMode(ctx context.Context, id int64, enabled bool) Result[bool] {
	return s.setMode(ctx, id, "private_mode", enabled)
}

// SetShuffleMode fails if id is the default user or does not exist.
func (s *Store) SetShuffleMode(ctx context.Context, id int64, enabled bool) Result[bool] {
	return s.setMode(ctx, id, "shuffle", enabled)
}

func (s *Store) setMode(ctx context.Context, id int64, column string, enabled bool) Result[bool] {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if id == DefaultUserID {
			return precondition(ErrInvariantViolation, "default user mode cannot be changed")
		}
		exists, err := userExists(ctx, tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return precondition(ErrConstraintViolation, "user must exist")
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf(`UPDATE users SET %s = ? WHERE chat_id = ?`, column), enabled, id)
		return err
	})
	if err != nil {
		return asFailure[bool](err)
	}
	return Success("mode updated", enabled)
}

// AddSticker registers stickerID under every tag in tags, owned by userID.
// All inserts happen in one transaction (I4): if any tag is already
// claimed, the whole call fails with ConstraintViolation and nothing is
// persisted.
func (s *Store) AddSticker(ctx context.Context, userID int64, stickerID string, tags []string) Result[[]Sticker] {
	var added []Sticker
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := userExists(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return precondition(ErrConstraintViolation, "user must exist")
		}
		added = make([]Sticker, 0, len(tags))
		for _, tag := range tags {
			n, err := countWhere(ctx, tx, `SELECT COUNT(*) FROM stickers WHERE tag = ?`, tag)
			if err != nil {
				return err
			}
			if n > 0 {
				return precondition(ErrConstraintViolation, fmt.Sprintf("tag %q already claimed", tag))
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO stickers (tag, user_id, sticker_id) VALUES (?, ?, ?)`,
				tag, userID, stickerID); err != nil {
				if stickfixdb.IsConstraintViolation(err) {
					return precondition(ErrConstraintViolation, fmt.Sprintf("tag %q already claimed", tag))
				}
				return err
			}
			added = append(added, Sticker{Tag: tag, UserID: userID, StickerID: stickerID})
		}
		return nil
	})
	if err != nil {
		return asFailure[[]Sticker](err)
	}
	return Success("stickers added", added)
}

// GetStickersByTag fails with ConstraintViolation if no sticker is
// registered under tag.
func (s *Store) GetStickersByTag(ctx context.Context, tag string) Result[Sticker] {
	var sticker Sticker
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT tag, user_id, sticker_id FROM stickers WHERE tag = ?`, tag)
		if err := row.Scan(&sticker.Tag, &sticker.UserID, &sticker.StickerID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return precondition(ErrConstraintViolation, "tag not found")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return asFailure[Sticker](err)
	}
	return Success("sticker found", sticker)
}

// ListStickersByUser returns every sticker tag owned by userID. An empty
// result is a success, not a failure: "no stickers yet" is not a
// constraint violation.
func (s *Store) ListStickersByUser(ctx context.Context, userID int64) Result[[]Sticker] {
	var stickers []Sticker
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT tag, user_id, sticker_id FROM stickers WHERE user_id = ? ORDER BY tag`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		stickers = make([]Sticker, 0)
		for rows.Next() {
			var sticker Sticker
			if err := rows.Scan(&sticker.Tag, &sticker.UserID, &sticker.StickerID); err != nil {
				return err
			}
			stickers = append(stickers, sticker)
		}
		return rows.Err()
	})
	if err != nil {
		return asFailure[[]Sticker](err)
	}
	return Success("stickers listed", stickers)
}

// CountUsers returns the number of registered users, including the
// default user. Used by the dispatcher's read-only daily digest.
func (s *Store) CountUsers(ctx context.Context) Result[int] {
	var n int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = countWhere(ctx, tx, `SELECT COUNT(*) FROM users`)
		return err
	})
	if err != nil {
		return asFailure[int](err)
	}
	return Success("users counted", n)
}

// CountStickers returns the total number of tagged stickers.
func (s *Store) CountStickers(ctx context.Context) Result[int] {
	var n int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = countWhere(ctx, tx, `SELECT COUNT(*) FROM stickers`)
		return err
	})
	if err != nil {
		return asFailure[int](err)
	}
	return Success("stickers counted", n)
}
