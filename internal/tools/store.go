package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	sqlite3 "github.com/mattn/go-sqlite3"

	"toolbridge/internal/logging"
)

// RetryPolicy bounds retries on transient SQLITE_BUSY/SQLITE_LOCKED errors.
// Attempts counts total tries. Only busy-class errors are retried; constraint
// violations and everything else fail on the first try.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy matches the default store config.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 50 * time.Millisecond}
}

// User is a row in the users table.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// UserStore is the local SQLite user store. The exported surface is a closed
// set of operations; callers never hand SQL text to the store.
type UserStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	retry  RetryPolicy
}

// NewUserStore opens (creating if needed) the SQLite database at path and
// ensures the users schema exists.
func NewUserStore(path string, policy RetryPolicy) (*UserStore, error) {
	logging.Store("Initializing UserStore at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	if policy.Attempts < 1 {
		policy = DefaultRetryPolicy()
	}

	s := &UserStore{db: db, dbPath: path, retry: policy}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Users schema initialized")
	return s, nil
}

func (s *UserStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *UserStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *UserStore) Path() string {
	return s.dbPath
}

// Ping verifies the database is reachable. Used by the health surface.
func (s *UserStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isBusy reports whether err is a transient SQLITE_BUSY/SQLITE_LOCKED error.
func isBusy(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
}

// withRetry runs fn under the store's bounded retry policy. Non-busy errors
// return immediately with the attempt budget unspent.
func (s *UserStore) withRetry(ctx context.Context, op string, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(uint(s.retry.Attempts)),
		retry.Delay(s.retry.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isBusy),
		retry.OnRetry(func(n uint, err error) {
			logging.StoreDebug("Retrying %s after busy error (attempt %d): %v", op, n+1, err)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

// AddUser inserts a user and returns the stored row.
func (s *UserStore) AddUser(ctx context.Context, name, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.withRetry(ctx, "AddUser", func() error {
		res, err := s.db.ExecContext(ctx,
			"INSERT INTO users (name, email) VALUES (?, ?)", name, email)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, fmt.Errorf("user with email %s already exists", email)
		}
		return nil, fmt.Errorf("failed to add user: %w", err)
	}

	logging.Store("Added user %q (id=%d)", name, id)
	return s.getUserByID(ctx, id)
}

func (s *UserStore) getUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM users WHERE id = ?", id)
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to read back user %d: %w", id, err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by id.
func (s *UserStore) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []User
	err := s.withRetry(ctx, "ListUsers", func() error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT id, name, email, created_at FROM users ORDER BY id")
		if err != nil {
			return err
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			var u User
			if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// FindUser returns users whose name matches the given name, case-insensitive
// substring match.
func (s *UserStore) FindUser(ctx context.Context, name string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []User
	err := s.withRetry(ctx, "FindUser", func() error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT id, name, email, created_at FROM users WHERE name LIKE ? ORDER BY id",
			"%"+name+"%")
		if err != nil {
			return err
		}
		defer rows.Close()

		users = users[:0]
		for rows.Next() {
			var u User
			if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find user %q: %w", name, err)
	}
	return users, nil
}

// CountUsers returns the number of stored users.
func (s *UserStore) CountUsers(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	err := s.withRetry(ctx, "CountUsers", func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// DeleteUser removes all users with an exact name match and returns how many
// rows were deleted. Password checking is the executor's job; the store only
// mutates rows.
func (s *UserStore) DeleteUser(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	err := s.withRetry(ctx, "DeleteUser", func() error {
		res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE name = ?", name)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete user %q: %w", name, err)
	}

	logging.Store("Deleted %d user(s) named %q", deleted, name)
	return deleted, nil
}

// Seed inserts the given users, skipping emails that already exist. Used by
// the initdb command to provision a recognizable starting dataset.
func (s *UserStore) Seed(ctx context.Context, users []User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted int64
	err := s.withRetry(ctx, "Seed", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		inserted = 0
		for _, u := range users {
			res, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO users (name, email) VALUES (?, ?)", u.Name, u.Email)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += n
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed users: %w", err)
	}
	return inserted, nil
}

// SampleUsers is the default seed dataset for initdb.
var SampleUsers = []User{
	{Name: "Alice Johnson", Email: "alice@example.com"},
	{Name: "Bob Smith", Email: "bob@example.com"},
	{Name: "Carol Davis", Email: "carol@example.com"},
	{Name: "David Wilson", Email: "david@example.com"},
	{Name: "Eva Brown", Email: "eva@example.com"},
}
