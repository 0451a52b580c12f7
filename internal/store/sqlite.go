package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tamuctf/CTFd/internal/domain"
	"github.com/tamuctf/CTFd/internal/shared"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an update targets a missing row.
var ErrNotFound = errors.New("store: not found")

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	cacheMu sync.Mutex // serializes cache rewrites to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository. ":memory:" opens a
// private in-memory database.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS admins (
		admin_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		nonce TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_admins_last_seen ON admins(last_seen_at);

	CREATE TABLE IF NOT EXISTS challenges (
		id INTEGER PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		value INTEGER NOT NULL DEFAULT 0,
		hidden INTEGER NOT NULL DEFAULT 0,
		hint TEXT NOT NULL DEFAULT '',
		percentage_solved REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS cache_meta (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetAdmin retrieves an admin by id.
func (s *SQLiteStore) GetAdmin(ctx context.Context, adminID string) (*domain.Admin, error) {
	query := `
		SELECT admin_id, username, nonce, last_seen_at, created_at, updated_at
		FROM admins WHERE admin_id = ?`

	admin, err := scanAdmin(s.db.QueryRowContext(ctx, query, adminID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan admin row: %w", err)
	}
	return admin, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdmin(row rowScanner) (*domain.Admin, error) {
	var admin domain.Admin
	var lastSeen, createdAt, updatedAt int64
	if err := row.Scan(&admin.AdminID, &admin.Username, &admin.Nonce, &lastSeen, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	admin.LastSeenAt = time.Unix(lastSeen, 0)
	admin.CreatedAt = time.Unix(createdAt, 0)
	admin.UpdatedAt = time.Unix(updatedAt, 0)
	return &admin, nil
}

// UpsertAdmin creates or updates an admin record.
func (s *SQLiteStore) UpsertAdmin(ctx context.Context, admin *domain.Admin) error {
	query := `
	INSERT INTO admins (admin_id, username, nonce, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(admin_id) DO UPDATE SET
		username = excluded.username,
		nonce = excluded.nonce,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	return shared.Retry(ctx, shared.DefaultSQLiteRetry, shared.IsSQLiteConflictError, "upsert_admin", func() error {
		_, err := s.db.ExecContext(ctx, query,
			admin.AdminID, admin.Username, admin.Nonce,
			admin.LastSeenAt.Unix(), admin.CreatedAt.Unix(), admin.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert admin: %w", err)
		}
		return nil
	})
}

// UpdateLastSeen updates the last_seen_at timestamp for an admin.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, adminID string, lastSeen time.Time) error {
	query := `UPDATE admins SET last_seen_at = ?, updated_at = ? WHERE admin_id = ?`

	var rows int64
	err := shared.Retry(ctx, shared.DefaultSQLiteRetry, shared.IsSQLiteConflictError, "update_last_seen", func() error {
		result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), adminID)
		if err != nil {
			return fmt.Errorf("update last_seen: %w", err)
		}
		rows, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "admin_id", adminID)
	}
	return nil
}

// GetIdleAdmins returns admins inactive for longer than ttl.
func (s *SQLiteStore) GetIdleAdmins(ctx context.Context, ttl time.Duration) ([]*domain.Admin, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `
		SELECT admin_id, username, nonce, last_seen_at, created_at, updated_at
		FROM admins WHERE last_seen_at < ?`

	rows, err := s.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("query idle admins: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close idle admin rows", "error", closeErr)
		}
	}()

	var admins []*domain.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idle admin row: %w", err)
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle admins: %w", err)
	}
	return admins, nil
}

// DeleteAdmin removes an admin record.
func (s *SQLiteStore) DeleteAdmin(ctx context.Context, adminID string) error {
	return shared.Retry(ctx, shared.DefaultSQLiteRetry, shared.IsSQLiteConflictError, "delete_admin", func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM admins WHERE admin_id = ?`, adminID); err != nil {
			return fmt.Errorf("delete admin: %w", err)
		}
		return nil
	})
}

// ReplaceChallenges swaps the cached listing for a fresh one.
func (s *SQLiteStore) ReplaceChallenges(ctx context.Context, challenges []domain.Challenge, fetchedAt time.Time) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	return shared.Retry(ctx, shared.DefaultSQLiteRetry, shared.IsSQLiteConflictError, "replace_challenges", func() error {
		return s.replaceChallengesOnce(ctx, challenges, fetchedAt)
	})
}

func (s *SQLiteStore) replaceChallengesOnce(ctx context.Context, challenges []domain.Challenge, fetchedAt time.Time) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Debug("cache rollback failed", "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM challenges`); err != nil {
		return fmt.Errorf("clear challenge cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO challenges (id, position, name, category, description, value, hidden, hint, percentage_solved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare challenge insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range challenges {
		if _, err = stmt.ExecContext(ctx, c.ID, i, c.Name, c.Category, c.Description, c.Value, c.Hidden, c.Hint, c.PercentageSolved); err != nil {
			return fmt.Errorf("insert challenge %d: %w", c.ID, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO cache_meta (name, value) VALUES ('challenges_fetched_at', ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`, fetchedAt.UnixNano()); err != nil {
		return fmt.Errorf("record fetch time: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit challenge cache: %w", err)
	}
	return nil
}

const challengeColumns = `id, name, category, description, value, hidden, hint, percentage_solved`

func scanChallenge(row rowScanner) (domain.Challenge, error) {
	var c domain.Challenge
	err := row.Scan(&c.ID, &c.Name, &c.Category, &c.Description, &c.Value, &c.Hidden, &c.Hint, &c.PercentageSolved)
	return c, err
}

// ListChallenges returns the cached listing in server order.
func (s *SQLiteStore) ListChallenges(ctx context.Context) ([]domain.Challenge, time.Time, error) {
	var fetchedNano sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_meta WHERE name = 'challenges_fetched_at'`).Scan(&fetchedNano)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("read cache time: %w", err)
	}
	var fetchedAt time.Time
	if fetchedNano.Valid {
		fetchedAt = time.Unix(0, fetchedNano.Int64)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+challengeColumns+` FROM challenges ORDER BY position`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("query challenges: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close challenge rows", "error", closeErr)
		}
	}()

	var challenges []domain.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("scan challenge row: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate challenges: %w", err)
	}
	return challenges, fetchedAt, nil
}

// GetChallenge returns one cached challenge.
func (s *SQLiteStore) GetChallenge(ctx context.Context, id int) (*domain.Challenge, error) {
	c, err := scanChallenge(s.db.QueryRowContext(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan challenge: %w", err)
	}
	return &c, nil
}

// UpsertChallenge updates one cached challenge in place, appending it when new.
func (s *SQLiteStore) UpsertChallenge(ctx context.Context, c domain.Challenge) error {
	query := `
	INSERT INTO challenges (id, position, name, category, description, value, hidden, hint, percentage_solved)
	VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM challenges), ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		category = excluded.category,
		description = excluded.description,
		value = excluded.value,
		hidden = excluded.hidden,
		hint = excluded.hint`

	return shared.Retry(ctx, shared.DefaultSQLiteRetry, shared.IsSQLiteConflictError, "upsert_challenge", func() error {
		if _, err := s.db.ExecContext(ctx, query, c.ID, c.Name, c.Category, c.Description, c.Value, c.Hidden, c.Hint, c.PercentageSolved); err != nil {
			return fmt.Errorf("upsert challenge: %w", err)
		}
		return nil
	})
}

// DeleteChallenge removes one challenge from the cache.
func (s *SQLiteStore) DeleteChallenge(ctx context.Context, id int) error {
	var rows int64
	err := shared.Retry(ctx, shared.DefaultSQLiteRetry, shared.IsSQLiteConflictError, "delete_challenge", func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM challenges WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete challenge: %w", err)
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
