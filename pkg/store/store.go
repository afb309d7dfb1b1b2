// Package store is the collision server's persistence layer: the
// users, dps and collisions tables from the external interface design,
// backed by a single SQLite file exactly as the original Python
// implementation's database.py does (one process-wide connection,
// WAL journal, busy-timeout instead of application-level locking).
// Every operation that can race with itself across concurrent HTTP
// requests (InsertResult) runs inside a single transaction, giving the
// "exactly one Collision row per dp" invariant for free from SQLite's
// writer serialisation.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dcollide/birthdayparty/pkg/apierr"
	"github.com/dcollide/birthdayparty/pkg/clock"
	"github.com/dcollide/birthdayparty/pkg/userstore"
)

// Store is the collision server's database handle.
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

// Open opens (and, if necessary, creates) the SQLite database at path
// and ensures its schema exists. Writes are serialised through a
// single connection: SQLite does not support concurrent writers, and
// the design requires InsertResult's check-or-insert-then-collide
// sequence to be atomic, so there is no benefit to a larger pool.
func Open(path string, clk clock.Clock) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, apierr.Newf(apierr.KindTransient, "opening database: %s", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, clock: clk}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewInMemoryForTesting opens an in-memory database, for use by this
// package's and its callers' tests. It uses SQLite's shared cache, so
// stores opened this way at the same time within one process see the
// same data; the data is gone once the last of them is closed.
func NewInMemoryForTesting(clk clock.Clock) (*Store, error) {
	db, err := sql.Open("sqlite3", "file::memory:?cache=shared")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, clock: clk}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			username      TEXT PRIMARY KEY,
			token_hash    TEXT NOT NULL,
			dp_count      INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS dps (
			dp            BLOB PRIMARY KEY,
			start         BLOB NOT NULL,
			username      TEXT NOT NULL,
			received_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS dps_received_at ON dps(received_at);
		CREATE TABLE IF NOT EXISTS collisions (
			dp            BLOB PRIMARY KEY,
			start_a       BLOB NOT NULL,
			start_b       BLOB NOT NULL,
			detected_at   INTEGER NOT NULL
		);
	`)
	if err != nil {
		return apierr.Newf(apierr.KindTransient, "initialising schema: %s", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser registers a new user with an already-hashed token. It
// returns a *apierr.Error (KindBadRequest) if the username is already
// taken.
func (s *Store) CreateUser(ctx context.Context, username, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, token_hash) VALUES (?, ?)`,
		username, tokenHash)
	if err != nil {
		return apierr.Newf(apierr.KindBadRequest, "creating user %q: %s", username, err)
	}
	return nil
}

// Authenticate reports whether token is the correct token for
// username. A missing user and a wrong token are indistinguishable to
// the caller, matching the single AuthFailure kind in the error
// design.
func (s *Store) Authenticate(ctx context.Context, username, token string) (bool, error) {
	var tokenHash string
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash FROM users WHERE username = ?`, username,
	).Scan(&tokenHash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apierr.Newf(apierr.KindTransient, "looking up user %q: %s", username, err)
	}
	return userstore.VerifyToken(tokenHash, token), nil
}

// Outcome describes what InsertResult did with one submitted record.
type Outcome int

const (
	// OutcomeInserted is a brand new dp, stored for the first time.
	OutcomeInserted Outcome = iota
	// OutcomeDuplicate is a resubmission of (dp, same start): a
	// no-op that must not be counted as a new result.
	OutcomeDuplicate
	// OutcomeCollision is a dp already stored under a different
	// start: a pre-collision, reported via the returned *Collision.
	OutcomeCollision
)

// Collision is a detected pre-collision between two distinct starts
// sharing a distinguished point.
type Collision struct {
	DP           []byte
	StartA       []byte
	StartB       []byte
	NewlyCreated bool
}

// InsertResult implements the three-outcome DP table state machine
// from the server design: absent -> stored(start) -> collided(start,
// start'). It runs as a single transaction so concurrent submissions
// of the same dp from different workers can only ever create one
// Collision row (enforced by the PRIMARY KEY on collisions.dp).
func (s *Store) InsertResult(ctx context.Context, username string, start, dp []byte) (Outcome, *Collision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, apierr.Newf(apierr.KindTransient, "beginning transaction: %s", err)
	}
	defer tx.Rollback()

	var existingStart []byte
	err = tx.QueryRowContext(ctx, `SELECT start FROM dps WHERE dp = ?`, dp).Scan(&existingStart)
	switch {
	case err == sql.ErrNoRows:
		now := s.clock.Now().Unix()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO dps (dp, start, username, received_at) VALUES (?, ?, ?, ?)`,
			dp, start, username, now,
		); err != nil {
			return 0, nil, apierr.Newf(apierr.KindTransient, "inserting dp: %s", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET dp_count = dp_count + 1 WHERE username = ?`, username,
		); err != nil {
			return 0, nil, apierr.Newf(apierr.KindTransient, "updating user dp_count: %s", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, nil, apierr.Newf(apierr.KindTransient, "committing insert: %s", err)
		}
		return OutcomeInserted, nil, nil

	case err != nil:
		return 0, nil, apierr.Newf(apierr.KindTransient, "looking up dp: %s", err)
	}

	if bytes.Equal(existingStart, start) {
		// Duplicate submission of (dp, same start): no-op.
		return OutcomeDuplicate, nil, nil
	}

	// A different start for an already-stored dp: a pre-collision,
	// unless this dp has already collided before.
	var alreadyCollided bool
	switch err := tx.QueryRowContext(ctx, `SELECT 1 FROM collisions WHERE dp = ?`, dp).Scan(new(int)); {
	case err == sql.ErrNoRows:
		alreadyCollided = false
	case err != nil:
		return 0, nil, apierr.Newf(apierr.KindTransient, "checking existing collision: %s", err)
	default:
		alreadyCollided = true
	}

	now := s.clock.Now().Unix()
	if !alreadyCollided {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collisions (dp, start_a, start_b, detected_at) VALUES (?, ?, ?, ?)`,
			dp, existingStart, start, now,
		); err != nil {
			return 0, nil, apierr.Newf(apierr.KindTransient, "inserting collision: %s", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET dp_count = dp_count + 1 WHERE username = ?`, username,
	); err != nil {
		return 0, nil, apierr.Newf(apierr.KindTransient, "updating user dp_count: %s", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, nil, apierr.Newf(apierr.KindTransient, "committing collision: %s", err)
	}

	return OutcomeCollision, &Collision{
		DP:           dp,
		StartA:       existingStart,
		StartB:       start,
		NewlyCreated: !alreadyCollided,
	}, nil
}

// Stats is a snapshot of the dashboard's aggregate numbers.
type Stats struct {
	DPCount         int64
	CollisionCount  int64
	RecentDPCount   int64
	RecentDPMinutes int
}

// GetStats computes the dashboard's top-level counters, grounded on
// the original implementation's handle_dashboard query shapes
// (dps_found, precollisions_found, dps_last_10mins).
func (s *Store) GetStats(ctx context.Context, recentMinutes int) (Stats, error) {
	stats := Stats{RecentDPMinutes: recentMinutes}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dps`).Scan(&stats.DPCount); err != nil {
		return Stats{}, apierr.Newf(apierr.KindTransient, "counting dps: %s", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collisions`).Scan(&stats.CollisionCount); err != nil {
		return Stats{}, apierr.Newf(apierr.KindTransient, "counting collisions: %s", err)
	}
	cutoff := s.clock.Now().Add(-time.Duration(recentMinutes) * time.Minute).Unix()
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dps WHERE received_at > ?`, cutoff,
	).Scan(&stats.RecentDPCount); err != nil {
		return Stats{}, apierr.Newf(apierr.KindTransient, "counting recent dps: %s", err)
	}
	return stats, nil
}

// UserStat is one row of the dashboard's per-user leaderboard.
type UserStat struct {
	Username string
	DPCount  int64
}

// UsersByDPCount returns every user ordered by DP count, descending.
func (s *Store) UsersByDPCount(ctx context.Context) ([]UserStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username, dp_count FROM users ORDER BY dp_count DESC`)
	if err != nil {
		return nil, apierr.Newf(apierr.KindTransient, "listing users: %s", err)
	}
	defer rows.Close()

	var out []UserStat
	for rows.Next() {
		var u UserStat
		if err := rows.Scan(&u.Username, &u.DPCount); err != nil {
			return nil, apierr.Newf(apierr.KindTransient, "scanning user row: %s", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RecentDP is one row of the dashboard's recent-activity table.
type RecentDP struct {
	Username   string
	Start, DP  []byte
	ReceivedAt time.Time
}

// RecentDPs returns the most recently received DPs, newest first.
func (s *Store) RecentDPs(ctx context.Context, limit int) ([]RecentDP, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, start, dp, received_at FROM dps ORDER BY received_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apierr.Newf(apierr.KindTransient, "listing recent dps: %s", err)
	}
	defer rows.Close()

	var out []RecentDP
	for rows.Next() {
		var r RecentDP
		var receivedAt int64
		if err := rows.Scan(&r.Username, &r.Start, &r.DP, &receivedAt); err != nil {
			return nil, apierr.Newf(apierr.KindTransient, "scanning dp row: %s", err)
		}
		r.ReceivedAt = time.Unix(receivedAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllCollisions returns every detected pre-collision, newest first.
func (s *Store) AllCollisions(ctx context.Context) ([]Collision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dp, start_a, start_b FROM collisions ORDER BY detected_at DESC`)
	if err != nil {
		return nil, apierr.Newf(apierr.KindTransient, "listing collisions: %s", err)
	}
	defer rows.Close()

	var out []Collision
	for rows.Next() {
		var c Collision
		if err := rows.Scan(&c.DP, &c.StartA, &c.StartB); err != nil {
			return nil, apierr.Newf(apierr.KindTransient, "scanning collision row: %s", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
