// Package store keeps anonymous site analytics in sqlite: hashed visitor
// records and aggregate achievement unlock counts. Nothing here is ever read
// back into a visitor's page state.
package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/Zachkp/folio/internal/portfolio"
)

// Visitor is one tracked page request.
type Visitor struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	VisitedAt time.Time `json:"visited_at"`
}

// AchievementCount is how often an achievement has been unlocked.
type AchievementCount struct {
	Achievement string `json:"achievement" db:"achievement"`
	Count       int64  `json:"count" db:"count"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalVisitors    int64              `json:"total_visitors"`
	UniqueVisitors   int64              `json:"unique_visitors"`
	VisitorsToday    int64              `json:"visitors_today"`
	VisitorsThisWeek int64              `json:"visitors_this_week"`
	TotalUnlocks     int64              `json:"total_unlocks"`
	Unlocks          []AchievementCount `json:"unlocks"`
	RecentVisitors   []Visitor          `json:"recent_visitors"`
}

type visitorRow struct {
	ID        int64  `db:"id"`
	HashedIP  string `db:"hashed_ip"`
	UserAgent string `db:"user_agent"`
	Path      string `db:"path"`
	VisitedAt int64  `db:"visited_at"`
}

func (r visitorRow) toVisitor() Visitor {
	return Visitor{
		ID:        r.ID,
		HashedIP:  r.HashedIP,
		UserAgent: r.UserAgent,
		Path:      r.Path,
		VisitedAt: time.Unix(r.VisitedAt, 0).UTC(),
	}
}

// Store is the analytics database.
type Store struct {
	db   *sqlx.DB
	salt string
	now  func() time.Time
}

// Open connects to the sqlite database at path. Use ":memory:" for a
// throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "store: opening %s", path)
	}
	// sqlite serialises writers; one connection also keeps :memory: stable
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	salt, err := randomHex(16)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, salt: salt, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "store: generating salt")
	}
	return hex.EncodeToString(b), nil
}

// HashIP returns a salted, truncated hash of ip. The salt lives only for the
// process lifetime, so hashes cannot be joined across restarts.
func (s *Store) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL DEFAULT '',
		visited_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visitors_visited_at ON visitors (visited_at)`,
	`CREATE TABLE IF NOT EXISTS achievement_unlocks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		achievement TEXT NOT NULL,
		unlocked_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_unlocks_achievement ON achievement_unlocks (achievement)`,
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "store: begin migration")
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "store: migrating")
		}
	}
	return errors.Wrap(tx.Commit(), "store: commit migration")
}

// RecordVisit stores a page request with the client address hashed.
func (s *Store) RecordVisit(ctx context.Context, ip, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, visited_at) VALUES (?, ?, ?, ?)`,
		s.HashIP(ip), userAgent, path, s.now().Unix(),
	)
	return errors.Wrap(err, "store: recording visit")
}

// RecordUnlock counts one unlock of id.
func (s *Store) RecordUnlock(ctx context.Context, id portfolio.AchievementID) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO achievement_unlocks (achievement, unlocked_at) VALUES (?, ?)`,
		string(id), s.now().Unix(),
	)
	return errors.Wrap(err, "store: recording unlock")
}

// RecentVisitors returns the newest visits first.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]Visitor, error) {
	var rows []visitorRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, hashed_ip, user_agent, path, visited_at
		FROM visitors
		ORDER BY visited_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "store: listing visitors")
	}

	out := make([]Visitor, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toVisitor())
	}
	return out, nil
}

// UnlockCounts returns unlock totals per achievement, most common first.
func (s *Store) UnlockCounts(ctx context.Context) ([]AchievementCount, error) {
	var out []AchievementCount
	err := s.db.SelectContext(ctx, &out, `
		SELECT achievement, COUNT(*) AS count
		FROM achievement_unlocks
		GROUP BY achievement
		ORDER BY count DESC, achievement ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "store: counting unlocks")
	}
	return out, nil
}

// Stats gathers the dashboard summary.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	stats := &Stats{}
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE visited_at >= ?`, []any{dayStart.Unix()}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE visited_at >= ?`, []any{weekAgo.Unix()}},
		{&stats.TotalUnlocks, `SELECT COUNT(*) FROM achievement_unlocks`, nil},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dst, c.query, c.args...); err != nil {
			return nil, errors.Wrap(err, "store: loading stats")
		}
	}

	var err error
	if stats.Unlocks, err = s.UnlockCounts(ctx); err != nil {
		return nil, err
	}
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

// CleanupVisitors deletes visits older than retention and returns how many
// rows were removed.
func (s *Store) CleanupVisitors(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).Unix()
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE visited_at < ?`, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "store: cleaning visitors")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "store: cleaning visitors")
	}
	return n, nil
}
