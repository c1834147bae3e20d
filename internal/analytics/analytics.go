// Package analytics records privacy-conscious page visits and reports
// aggregate statistics to the admin.
//
// Client IPs are never stored. Each IP is salted and hashed, and the digest is
// truncated so it identifies returning visitors without being reversible.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Visit is one recorded request.
type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashedIp"`
	UserAgent string    `json:"userAgent"`
	Path      string    `json:"path"`
	VisitedAt time.Time `json:"visitedAt"`
}

// PathStat counts visits to one path.
type PathStat struct {
	Path   string `json:"path"`
	Visits int64  `json:"visits"`
}

// Stats summarizes recorded visits.
type Stats struct {
	TotalVisits    int64      `json:"totalVisits"`
	UniqueVisitors int64      `json:"uniqueVisitors"`
	VisitsToday    int64      `json:"visitsToday"`
	VisitsThisWeek int64      `json:"visitsThisWeek"`
	TopPaths       []PathStat `json:"topPaths"`
	RecentVisits   []Visit    `json:"recentVisits"`
}

// Tracker writes visits to the visitors table.
type Tracker struct {
	db     *sql.DB
	salt   string
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker returns a Tracker. An empty salt is replaced by a random one,
// which means unique-visitor counts reset when the process restarts.
func NewTracker(db *sql.DB, salt string, logger *zap.Logger) (*Tracker, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if salt == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		salt = hex.EncodeToString(b)
	}
	return &Tracker{db: db, salt: salt, logger: logger.Named("analytics"), now: time.Now}, nil
}

// HashIP returns the stored form of ip.
func (t *Tracker) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + t.salt))
	return hex.EncodeToString(sum[:])[:16]
}

// Record stores one visit.
func (t *Tracker) Record(ctx context.Context, ip, userAgent, path string) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, visited_at) VALUES (?, ?, ?, ?)`,
		t.HashIP(ip), userAgent, path, t.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

// Middleware records successful GET requests under any of the given path
// prefixes. Requests sending "DNT: 1" are not recorded. Failures are logged
// only.
func (t *Tracker) Middleware(prefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || c.GetHeader("DNT") == "1" {
			return
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}
		path := c.Request.URL.Path
		if !hasAnyPrefix(path, prefixes) {
			return
		}
		if err := t.Record(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"), path); err != nil {
			t.logger.Warn("error recording visitor", zap.Error(err))
		}
	}
}

// Cleanup deletes visits older than retention.
func (t *Tracker) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := t.now().Add(-retention).Unix()
	result, err := t.db.ExecContext(ctx, `DELETE FROM visitors WHERE visited_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up visitors: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		t.logger.Info("privacy cleanup removed old visitor records", zap.Int64("count", n))
	}
	return n, nil
}

// Stats aggregates the visitors table.
func (t *Tracker) Stats(ctx context.Context) (*Stats, error) {
	now := t.now()
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Unix()
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()

	stats := &Stats{TopPaths: []PathStat{}, RecentVisits: []Visit{}}

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisits, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitsToday, `SELECT COUNT(*) FROM visitors WHERE visited_at >= ?`, []any{startOfDay}},
		{&stats.VisitsThisWeek, `SELECT COUNT(*) FROM visitors WHERE visited_at >= ?`, []any{weekAgo}},
	}
	for _, q := range counts {
		if err := t.db.QueryRowContext(ctx, q.query, q.args...).Scan(q.dst); err != nil {
			return nil, fmt.Errorf("failed to count visitors: %w", err)
		}
	}

	rows, err := t.db.QueryContext(ctx, `
		SELECT path, COUNT(*) AS visits
		FROM visitors
		GROUP BY path
		ORDER BY visits DESC, path ASC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("failed to query top paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ps PathStat
		if err := rows.Scan(&ps.Path, &ps.Visits); err != nil {
			return nil, fmt.Errorf("failed to scan top path: %w", err)
		}
		stats.TopPaths = append(stats.TopPaths, ps)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// release the single connection before the next query
	rows.Close()

	recent, err := t.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), visited_at
		FROM visitors
		ORDER BY visited_at DESC, id DESC
		LIMIT 50`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent visitors: %w", err)
	}
	defer recent.Close()
	for recent.Next() {
		var v Visit
		var ts int64
		if err := recent.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan visitor: %w", err)
		}
		v.VisitedAt = time.Unix(ts, 0).UTC()
		stats.RecentVisits = append(stats.RecentVisits, v)
	}
	if err := recent.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
