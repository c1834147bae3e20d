package analytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hyzmat-tm/portfolio/internal/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tr, err := NewTracker(db, "test-salt", zap.NewNop())
	require.NoError(t, err)
	return tr
}

func TestHashIP(t *testing.T) {
	tr := newTracker(t)

	h := tr.HashIP("203.0.113.7")
	assert.Len(t, h, 16)
	assert.Equal(t, h, tr.HashIP("203.0.113.7"))
	assert.NotEqual(t, h, tr.HashIP("203.0.113.8"))
	assert.NotContains(t, h, "203")
}

func TestNewTracker_RandomSalt(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	a, err := NewTracker(db, "", nil)
	require.NoError(t, err)
	b, err := NewTracker(db, "", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.HashIP("10.0.0.1"), b.HashIP("10.0.0.1"))
}

func TestStats(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()

	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	at := func(offset time.Duration) {
		tr.now = func() time.Time { return now.Add(offset) }
	}

	at(-10 * 24 * time.Hour)
	require.NoError(t, tr.Record(ctx, "1.1.1.1", "ua", "/api/projects"))
	at(-3 * 24 * time.Hour)
	require.NoError(t, tr.Record(ctx, "2.2.2.2", "ua", "/api/projects/1"))
	at(-time.Hour)
	require.NoError(t, tr.Record(ctx, "1.1.1.1", "ua", "/api/projects"))
	at(0)
	require.NoError(t, tr.Record(ctx, "3.3.3.3", "ua", "/api/projects"))

	stats, err := tr.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalVisits)
	assert.Equal(t, int64(3), stats.UniqueVisitors)
	assert.Equal(t, int64(2), stats.VisitsToday)
	assert.Equal(t, int64(3), stats.VisitsThisWeek)
	require.NotEmpty(t, stats.TopPaths)
	assert.Equal(t, PathStat{Path: "/api/projects", Visits: 3}, stats.TopPaths[0])
	require.Len(t, stats.RecentVisits, 4)
	assert.Equal(t, now.Unix(), stats.RecentVisits[0].VisitedAt.Unix())
	assert.Equal(t, tr.HashIP("3.3.3.3"), stats.RecentVisits[0].HashedIP)
}

func TestStats_Empty(t *testing.T) {
	tr := newTracker(t)

	stats, err := tr.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVisits)
	assert.NotNil(t, stats.TopPaths)
	assert.NotNil(t, stats.RecentVisits)
}

func TestCleanup_RemovesOnlyOldVisits(t *testing.T) {
	tr := newTracker(t)
	ctx := context.Background()

	now := time.Now()
	tr.now = func() time.Time { return now.Add(-400 * 24 * time.Hour) }
	require.NoError(t, tr.Record(ctx, "1.1.1.1", "ua", "/api/projects"))
	tr.now = func() time.Time { return now.Add(-30 * 24 * time.Hour) }
	require.NoError(t, tr.Record(ctx, "2.2.2.2", "ua", "/api/projects"))
	tr.now = func() time.Time { return now }

	n, err := tr.Cleanup(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stats, err := tr.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalVisits)
}

func TestMiddleware(t *testing.T) {
	tr := newTracker(t)

	r := gin.New()
	r.Use(tr.Middleware("/api/projects"))
	r.GET("/api/projects", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/projects", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/api/projects/:id", func(c *gin.Context) {
		if c.Param("id") != "1" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	do := func(method, path string, dnt bool) {
		req := httptest.NewRequest(method, path, nil)
		if dnt {
			req.Header.Set("DNT", "1")
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	do(http.MethodGet, "/api/projects", false)
	do(http.MethodGet, "/api/projects", true)
	do(http.MethodGet, "/health", false)
	do(http.MethodPost, "/api/projects", false)
	do(http.MethodGet, "/api/projects/1", false)
	do(http.MethodGet, "/api/projects/404", false)
	do(http.MethodGet, "/api/projects/abc", false)

	stats, err := tr.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalVisits)
	paths := make([]string, 0, len(stats.TopPaths))
	for _, p := range stats.TopPaths {
		paths = append(paths, p.Path)
	}
	assert.ElementsMatch(t, []string{"/api/projects", "/api/projects/1"}, paths)
}
