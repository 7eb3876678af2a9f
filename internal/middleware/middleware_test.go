package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.POST("/api/rooms/:code/transfers", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func do(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := newRouter(RateLimit(rdb, "test:", 2, time.Minute))

	assert.Equal(t, http.StatusCreated, do(r, "/api/rooms/AAAA/transfers").Code)
	w := do(r, "/api/rooms/BBBB/transfers")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = do(r, "/api/rooms/AAAA/transfers")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")

	// окно истекло
	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusCreated, do(r, "/api/rooms/AAAA/transfers").Code)
}

func TestRateLimit_RedisDownLetsRequestsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	r := newRouter(RateLimit(rdb, "test:", 1, time.Minute))
	mr.Close()

	assert.Equal(t, http.StatusCreated, do(r, "/api/rooms/AAAA/transfers").Code)
	assert.Equal(t, http.StatusCreated, do(r, "/api/rooms/AAAA/transfers").Code)
}

func TestRateLimit_PanicsOnBadConfig(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	assert.Panics(t, func() { RateLimit(nil, "", 1, time.Second) })
	assert.Panics(t, func() { RateLimit(rdb, "", 0, time.Second) })
	assert.Panics(t, func() { RateLimit(rdb, "", 1, 0) })
}

func TestRequestLogger(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	r := newRouter(RequestLogger())
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	do(r, "/api/rooms/AAAA/transfers")
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, http.StatusCreated, entry.Data["status"])
	assert.Equal(t, "/api/rooms/AAAA/transfers", entry.Data["path"])

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}
