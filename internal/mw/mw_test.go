package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/ok", func(c *gin.Context) {
		calls++
		c.Header("X-Calls", "counted")
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/fail", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusBadGateway, gin.H{"error": "down"})
	})

	do := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		return w
	}

	first := do("/ok")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":1}`, first.Body.String())

	second := do("/ok")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, "counted", second.Header().Get("X-Calls"), "headers are replayed")
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())

	do("/fail")
	failed := do("/fail")
	assert.Equal(t, http.StatusBadGateway, failed.Code)
	assert.Equal(t, 3, calls, "errors are not cached")
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(1), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, "limits are per client")
}

func TestLogger(t *testing.T) {
	r := gin.New()
	r.Use(Logger(logrus.WithField("component", "api")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCache_KeyAndOptOut(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/events", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"q": c.QueryArray("calendar_id")})
	})
	r.GET("/live", func(c *gin.Context) {
		calls++
		c.Header("Cache-Control", "no-store")
		c.Status(http.StatusOK)
	})

	do := func(path string) string {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Header().Get(CacheHeader)
	}

	assert.Equal(t, "MISS", do("/events?calendar_id=a&x=1"))
	assert.Equal(t, "HIT", do("/events?x=1&calendar_id=a"))
	assert.Equal(t, "MISS", do("/events?calendar_id=b"))
	assert.Equal(t, 2, calls)

	do("/live")
	assert.Equal(t, "MISS", do("/live"))
	assert.Equal(t, 4, calls)
}

func TestClientLimiters_SameBucketPerIP(t *testing.T) {
	l := NewClientLimiters(rate.Limit(1), 1)
	a := l.Get("10.0.0.1")
	assert.Same(t, a, l.Get("10.0.0.1"))
	assert.NotSame(t, a, l.Get("10.0.0.2"))
}
