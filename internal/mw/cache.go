package mw

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheHeader reports whether a response was served from the cache.
const CacheHeader = "X-Cache"

type storedResponse struct {
	status int
	header http.Header
	body   []byte
}

// recorder tees the body into buf while it is written to the client.
type recorder struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// cacheKey is path plus the encoded query. url.Values.Encode sorts by key so
// ?a=1&b=2 and ?b=2&a=1 share an entry.
func cacheKey(c *gin.Context) string {
	q := c.Request.URL.Query()
	if len(q) == 0 {
		return c.Request.URL.Path
	}
	return c.Request.URL.Path + "?" + q.Encode()
}

// Cache replays successful GET responses from store for ttl. Handlers opt out
// per response with "Cache-Control: no-store".
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c)
		if v, ok := store.Get(key); ok {
			resp := v.(storedResponse)
			h := c.Writer.Header()
			for k, vals := range resp.header {
				h[k] = vals
			}
			h.Set(CacheHeader, "HIT")
			c.Writer.WriteHeader(resp.status)
			_, _ = c.Writer.Write(resp.body)
			c.Abort()
			return
		}

		c.Writer.Header().Set(CacheHeader, "MISS")
		rec := &recorder{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status < 200 || status >= 300 || strings.Contains(rec.Header().Get("Cache-Control"), "no-store") {
			return
		}
		header := rec.Header().Clone()
		header.Del(CacheHeader)
		store.Set(key, storedResponse{status: status, header: header, body: bytes.Clone(rec.buf.Bytes())}, ttl)
	}
}
