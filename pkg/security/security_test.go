package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"course_progress_backend/internal/config"
	"course_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestLimiterPerKey(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{MaxRequests: 2, WindowMinutes: 1})
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestLimiterSweep(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{MaxRequests: 10, WindowMinutes: 1})
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	l.Allow("old")

	now = now.Add(2 * time.Minute)
	l.Allow("fresh")
	assert.Equal(t, 2, l.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
}

func TestLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewLimiter(config.RateLimitConfig{MaxRequests: 1, WindowMinutes: 1})
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(util.ContextUserKey, &util.Claims{UserID: 7})
		c.Next()
	})
	r.GET("/x", l.Middleware(ByUser), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes[i] = w.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(config.CORSConfig{AllowedOrigins: []string{"https://edu.example.com"}}), Secure())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://edu.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://edu.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/x", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLimiterRunStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := NewLimiter(config.RateLimitConfig{MaxRequests: 1, WindowMinutes: 1})
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		l.Run(stop)
		close(done)
	}()
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after stop")
	}
}
