package security

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"course_progress_backend/internal/config"
	"course_progress_backend/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CORS 中间件 仅允许白名单中的Origin，支持Credentials
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	originSet := make(map[string]bool, len(cfg.AllowedOrigins))
	allowAll := false
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if origin != "" && (allowAll || originSet[origin]) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Secure 中间件
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Cache-Control", "no-store")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// KeyFunc 决定限流维度
type KeyFunc func(c *gin.Context) string

func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}

// ByUser 已登录用户按 user_id 限流，否则退回 IP
func ByUser(c *gin.Context) string {
	if claims := util.GetUserFromContext(c); claims != nil {
		return fmt.Sprintf("user:%d", claims.UserID)
	}
	return ByClientIP(c)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter 按 key 维护令牌桶，定期清理长时间未出现的条目
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	expiry   time.Duration
	now      func() time.Time
}

func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1
	}
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	expiry := window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
		expiry:   expiry,
		now:      time.Now,
	}
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	l.mu.Unlock()
	return v.limiter.Allow()
}

// Sweep 删除过期条目，返回剩余数量
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.expiry {
			delete(l.visitors, key)
		}
	}
	return len(l.visitors)
}

// Run 周期清理，直到 stop 关闭
func (l *Limiter) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-stop:
			return
		}
	}
}

func (l *Limiter) Middleware(key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(key(c)) {
			util.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
