package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"course_progress_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// TreeCache 缓存渲染好的进度视图，键为 (学生, 课程)，写入后必须失效
type TreeCache interface {
	Get(ctx context.Context, studentID, courseID uint) (*ProgressView, bool)
	Set(ctx context.Context, view *ProgressView)
	Invalidate(ctx context.Context, studentID, courseID uint)
}

func progressCacheKey(studentID, courseID uint) string {
	return fmt.Sprintf("progress:view:%d:%d", studentID, courseID)
}

type RedisTreeCache struct {
	Redis *redis.Client
	ttl   atomic.Int64
}

func NewRedisTreeCache(rdb *redis.Client, ttl time.Duration) *RedisTreeCache {
	c := &RedisTreeCache{Redis: rdb}
	c.SetTTL(ttl)
	return c
}

// SetTTL 热加载时调用；非正数关闭缓存写入
func (c *RedisTreeCache) SetTTL(ttl time.Duration) {
	c.ttl.Store(int64(ttl))
}

func (c *RedisTreeCache) Get(ctx context.Context, studentID, courseID uint) (*ProgressView, bool) {
	raw, err := c.Redis.Get(ctx, progressCacheKey(studentID, courseID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("progress cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var view ProgressView
	if err := json.Unmarshal(raw, &view); err != nil {
		logger.Log.Warn("progress cache entry is corrupt", zap.Error(err))
		c.Invalidate(ctx, studentID, courseID)
		return nil, false
	}
	return &view, true
}

func (c *RedisTreeCache) Set(ctx context.Context, view *ProgressView) {
	ttl := time.Duration(c.ttl.Load())
	if view == nil || ttl <= 0 {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		logger.Log.Warn("progress cache encode failed", zap.Error(err))
		return
	}
	if err := c.Redis.Set(ctx, progressCacheKey(view.StudentID, view.CourseID), raw, ttl).Err(); err != nil {
		logger.Log.Warn("progress cache write failed", zap.Error(err))
	}
}

func (c *RedisTreeCache) Invalidate(ctx context.Context, studentID, courseID uint) {
	if err := c.Redis.Del(ctx, progressCacheKey(studentID, courseID)).Err(); err != nil {
		logger.Log.Warn("progress cache invalidate failed", zap.Error(err))
	}
}

// NoopTreeCache 未启用 redis 时使用
type NoopTreeCache struct{}

func (NoopTreeCache) Get(context.Context, uint, uint) (*ProgressView, bool) { return nil, false }
func (NoopTreeCache) Set(context.Context, *ProgressView)                    {}
func (NoopTreeCache) Invalidate(context.Context, uint, uint)                {}
