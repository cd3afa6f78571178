package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"course_progress_backend/internal/util"
	"course_progress_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Locker 保证同一 (学生, 课程) 同时只有一个写入者
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func subjectLockKey(studentID, courseID uint) string {
	return fmt.Sprintf("lock:progress:%d:%d", studentID, courseID)
}

// 只删除自己持有的锁
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker 多实例部署时使用的 SETNX 锁，value 为持有者 token
type RedisLocker struct {
	Redis    *redis.Client
	TTL      time.Duration
	Wait     time.Duration
	interval time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{Redis: rdb, TTL: ttl, Wait: ttl, interval: 25 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.Redis.SetNX(ctx, key, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func() { once.Do(func() { l.release(key, token) }) }, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%s: %w", key, util.ErrLockNotAcquired)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", key, util.ErrLockNotAcquired)
		case <-time.After(l.interval):
		}
	}
}

func (l *RedisLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := unlockScript.Run(ctx, l.Redis, []string{key}, token).Err(); err != nil && err != redis.Nil {
		logger.Log.Warn("release progress lock failed", zap.String("key", key), zap.Error(err))
	}
}

// LocalLocker 单实例进程内锁，没有持有者和等待者的 key 会被回收
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*localSlot
}

type localSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*localSlot)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &localSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.unref(key, slot)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, slot)
		return nil, fmt.Errorf("%s: %w", key, util.ErrLockNotAcquired)
	}
}

func (l *LocalLocker) unref(key string, slot *localSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}
