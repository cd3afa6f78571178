package database

import (
	"context"
	"fmt"
	"time"

	"course_progress_backend/internal/config"
	"course_progress_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// InitRedis 缓存与分布式锁共用一个连接池；启动时连接失败直接返回错误
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 50
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: poolSize / 10,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", rdb.Options().Addr, err)
	}

	logger.Log.Info("Redis connection established",
		zap.String("addr", rdb.Options().Addr), zap.Int("poolSize", poolSize))
	return rdb, nil
}
