package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"course_progress_backend/internal/config"
	"course_progress_backend/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader 收到重新解析后的配置
type Reloader func(cfg *config.Config)

const debounce = time.Second

// Watch 监听配置目录下的 config.yaml，写入或替换后防抖重载，直到 ctx 结束。
// 监听目录而不是文件，编辑器原子替换文件时也能收到事件。
func Watch(ctx context.Context, dir string, reload Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	if err := watcher.Add(absDir); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	target := filepath.Join(absDir, "config.yaml")

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
		case <-timer.C:
			newCfg, err := config.LoadConfig(dir)
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("path", target))
			reload(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
