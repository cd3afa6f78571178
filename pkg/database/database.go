package database

import (
	"fmt"

	"course_progress_backend/internal/config"
	"course_progress_backend/internal/model"
	"course_progress_backend/internal/util"
	"course_progress_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models 引擎管理的全部表
var Models = []interface{}{
	&model.Course{},
	&model.Lesson{},
	&model.Topic{},
	&model.Quiz{},
	&model.QuizAttempt{},
	&model.Activity{},
	&model.Enrollment{},
	&model.StudentDetail{},
	&model.StudentProgress{},
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", util.DriverMySQL:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case util.DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case util.DriverSQLite:
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if mode == "debug" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(d, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Database connection established", zap.String("driver", d.Name()))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return err
	}
	logger.Log.Info("Database migration completed", zap.Int("tables", len(Models)))
	return nil
}
