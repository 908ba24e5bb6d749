package db

import (
	"fmt"
	"time"

	"feature_catalogue_app_go/logger"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Options selects the database backend
type Options struct {
	Path        string
	Environment string
	TursoURL    string
	TursoToken  string
}

// Initialize opens the database. A Turso URL selects the remote libSQL
// driver, otherwise a local SQLite file is opened in WAL mode.
func Initialize(opts Options) error {
	var err error

	logLevel, writerLevel := gormLogLevels(opts.Environment)
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(zapWriter{level: writerLevel}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	if opts.TursoURL != "" {
		dsn := opts.TursoURL
		if opts.TursoToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", opts.TursoURL, opts.TursoToken)
		}
		dialector = sqlite.New(sqlite.Config{DriverName: "libsql", DSN: dsn})
	} else {
		dialector = sqlite.Open(opts.Path + "?_journal_mode=WAL&_busy_timeout=5000")
	}

	DB, err = gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.TursoURL != "" {
		logger.L().Infow("database connection established", "backend", "libsql")
	} else {
		logger.L().Infow("database connection established", "backend", "sqlite", "path", opts.Path)
	}
	return nil
}

// gormLogLevels pairs gorm's threshold with the zap level its output is
// written at. Production only lets warnings through, so they must reach zap
// above its Info floor.
func gormLogLevels(environment string) (gormlogger.LogLevel, zapcore.Level) {
	if environment == "production" {
		return gormlogger.Warn, zapcore.WarnLevel
	}
	return gormlogger.Info, zapcore.DebugLevel
}

// zapWriter routes gorm's logger through the process logger. Messages that
// carry a query error are raised to Error.
type zapWriter struct {
	level zapcore.Level
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	level := w.level
	for _, arg := range args {
		if _, ok := arg.(error); ok {
			level = zapcore.ErrorLevel
			break
		}
	}
	logger.L().Logf(level, format, args...)
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.L().Info("database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
