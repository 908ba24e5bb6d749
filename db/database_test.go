package db

import (
	"errors"
	"testing"

	"feature_catalogue_app_go/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

type sampleRecord struct {
	ID   uint
	Name string
}

func observeLogs(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	core, logs := observer.New(level)
	restore := logger.Replace(zap.New(core).Sugar())
	t.Cleanup(restore)
	return logs
}

func TestGormLogLevels(t *testing.T) {
	gormLevel, zapLevel := gormLogLevels("production")
	assert.Equal(t, gormlogger.Warn, gormLevel)
	assert.Equal(t, zapcore.WarnLevel, zapLevel)

	gormLevel, zapLevel = gormLogLevels("development")
	assert.Equal(t, gormlogger.Info, gormLevel)
	assert.Equal(t, zapcore.DebugLevel, zapLevel)
}

func TestZapWriterPassesProductionInfoFloor(t *testing.T) {
	logs := observeLogs(t, zapcore.InfoLevel)
	_, writerLevel := gormLogLevels("production")
	w := zapWriter{level: writerLevel}

	w.Printf("%s %s\n[%.3fms] [rows:%v] %s", "features.go:10", "SLOW SQL >= 200ms", 350.0, 1, "SELECT 1")
	w.Printf("%s %s\n[%.3fms] [rows:%v] %s", "features.go:12", errors.New("no such table: features"), 1.0, 0, "SELECT 1")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Contains(t, entries[0].Message, "SLOW SQL")
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Contains(t, entries[1].Message, "no such table")
}

func TestInitializeLocalDatabase(t *testing.T) {
	observeLogs(t, zapcore.InfoLevel)

	require.NoError(t, Initialize(Options{Path: t.TempDir() + "/catalogue.db", Environment: "production"}))
	t.Cleanup(func() { _ = Close() })

	require.NoError(t, AutoMigrate(&sampleRecord{}))
	assert.True(t, DB.Migrator().HasTable("sample_records"))
}
