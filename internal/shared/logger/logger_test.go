package logger

import (
	"context"
	"testing"

	"replication-connector/internal/shared/contextkeys"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("info", "json")
	var _ Logger = NewZapLogger("debug", "json")
	var _ Logger = NewNopLogger()
}

func TestNewLogger_InstancesAreIndependent(t *testing.T) {
	t.Setenv("LOG_BACKEND", "")
	t.Setenv("LOG_LEVEL", "ERROR")
	first := NewLogger().(*LogrusLogger)
	t.Setenv("LOG_LEVEL", "DEBUG")
	second := NewLogger().(*LogrusLogger)

	assert.NotSame(t, first.entry.Logger, second.entry.Logger)
	assert.Equal(t, logrus.ErrorLevel, first.entry.Logger.GetLevel())
	assert.Equal(t, logrus.DebugLevel, second.entry.Logger.GetLevel())
}

func TestLogrusLogger_WithFieldsAndContext(t *testing.T) {
	logger := NewLogger()
	logger2 := logger.WithFields(map[string]interface{}{"foo": "bar"})
	assert.NotNil(t, logger2)
	ctx := context.Background()
	ctx = context.WithValue(ctx, contextkeys.JobIDKey, "job1")
	logger3 := logger.WithContext(ctx)
	assert.NotNil(t, logger3)
}

func TestLogrusLogger_WithComponent(t *testing.T) {
	logger := NewLogger()
	logger2 := logger.WithComponent("test-component")
	assert.NotNil(t, logger2)
}

func TestContextFields(t *testing.T) {
	ctx := context.Background()
	ctx = context.WithValue(ctx, contextkeys.JobIDKey, "job1")
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "")
	ctx = context.WithValue(ctx, contextkeys.SessionIDKey, 7)

	fields := contextFields(ctx)
	assert.Equal(t, map[string]interface{}{"job_id": "job1"}, fields)
}

func TestZapLogger_Backend(t *testing.T) {
	t.Setenv("LOG_BACKEND", "zap")
	l := NewLogger()
	_, ok := l.(*ZapLogger)
	assert.True(t, ok)

	wrapped := NewZapLoggerFrom(zap.NewNop())
	wrapped.WithComponent("writer").WithFields(map[string]interface{}{"record_id": "r1"}).Info("ok")
	assert.Equal(t, wrapped, wrapped.WithContext(context.Background()))
}

func TestParseZapLevel(t *testing.T) {
	assert.Equal(t, "debug", parseZapLevel("DEBUG").String())
	assert.Equal(t, "warn", parseZapLevel("warning").String())
	assert.Equal(t, "info", parseZapLevel("").String())
}
