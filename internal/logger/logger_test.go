package logger

import (
	"testing"

	"github.com/Rafafndz7/registro-bicis-sub000/internal/config"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetPgxTraceLogLevel(t *testing.T) {
	cases := map[zerolog.Level]tracelog.LogLevel{
		zerolog.TraceLevel: tracelog.LogLevelTrace,
		zerolog.DebugLevel: tracelog.LogLevelDebug,
		zerolog.InfoLevel:  tracelog.LogLevelInfo,
		zerolog.WarnLevel:  tracelog.LogLevelWarn,
		zerolog.ErrorLevel: tracelog.LogLevelError,
		zerolog.Disabled:   tracelog.LogLevelNone,
	}
	for in, want := range cases {
		assert.Equal(t, int(want), GetPgxTraceLogLevel(in), in.String())
	}
}

func TestNewLoggerWithService_Level(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	cfg.Logging.Level = "warn"

	l := NewLoggerWithService(cfg, NewLoggerService(cfg))
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())
}

func TestLoggerService_NoLicense(t *testing.T) {
	cfg := config.DefaultObservabilityConfig()
	svc := NewLoggerService(cfg)

	assert.Nil(t, svc.GetApplication())
	svc.Shutdown()

	var nilSvc *LoggerService
	assert.Nil(t, nilSvc.GetApplication())
}

func TestWithTraceContext_NilTransaction(t *testing.T) {
	l := zerolog.Nop()
	out := WithTraceContext(l, nil)
	assert.Equal(t, l.GetLevel(), out.GetLevel())
}
