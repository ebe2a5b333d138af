package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tg-sanction/internal/logger"

	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// GormLogger routes gorm's statement logging into the service logger.
type GormLogger struct {
	LogLevel                  glogger.LogLevel
	SlowThreshold             time.Duration
	SkipCallerLookup          bool
	IgnoreRecordNotFoundError bool
}

// NewGormLogger maps the service log level onto gorm's levels.
func NewGormLogger(level string) glogger.Interface {
	var logLevel glogger.LogLevel

	switch logger.ParseLevel(level) {
	case logger.LevelDebug:
		logLevel = glogger.Info
	case logger.LevelWarning, logger.LevelError:
		logLevel = glogger.Warn
	case logger.LevelFatal:
		logLevel = glogger.Error
	default:
		// statements are only interesting when debugging
		logLevel = glogger.Warn
	}

	return &GormLogger{
		LogLevel:                  logLevel,
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
	}
}

func (l *GormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= glogger.Info {
		logger.Infof(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= glogger.Warn {
		logger.Warningf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= glogger.Error {
		logger.Errorf(msg, data...)
	}
}

// Trace logs failed and slow statements, and every statement at Info level.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	ms := float64(elapsed.Nanoseconds()) / 1e6
	sql, rows := fc()

	var source string
	if !l.SkipCallerLookup {
		source = " [" + utils.FileWithLineNum() + "]"
	}

	switch {
	case err != nil && l.LogLevel >= glogger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		logger.Errorf("[%.3fms]%s %s; error=%v", ms, source, sql, err)
	case elapsed > l.SlowThreshold && l.SlowThreshold != 0 && l.LogLevel >= glogger.Warn:
		logger.Warningf("[%.3fms]%s %s; %s, rows=%v", ms, source, sql, fmt.Sprintf("SLOW SQL >= %v", l.SlowThreshold), rows)
	case l.LogLevel == glogger.Info:
		logger.Debugf("[%.3fms]%s %s; rows=%v", ms, source, sql, rows)
	}
}
