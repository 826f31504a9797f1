package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig tunes the GORM logger
type GormConfig struct {
	Level          gormlogger.LogLevel
	SlowThreshold  time.Duration // 0 disables slow query warnings
	LogSQL         bool          // include statement text in entries
	IgnoreNotFound bool          // do not report gorm.ErrRecordNotFound
}

// GormLogger implements GORM's logger interface on top of zap. Entries carry
// the request ID and operation name from the query context.
type GormLogger struct {
	logger *zap.Logger
	cfg    GormConfig
}

// NewGormLogger creates a GORM logger
func NewGormLogger(zapLogger *zap.Logger, cfg GormConfig) *GormLogger {
	return &GormLogger{
		logger: zapLogger.Named("gorm").WithOptions(zap.AddCallerSkip(3)),
		cfg:    cfg,
	}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Info {
		l.with(ctx).Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Warn {
		l.with(ctx).Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.cfg.Level >= gormlogger.Error {
		l.with(ctx).Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
	}
	if l.cfg.LogSQL {
		fields = append(fields, zap.String("sql", sql))
	}

	switch {
	case err != nil && l.cfg.Level >= gormlogger.Error:
		if l.cfg.IgnoreNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		l.with(ctx).Error("SQL error", append(fields, zap.Error(err))...)
	case l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold && l.cfg.Level >= gormlogger.Warn:
		l.with(ctx).Warn("slow SQL", append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))...)
	case l.cfg.Level >= gormlogger.Info:
		l.with(ctx).Debug("SQL", fields...)
	}
}

func (l *GormLogger) with(ctx context.Context) *zap.Logger {
	out := l.logger
	if id := GetRequestID(ctx); id != "" {
		out = out.With(zap.String("request_id", id))
	}
	if op := GetOperation(ctx); op != "" {
		out = out.With(zap.String("operation", op))
	}
	return out
}

// MapGormLogLevel maps a log level name to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
