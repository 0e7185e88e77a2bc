package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// slowQueryThreshold marks queries worth a warning
const slowQueryThreshold = 200 * time.Millisecond

// gormAdapter bridges GORM's logger interface onto zap. Record-not-found
// is a domain outcome here, not an error, so it is never logged.
type gormAdapter struct {
	logger *zap.Logger
	level  gormlogger.LogLevel
}

// NewGormLogger returns a GORM logger writing through the given zap logger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel) gormlogger.Interface {
	return &gormAdapter{
		logger: zapLogger.Named("gorm"),
		level:  level,
	}
}

func (a *gormAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *a
	clone.level = level
	return &clone
}

func (a *gormAdapter) Info(ctx context.Context, msg string, data ...any) {
	if a.level >= gormlogger.Info {
		a.logger.Sugar().Infof(msg, data...)
	}
}

func (a *gormAdapter) Warn(ctx context.Context, msg string, data ...any) {
	if a.level >= gormlogger.Warn {
		a.logger.Sugar().Warnf(msg, data...)
	}
}

func (a *gormAdapter) Error(ctx context.Context, msg string, data ...any) {
	if a.level >= gormlogger.Error {
		a.logger.Sugar().Errorf(msg, data...)
	}
}

func (a *gormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if a.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}

	switch {
	case err != nil && a.level >= gormlogger.Error && !errors.Is(err, gormlogger.ErrRecordNotFound):
		a.logger.Error("SQL error", append(fields, zap.Error(err))...)
	case elapsed > slowQueryThreshold && a.level >= gormlogger.Warn:
		a.logger.Warn("Slow SQL", fields...)
	case a.level >= gormlogger.Info:
		a.logger.Debug("SQL", fields...)
	}
}

// MapGormLogLevel maps the app log level onto GORM's levels
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
