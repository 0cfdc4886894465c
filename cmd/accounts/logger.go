package main

import (
	"context"
	"os"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func levelFromString(l string) zapcore.Level {
	switch l {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newZapLogger(level string, dev bool) (*zap.Logger, error) {
	lvl := levelFromString(level)
	if dev {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// zapLogger adapts a sugared zap logger to accounts.Logger
type zapLogger struct {
	log *zap.SugaredLogger
}

var _ accounts.Logger = zapLogger{}

func (z zapLogger) Debug(format string, args ...any) { z.log.Debugf(format, args...) }
func (z zapLogger) Info(format string, args ...any)  { z.log.Infof(format, args...) }
func (z zapLogger) Warn(format string, args ...any)  { z.log.Warnf(format, args...) }
func (z zapLogger) Error(format string, args ...any) { z.log.Errorf(format, args...) }

// activityLogger writes activity events as structured log lines
func activityLogger(log *zap.Logger) accounts.ActivitySink {
	return accounts.ActivitySinkFunc(func(_ context.Context, event accounts.ActivityEvent) error {
		record := activitymap.Normalize(event)
		fields := []zap.Field{
			zap.String("verb", record.Verb),
			zap.String("actor_id", record.ActorID),
			zap.String("object_type", record.ObjectType),
			zap.String("channel", record.Channel),
			zap.Time("occurred_at", record.OccurredAt),
		}
		if record.ObjectID != "" {
			fields = append(fields, zap.String("object_id", record.ObjectID))
		}
		if len(record.Metadata) > 0 {
			fields = append(fields, zap.Any("metadata", record.Metadata))
		}

		switch event.Kind {
		case accounts.ActivityKindError:
			log.Error("activity", fields...)
		case accounts.ActivityKindFailure:
			log.Warn("activity", fields...)
		default:
			log.Info("activity", fields...)
		}
		return nil
	})
}
