package observe

import (
	"context"
	"io"
	"os"
	"slices"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a *zap.Logger to the Logger interface.
type zapLogger struct {
	z *zap.Logger
}

// NewLogger creates a JSON logger writing to stderr at the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithOptions(level, "json", os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return NewLoggerWithOptions(level, "json", w)
}

// NewLoggerWithOptions creates a logger with an explicit encoder format
// ("json" or "console") and destination.
func NewLoggerWithOptions(level, format string, w io.Writer) Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "msg"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)
	return &zapLogger{z: zap.New(core)}
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &zapLogger{z: z}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &zapLogger{z: zap.NewNop()}
}

// WithOp returns a logger with operation context attached.
func (l *zapLogger) WithOp(meta OpMeta) Logger {
	fields := []zap.Field{zap.String("op.id", meta.OpID())}
	if meta.Component != "" {
		fields = append(fields, zap.String("op.component", meta.Component))
	}
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.InfoLevel, msg, fields)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.WarnLevel, msg, fields)
}

func (l *zapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.ErrorLevel, msg, fields)
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, zapcore.DebugLevel, msg, fields)
}

// Sync flushes buffered entries.
func (l *zapLogger) Sync() error {
	return l.z.Sync()
}

func (l *zapLogger) log(ctx context.Context, level zapcore.Level, msg string, fields []Field) {
	ce := l.z.Check(level, msg)
	if ce == nil {
		return
	}

	zf := make([]zap.Field, 0, len(fields)+2)
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			zf = append(zf,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
	}
	for _, f := range fields {
		if isRedactedField(f.Key) {
			zf = append(zf, zap.String(f.Key, "[REDACTED]"))
			continue
		}
		if err, ok := f.Value.(error); ok {
			zf = append(zf, zap.String(f.Key, err.Error()))
			continue
		}
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	ce.Write(zf...)
}

func isRedactedField(key string) bool {
	return slices.Contains(RedactedFields, key)
}
