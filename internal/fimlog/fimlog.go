// Package fimlog wraps a zap logger behind the five-level facade the
// engine consumes, mirroring the source's merror/mwarn/minfo/mdebug1/
// mdebug2 macros.
package fimlog

import "go.uber.org/zap"

// Logger adapts a *zap.Logger to fim.Logger. Debug1 and Debug2 both map
// to zap's single Debug level with a "verbosity" field distinguishing
// them, since zap does not model two debug tiers natively — recorded as
// an Open Question decision in DESIGN.md.
type Logger struct {
	z *zap.Logger
}

// New wraps z. A nil z is replaced with zap.NewNop().
func New(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// NewProduction builds a Logger backed by zap's production JSON config.
func NewProduction() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

// NewDevelopment builds a Logger backed by zap's human-readable
// development config, suitable for the CLI's default output.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

func fields(kv []any) []zap.Field {
	fs := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fs = append(fs, zap.Any(key, kv[i+1]))
	}
	return fs
}

func (l *Logger) Error(msg string, kv ...any) { l.z.Error(msg, fields(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)   { l.z.Warn(msg, fields(kv)...) }
func (l *Logger) Info(msg string, kv ...any)   { l.z.Info(msg, fields(kv)...) }

func (l *Logger) Debug1(msg string, kv ...any) {
	l.z.Debug(msg, append(fields(kv), zap.Int("verbosity", 1))...)
}

func (l *Logger) Debug2(msg string, kv ...any) {
	l.z.Debug(msg, append(fields(kv), zap.Int("verbosity", 2))...)
}

// Sync flushes any buffered log entries, mirroring the teacher's own
// shutdown-time flush discipline.
func (l *Logger) Sync() error { return l.z.Sync() }
