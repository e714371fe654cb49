package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	rxcontext "github.com/vnykmshr/rxflow/pkg/common/context"
)

// Field names shared by every line.
const (
	FieldElapsed   = "elapsed_ms"
	FieldThread    = "thread"
	FieldComponent = "component"
)

// Logger wraps zerolog.Logger with a start instant so every line carries the
// milliseconds elapsed since the logger was created. Lines name the caller
// context unless the logger was bound with WithContext.
type Logger struct {
	logger zerolog.Logger
	start  time.Time
	thread string
	closer io.Closer
}

// New creates a logger from configuration. File outputs are rotated with
// lumberjack; call Close to release them.
func New(cfg Config) (*Logger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		w      io.Writer
		closer io.Closer
	)
	switch strings.ToLower(cfg.Output) {
	case OutputStdout:
		w = os.Stdout
	case OutputStderr:
		w = os.Stderr
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		w, closer = lj, lj
	}

	l := NewWithWriter(w, cfg)
	l.closer = closer
	return l, nil
}

// NewWithWriter creates a logger writing to w. Invalid levels fall back to
// info. Console colors are used only when w is a terminal.
func NewWithWriter(w io.Writer, cfg Config) *Logger {
	cfg.ApplyDefaults()
	if !isTerminal(w) {
		cfg.NoColor = true
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	start := time.Now()
	var zl zerolog.Logger
	if strings.ToLower(cfg.Format) == FormatJSON {
		zl = zerolog.New(w).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(newConsoleWriter(w, cfg.NoColor))
	}

	return &Logger{
		logger: zl.Level(level).Hook(elapsedHook{start: start}),
		start:  start,
		thread: rxcontext.CallerName,
	}
}

// NewDefault creates a console logger on stdout.
func NewDefault() *Logger {
	return NewWithWriter(os.Stdout, Config{})
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop(), start: time.Now(), thread: rxcontext.CallerName}
}

// Event writes one sink line "<elapsed-ms> <thread-name> <message>". The
// thread name is the execution context carried by ctx.
func (l *Logger) Event(ctx context.Context, msg string) {
	l.logger.Info().Str(FieldThread, rxcontext.ExecutionContext(ctx)).Msg(msg)
}

// Eventf is Event with fmt.Sprintf formatting.
func (l *Logger) Eventf(ctx context.Context, format string, args ...interface{}) {
	l.Event(ctx, fmt.Sprintf(format, args...))
}

// WithContext returns a logger whose lines name the execution context carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	nl := l.with(l.logger)
	nl.thread = rxcontext.ExecutionContext(ctx)
	return nl
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.with(l.logger.With().Str(FieldComponent, name).Logger())
}

// With returns a logger carrying one extra field on every line.
func (l *Logger) With(key string, value interface{}) *Logger {
	return l.with(l.logger.With().Interface(key, value).Logger())
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return l.with(l.logger.With().Err(err).Logger())
}

// Elapsed returns the time since the logger was created.
func (l *Logger) Elapsed() time.Duration {
	return time.Since(l.start)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	event := l.logger.Debug().Str(FieldThread, l.thread)
	addFields(event, fields...)
	event.Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	event := l.logger.Info().Str(FieldThread, l.thread)
	addFields(event, fields...)
	event.Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	event := l.logger.Warn().Str(FieldThread, l.thread)
	addFields(event, fields...)
	event.Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	event := l.logger.Error().Str(FieldThread, l.thread)
	addFields(event, fields...)
	event.Msg(msg)
}

// Close releases a rotated file output, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) with(zl zerolog.Logger) *Logger {
	return &Logger{logger: zl, start: l.start, thread: l.thread, closer: l.closer}
}

// elapsedHook stamps every event with milliseconds since logger creation.
type elapsedHook struct {
	start time.Time
}

func (h elapsedHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Int64(FieldElapsed, time.Since(h.start).Milliseconds())
}

// newConsoleWriter renders "<elapsed> <thread> <message> key=value...".
func newConsoleWriter(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           w,
		NoColor:       noColor,
		PartsOrder:    []string{FieldElapsed, FieldThread, zerolog.MessageFieldName},
		FieldsExclude: []string{FieldElapsed, FieldThread},
		FormatFieldValue: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func addFields(event *zerolog.Event, fields ...map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
}
