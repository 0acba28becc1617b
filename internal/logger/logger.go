package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a category-tagged logger. Every line carries a category
// (DATABASE, KAFKA, BOOKING, ...) so log streams can be filtered by subsystem.
type Logger struct {
	zl       *zap.Logger
	colorize bool
}

type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoder with colored categories
	ServiceName string
}

var categoryColors = map[string]*color.Color{
	"DATABASE": color.New(color.FgCyan),
	"KAFKA":    color.New(color.FgMagenta),
	"PAYMENT":  color.New(color.FgGreen),
	"BOOKING":  color.New(color.FgBlue),
	"SECURITY": color.New(color.FgRed, color.Bold),
	"API":      color.New(color.FgWhite),
	"PROCESS":  color.New(color.FgYellow),
}

// NewLogger returns a development logger at debug level
func NewLogger() *Logger {
	return New(Config{Level: "debug", Development: true, ServiceName: "tour-booking"})
}

func New(cfg Config) *Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Development {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), parseLevel(cfg.Level))
	zl := zap.New(core, zap.AddStacktrace(zapcore.FatalLevel))
	if cfg.ServiceName != "" {
		zl = zl.With(zap.String("service", cfg.ServiceName))
	}

	return &Logger{zl: zl, colorize: cfg.Development && !color.NoColor}
}

// NewNop returns a logger that discards everything; used by tests
func NewNop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) tag(category string) string {
	if !l.colorize {
		return "[" + category + "]"
	}
	c, ok := categoryColors[category]
	if !ok {
		c = categoryColors["PROCESS"]
	}
	return c.Sprintf("[%s]", category)
}

func (l *Logger) line(category, msg string) (string, []zap.Field) {
	if l.colorize {
		return l.tag(category) + " " + msg, nil
	}
	return msg, []zap.Field{zap.String("category", category)}
}

func (l *Logger) Debug(category, msg string) {
	m, f := l.line(category, msg)
	l.zl.Debug(m, f...)
}

func (l *Logger) Info(category, msg string) {
	m, f := l.line(category, msg)
	l.zl.Info(m, f...)
}

func (l *Logger) Warn(category, msg string) {
	m, f := l.line(category, msg)
	l.zl.Warn(m, f...)
}

func (l *Logger) Error(category, msg string) {
	m, f := l.line(category, msg)
	l.zl.Error(m, f...)
}

func (l *Logger) Fatal(category, msg string) {
	m, f := l.line(category, msg)
	l.zl.Fatal(m, f...)
}

// LogProcess records lifecycle steps (startup, shutdown, wiring)
func (l *Logger) LogProcess(step, msg string) {
	m, f := l.line("PROCESS", fmt.Sprintf("%s: %s", step, msg))
	l.zl.Info(m, f...)
}

// LogDatabase records a store operation; op is the SQL verb or a phase name
func (l *Logger) LogDatabase(op, db, msg string) {
	m, f := l.line("DATABASE", msg)
	l.zl.Debug(m, append(f, zap.String("op", op), zap.String("db", db))...)
}

func (l *Logger) LogKafka(op, topic, msg string) {
	m, f := l.line("KAFKA", msg)
	l.zl.Info(m, append(f, zap.String("op", op), zap.String("topic", topic))...)
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	m, f := l.line("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
	l.zl.Info(m, f...)
}

func (l *Logger) LogSecurity(event, msg string) {
	m, f := l.line("SECURITY", msg)
	l.zl.Warn(m, append(f, zap.String("event", event))...)
}

func (l *Logger) LogPayment(op, id, msg string) {
	m, f := l.line("PAYMENT", msg)
	l.zl.Info(m, append(f, zap.String("op", op), zap.String("ref", id))...)
}

func (l *Logger) LogBooking(op string, bookingID int64, msg string) {
	m, f := l.line("BOOKING", msg)
	l.zl.Info(m, append(f, zap.String("op", op), zap.Int64("booking_id", bookingID))...)
}

// Close flushes buffered entries
func (l *Logger) Close() {
	_ = l.zl.Sync()
}
