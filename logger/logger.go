package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log *zap.Logger

func init() {
	log = zap.New(zapcore.NewCore(encoder(), zapcore.AddSync(os.Stdout), zapcore.DebugLevel))
}

func encoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// Init switches the logger to console plus a daily file under dir.
func Init(dir string) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	fileName := filepath.Join(dir, fmt.Sprintf("app_%s.log", time.Now().Format("02-01-2006")))
	logFile, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(encoder(), zapcore.AddSync(os.Stdout), zapcore.DebugLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(logFile), zapcore.InfoLevel),
	)
	log = zap.New(core)
	log.Info("Logger initialized", zap.String("file", fileName))
	return nil
}

// Use replaces the underlying zap logger. Tests pass zap.NewNop().
func Use(l *zap.Logger) {
	log = l
}

// Zap exposes the underlying logger for structured fields.
func Zap() *zap.Logger {
	return log
}

func Sync() {
	_ = log.Sync()
}

func Success(message string, fields ...zap.Field) {
	log.Info("✅ "+message, fields...)
}

func Error(message string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	log.Error("❌ "+message, fields...)
}

func Warning(message string, fields ...zap.Field) {
	log.Warn("⚠️ "+message, fields...)
}

func Debug(message string, fields ...zap.Field) {
	log.Debug("🐛 "+message, fields...)
}

func Info(message string, fields ...zap.Field) {
	log.Info("ℹ️ "+message, fields...)
}

func Fatal(message string, err error) {
	log.Fatal("💥 "+message, zap.Error(err))
}

func Printf(format string, args ...interface{}) {
	log.Info(fmt.Sprintf("📝 "+format, args...))
}
