package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"tg-sanction/internal/config"
)

// Level orders log severities; messages below the configured level are dropped.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

var levelNames = map[Level]string{
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
	LevelFatal:   "FATAL",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// ParseLevel maps a config level name to a Level, defaulting to INFO.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARNING", "WARN":
		return LevelWarning
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(LevelInfo))
}

// SetLevel changes the minimum level that is written.
func SetLevel(l Level) {
	currentLevel.Store(int32(l))
}

// GetLevel returns the minimum level that is written.
func GetLevel() Level {
	return Level(currentLevel.Load())
}

// createLogFilePath generates a log file path with the current date
func createLogFilePath(logDir, prefix string) string {
	currentDate := time.Now().Format("2006-01-02")
	return filepath.Join(logDir, fmt.Sprintf("%s-%s.log", prefix, currentDate))
}

// createRotatingLogger creates a lumberjack rotating logger
func createRotatingLogger(logFilePath string, cfg *config.Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    cfg.Logger.Rotation.MaxSize,
		MaxBackups: cfg.Logger.Rotation.MaxBackups,
		MaxAge:     cfg.Logger.Rotation.MaxAge,
		Compress:   cfg.Logger.Rotation.Compress,
	}
}

// Setup configures logging to output to both stdout and a rotating log file
func Setup(cfg *config.Config) error {
	logDir := cfg.Logger.Directory

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath := createLogFilePath(logDir, "tg-sanction")
	rotatingLogger := createRotatingLogger(logFilePath, cfg)

	log.SetOutput(io.MultiWriter(os.Stdout, rotatingLogger))
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	SetLevel(ParseLevel(cfg.Logger.Level))

	log.Printf("Logging initialized: writing to %s (level %s)", logFilePath, GetLevel())
	return nil
}

// output skips the logger's own frames so Lshortfile points at the caller.
func output(l Level, msg string) {
	if l < GetLevel() {
		return
	}
	_ = log.Output(3, "["+l.String()+"] "+msg)
}

func Debugf(format string, args ...interface{})   { output(LevelDebug, fmt.Sprintf(format, args...)) }
func Infof(format string, args ...interface{})    { output(LevelInfo, fmt.Sprintf(format, args...)) }
func Warningf(format string, args ...interface{}) { output(LevelWarning, fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...interface{})   { output(LevelError, fmt.Sprintf(format, args...)) }

func Info(msg string)    { output(LevelInfo, msg) }
func Warning(msg string) { output(LevelWarning, msg) }
func Error(msg string)   { output(LevelError, msg) }

// Fatalf logs at FATAL and exits the process.
func Fatalf(format string, args ...interface{}) {
	output(LevelFatal, fmt.Sprintf(format, args...))
	os.Exit(1)
}
