// Package logger is the process-wide leveled logger.
//
// It is deliberately small: printf-style calls, four levels, one line per
// message on stdout. The level comes from configuration at startup via
// SetLevel and defaults to INFO.
package logger

import (
	"fmt"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var (
	currentLevel atomic.Int32
	out          = stdlog.New(os.Stdout, "", 0)
)

func init() {
	currentLevel.Store(int32(LevelInfo))
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// SetLevel sets the minimum level that gets logged. Unknown names leave the
// level unchanged.
func SetLevel(level string) {
	for lvl, name := range levelNames {
		if name == strings.ToUpper(level) {
			currentLevel.Store(int32(lvl))
			return
		}
	}
}

func emit(level Level, format string, v ...any) {
	if int32(level) < currentLevel.Load() {
		return
	}
	out.Printf("[%s] [%s] %s",
		time.Now().Format("2006-01-02 15:04:05"), level, fmt.Sprintf(format, v...))
}

func Debug(format string, v ...any) {
	emit(LevelDebug, format, v...)
}

func Info(format string, v ...any) {
	emit(LevelInfo, format, v...)
}

func Warn(format string, v ...any) {
	emit(LevelWarn, format, v...)
}

func Error(format string, v ...any) {
	emit(LevelError, format, v...)
}

// Fatal logs at ERROR level and exits the process.
func Fatal(format string, v ...any) {
	emit(LevelError, format, v...)
	os.Exit(1)
}
