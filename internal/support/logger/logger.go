// Package logger provides the leveled logging utility used across the
// ordersink pipeline. It wraps the standard `log` package and filters
// messages against a globally configured level.
package logger

import (
	"fmt"
	"log"
	"strings"
)

// LogLevel represents the logging verbosity. Smaller values are more verbose.
type LogLevel int

const (
	// LevelDebug enables detailed diagnostic output.
	LevelDebug LogLevel = iota
	// LevelInfo enables general informational messages.
	LevelInfo
	// LevelWarn enables warnings about recoverable or suspicious conditions.
	LevelWarn
	// LevelError enables error messages.
	LevelError
	// LevelFatal enables fatal messages that terminate the process.
	LevelFatal
)

// logLevel is the currently active global level. Messages below it are dropped.
var logLevel = LevelInfo

// SetLogLevel sets the global log level from its string form.
// Valid values are "DEBUG", "INFO", "WARN", "ERROR" and "FATAL"
// (case-insensitive). Unknown values fall back to INFO with a notice
// printed to standard output.
func SetLogLevel(level string) {
	switch strings.ToUpper(level) {
	case "INFO":
		logLevel = LevelInfo
	case "WARN":
		logLevel = LevelWarn
	case "ERROR":
		logLevel = LevelError
	case "FATAL":
		logLevel = LevelFatal
	case "DEBUG":
		logLevel = LevelDebug
	default:
		fmt.Printf("Unknown log level '%s' specified. Defaulting to INFO level.\n", level)
		logLevel = LevelInfo
	}
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if logLevel <= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if logLevel <= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if logLevel <= LevelWarn {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if logLevel <= LevelError {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message, then terminates
// the process via os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
