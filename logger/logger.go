package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	MaxLogDirSize = 10 * 1024 * 1024 // 10MB
	LogFileName   = "uartbl.log"
)

var (
	log         = newLog()
	logFile     *os.File
	logDir      string
	mu          sync.Mutex
	initialized bool
	stopCheck   chan struct{}
)

func newLog() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	l.Level = logrus.InfoLevel
	return l
}

// Init sends logs to a file in dir, rotated when the directory outgrows
// MaxLogDirSize
func Init(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return nil
	}

	logDir = dir

	// Create log directory if it doesn't exist
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file
	logPath := filepath.Join(logDir, LogFileName)
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = file
	log.SetOutput(file)
	log.SetLevel(logrus.DebugLevel)

	initialized = true
	stopCheck = make(chan struct{})

	// Check log directory size on startup
	go checkAndRotate()

	// Start periodic size check
	go periodicSizeCheck(stopCheck)

	log.WithField("dir", dir).Info("Logger initialized")
	return nil
}

// SetVerbose sends debug logs to w when no log file is open
func SetVerbose(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return
	}
	log.SetOutput(w)
	log.SetLevel(logrus.DebugLevel)
}

// Close closes the log file and discards further logs
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if stopCheck != nil {
		close(stopCheck)
		stopCheck = nil
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.InfoLevel)
	initialized = false
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Protocol logs protocol-level traffic
func Protocol(direction, event string, data []byte) {
	if !log.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	entry := log.WithFields(logrus.Fields{
		"dir":      direction,
		"data_len": len(data),
	})
	if len(data) > 100 {
		entry.Debugf("[PROTO] %s first_100=%x...", event, data[:100])
	} else {
		entry.Debugf("[PROTO] %s data=%x", event, data)
	}
}

// checkAndRotate checks directory size and rotates if necessary
func checkAndRotate() {
	mu.Lock()
	defer mu.Unlock()

	if !initialized {
		return
	}

	size, err := getDirSize(logDir)
	if err != nil {
		log.Errorf("[LOGGER] Error checking directory size: %v", err)
		return
	}

	if size > MaxLogDirSize {
		rotateOldLogs()
	}
}

// getDirSize calculates total size of files in directory
func getDirSize(dir string) (int64, error) {
	var size int64
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		size += info.Size()
	}
	return size, nil
}

// rotateOldLogs removes old log files when directory exceeds size limit
func rotateOldLogs() {
	currentLogPath := filepath.Join(logDir, LogFileName)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		log.Errorf("[LOGGER] Error reading log directory: %v", err)
		return
	}

	// Remove old archived logs first (keep current log)
	for _, entry := range entries {
		if entry.Name() == LogFileName || entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(logDir, entry.Name())); err != nil {
			log.Errorf("[LOGGER] Error removing old log %s: %v", entry.Name(), err)
		} else {
			log.Infof("[LOGGER] Removed old log: %s", entry.Name())
		}
	}

	// Check size again
	size, _ := getDirSize(logDir)
	if size <= MaxLogDirSize {
		return
	}

	// Current log is still too big, truncate it
	if logFile != nil {
		logFile.Close()
	}
	file, err := os.OpenFile(currentLogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		logFile = nil
		return
	}
	logFile = file
	log.SetOutput(file)
	log.Infof("[LOGGER] Log truncated at %s", time.Now().Format(time.RFC3339))
}

// periodicSizeCheck checks log directory size every hour
func periodicSizeCheck(stop <-chan struct{}) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			checkAndRotate()
		}
	}
}
