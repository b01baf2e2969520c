package util

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mcsync/internal/logging"
)

// The client store holds everything mcsync owns on disk: the synced game
// data, cycle logs, and the instance lock.

func DataDir(storeDir string) string {
	return filepath.Join(storeDir, "mcdata")
}

func LogDir(storeDir string) string {
	return filepath.Join(storeDir, "logs")
}

func LockPath(storeDir string) string {
	return filepath.Join(storeDir, "mcsync.lock")
}

func CycleLogPath(storeDir string, now time.Time) string {
	return filepath.Join(LogDir(storeDir), now.Format("2006-01-02")+".log")
}

func SetupDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func SetupLogging(logPath string, consoleLevel slog.Level) (*slog.Logger, *os.File, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logger, logFile, err := logging.NewLogger(logPath, consoleLevel)
	if err != nil {
		return nil, nil, err
	}

	return logger, logFile, nil
}
