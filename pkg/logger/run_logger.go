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

// RunLogger mirrors console output into per-run log files so batch
// ingests leave an audit trail next to the data they produced.
type RunLogger struct {
	*Logger
	runID     string
	runDir    string
	logFile   *os.File
	errorFile *os.File
	mu        sync.Mutex
}

func NewRunLogger(runID, runDir string, level logrus.Level) (*RunLogger, error) {
	baseLogger := NewLogger(level)

	logFile, err := os.OpenFile(filepath.Join(runDir, "ingest.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	errorFile, err := os.OpenFile(filepath.Join(runDir, "error.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to create error log file: %w", err)
	}

	header := fmt.Sprintf("\n=== Ingest Run Started: %s ===\n", time.Now().Format(time.RFC3339))
	header += fmt.Sprintf("Run ID: %s\n", runID)
	header += "==========================================\n\n"
	logFile.WriteString(header)

	baseLogger.Logger.SetOutput(io.MultiWriter(os.Stdout, logFile))

	return &RunLogger{
		Logger:    baseLogger,
		runID:     runID,
		runDir:    runDir,
		logFile:   logFile,
		errorFile: errorFile,
	}, nil
}

func (rl *RunLogger) LogHostFailure(host string, err error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.WithFields(Fields{
		"run_id": rl.runID,
		"host":   host,
	}).WithError(err).Error("Host ingest failed")

	msg := fmt.Sprintf("[%s] [%s] host %s failed: %v\n",
		time.Now().Format(time.RFC3339), rl.runID, host, err)
	rl.errorFile.WriteString(msg)
}

func (rl *RunLogger) LogRunSummary(processed, failed int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	summary := fmt.Sprintf("\n=== Ingest Run Finished: %s ===\n", time.Now().Format(time.RFC3339))
	summary += fmt.Sprintf("Run ID: %s\n", rl.runID)
	summary += fmt.Sprintf("Hosts processed: %d, failed: %d\n", processed, failed)
	summary += "==========================================\n\n"
	rl.logFile.WriteString(summary)
	if failed > 0 {
		rl.errorFile.WriteString(summary)
	}

	rl.WithFields(Fields{
		"run_id":    rl.runID,
		"processed": processed,
		"failed":    failed,
	}).Info("Ingest run finished")
}

func (rl *RunLogger) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	var errs []error

	if rl.logFile != nil {
		if err := rl.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
		}
	}
	if rl.errorFile != nil {
		if err := rl.errorFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close error file: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing run logger: %v", errs)
	}
	return nil
}

func (rl *RunLogger) LogFilePath() string {
	return filepath.Join(rl.runDir, "ingest.log")
}
