package services

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"sslingest/internal/config"
	"sslingest/internal/dao"
	"sslingest/internal/notification"
	"sslingest/pkg/logger"
)

// HostsFile is the YAML batch input format. Plain text files with one
// host per line are also accepted.
type HostsFile struct {
	Description string   `yaml:"description,omitempty"`
	Hosts       []string `yaml:"hosts"`
}

// BatchReport summarizes a batch ingest run
type BatchReport struct {
	RunID       string
	Description string
	Processed   int
	Failed      int
	FailedHosts map[string]string
	LogPath     string
}

type BatchServiceMethods interface {
	IngestBatch(ctx context.Context, hostsPath string) (*BatchReport, error)
}

type batchService struct {
	ingest   IngestServiceMethods
	cfg      *config.IngestConfig
	runsDir  string
	notifier *notification.ReportClient
	logger   *logger.Logger
}

func NewBatchService(rawDao dao.RawDAO, client APIClient, cfg *config.IngestConfig,
	runsDir string, notifier *notification.ReportClient) BatchServiceMethods {
	return &batchService{
		ingest:   NewIngestService(rawDao, client, cfg),
		cfg:      cfg,
		runsDir:  runsDir,
		notifier: notifier,
		logger:   logger.NewLogger(logrus.InfoLevel),
	}
}

// IngestBatch analyzes every host in the given file, continuing past
// per-host failures with a courtesy delay between calls.
func (s *batchService) IngestBatch(ctx context.Context, hostsPath string) (*BatchReport, error) {
	hosts, description, err := LoadHostsFile(hostsPath)
	if err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf("no hosts found in %s", hostsPath)
	}

	runID := uuid.New().String()
	runDir := filepath.Join(s.runsDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	runLogger, err := logger.NewRunLogger(runID, runDir, logrus.InfoLevel)
	if err != nil {
		return nil, err
	}
	defer runLogger.Close()

	report := &BatchReport{
		RunID:       runID,
		Description: description,
		FailedHosts: make(map[string]string),
		LogPath:     runLogger.LogFilePath(),
	}

	for _, host := range hosts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		runLogger.WithFields(logger.Fields{"run_id": runID, "host": host}).Info("Analyzing host")

		if _, err := s.ingest.IngestAnalyze(ctx, host, AnalyzeRunOptions{FromCache: true}); err != nil {
			runLogger.LogHostFailure(host, err)
			report.Failed++
			report.FailedHosts[host] = err.Error()
		}
		report.Processed++

		if err := sleepCtx(ctx, s.cfg.WaitBetween); err != nil {
			return report, err
		}
	}

	runLogger.LogRunSummary(report.Processed, report.Failed)
	s.notifyBatch(report)
	return report, nil
}

func (s *batchService) notifyBatch(report *BatchReport) {
	if s.notifier == nil {
		return
	}

	outcome := notification.OutcomeSuccess
	if report.Failed > 0 {
		outcome = notification.OutcomePartial
	}
	if report.Failed == report.Processed {
		outcome = notification.OutcomeFailure
	}

	msg := notification.Message{
		Title:       "SSL Labs batch ingest",
		Description: report.Description,
		Outcome:     outcome,
		Fields: map[string]string{
			"run_id":    report.RunID,
			"processed": fmt.Sprintf("%d", report.Processed),
			"failed":    fmt.Sprintf("%d", report.Failed),
		},
		Timestamp: time.Now(),
	}

	if err := s.notifier.Send(msg); err != nil {
		s.logger.WithError(err).Warn("Failed to send batch report")
	}
}

// LoadHostsFile reads a batch input file. YAML files carry an optional
// description alongside the host list; anything else is treated as one
// host per line, blank lines skipped.
func LoadHostsFile(path string) ([]string, string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		var hf HostsFile
		if err := yaml.Unmarshal(data, &hf); err != nil {
			return nil, "", fmt.Errorf("failed to parse hosts file %s: %w", path, err)
		}
		hosts := make([]string, 0, len(hf.Hosts))
		for _, h := range hf.Hosts {
			if h = strings.TrimSpace(h); h != "" {
				hosts = append(hosts, h)
			}
		}
		return hosts, hf.Description, nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()

		var hosts []string
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				hosts = append(hosts, line)
			}
		}
		return hosts, "", scanner.Err()
	}
}
