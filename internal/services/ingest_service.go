package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"sslingest/internal/config"
	"sslingest/internal/dao"
	"sslingest/internal/models"
	"sslingest/internal/notification"
	"sslingest/internal/ssllabs"
	"sslingest/pkg/apierrors"
	"sslingest/pkg/logger"
)

// APIClient is the slice of the SSL Labs client the ingest pipeline needs
type APIClient interface {
	Info(ctx context.Context) (*ssllabs.InfoResult, error)
	Analyze(ctx context.Context, host string, opts ssllabs.AnalyzeOptions) (*ssllabs.AnalyzeResult, error)
	EndpointData(ctx context.Context, host, ip string) (*ssllabs.EndpointResult, error)
}

// AnalyzeRunOptions control a single analyze ingest
type AnalyzeRunOptions struct {
	StartNew  bool
	FromCache bool
	// Wait polls the assessment until it is READY or ERROR and stores
	// only the final response.
	Wait bool
}

// RunReport summarizes one full info -> analyze -> endpoints run
type RunReport struct {
	Host          string
	AnalyzeUUID   string
	Status        string
	EndpointCount int
}

type IngestServiceMethods interface {
	IngestInfo(ctx context.Context) (*models.InfoRaw, error)
	IngestAnalyze(ctx context.Context, host string, opts AnalyzeRunOptions) (*models.AnalyzeRaw, error)
	IngestEndpoint(ctx context.Context, host, ip string) (*models.EndpointRaw, error)
	IngestRun(ctx context.Context, host string) (*RunReport, error)
}

type ingestService struct {
	rawDao   dao.RawDAO
	client   APIClient
	cfg      *config.IngestConfig
	notifier *notification.ReportClient
	logger   *logger.Logger
}

func NewIngestService(rawDao dao.RawDAO, client APIClient, cfg *config.IngestConfig) IngestServiceMethods {
	return &ingestService{
		rawDao: rawDao,
		client: client,
		cfg:    cfg,
		logger: logger.NewLogger(logrus.InfoLevel),
	}
}

// NewIngestServiceWithNotifier additionally posts run reports to Discord
func NewIngestServiceWithNotifier(rawDao dao.RawDAO, client APIClient, cfg *config.IngestConfig,
	notifier *notification.ReportClient) IngestServiceMethods {
	svc := NewIngestService(rawDao, client, cfg).(*ingestService)
	svc.notifier = notifier
	return svc
}

func (s *ingestService) IngestInfo(ctx context.Context) (*models.InfoRaw, error) {
	var result *ssllabs.InfoResult
	err := s.logger.LogFetch("info", func() error {
		var fetchErr error
		result, fetchErr = s.client.Info(ctx)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	doc := &models.InfoRaw{
		UUID:       uuid.New().String(),
		Source:     models.SourceSSLLabs,
		IngestedAt: time.Now().UTC().Unix(),
		Response:   datatypes.JSON(result.Body),
	}
	if err := s.rawDao.SaveInfo(doc); err != nil {
		s.logger.WithError(err).Error("SaveInfo failed")
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		"uuid":   doc.UUID,
		"engine": result.Report.EngineVersion,
	}).Info("Stored info document")
	return doc, nil
}

func (s *ingestService) IngestAnalyze(ctx context.Context, host string, opts AnalyzeRunOptions) (*models.AnalyzeRaw, error) {
	result, err := s.fetchAnalyze(ctx, host, opts)
	if err != nil {
		return nil, err
	}

	doc := &models.AnalyzeRaw{
		UUID:       uuid.New().String(),
		Host:       host,
		StartNew:   opts.StartNew,
		FromCache:  opts.FromCache,
		Status:     result.Report.Status,
		Source:     models.SourceSSLLabs,
		IngestedAt: time.Now().UTC().Unix(),
		Response:   datatypes.JSON(result.Body),
	}
	if err := s.rawDao.SaveAnalyze(doc); err != nil {
		s.logger.WithError(err).Error("SaveAnalyze failed")
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		"uuid":      doc.UUID,
		"host":      host,
		"status":    doc.Status,
		"endpoints": len(result.Report.Endpoints),
	}).Info("Stored analyze document")

	// The endpoints list carries per-endpoint summaries; store each one as
	// its own document, as the raw object from the analyze body.
	for i, ep := range result.Report.Endpoints {
		if i >= len(result.EndpointRaws) {
			break
		}
		summary := &models.EndpointRaw{
			UUID:       uuid.New().String(),
			Host:       host,
			IP:         ep.IPAddress,
			Kind:       models.EndpointKindSummary,
			Source:     models.SourceSSLLabs,
			IngestedAt: time.Now().UTC().Unix(),
			Response:   datatypes.JSON(result.EndpointRaws[i]),
		}
		if err := s.rawDao.SaveEndpoint(summary); err != nil {
			s.logger.WithFields(logger.Fields{"ip": ep.IPAddress}).WithError(err).Error("SaveEndpoint failed")
			return nil, err
		}
	}

	return doc, nil
}

// fetchAnalyze performs the analyze call, polling until the assessment is
// terminal when opts.Wait is set. startNew is only sent on the first call
// so the poll loop does not keep restarting the scan.
func (s *ingestService) fetchAnalyze(ctx context.Context, host string, opts AnalyzeRunOptions) (*ssllabs.AnalyzeResult, error) {
	result, err := s.client.Analyze(ctx, host, ssllabs.AnalyzeOptions{
		StartNew:  opts.StartNew,
		FromCache: opts.FromCache,
	})
	if err != nil || !opts.Wait {
		return result, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	for result.Report.Status != ssllabs.StatusReady && result.Report.Status != ssllabs.StatusError {
		s.logger.WithFields(logger.Fields{
			"host":   host,
			"status": result.Report.Status,
		}).Info("Assessment in progress, polling")

		if err := sleepCtx(waitCtx, s.cfg.PollInterval); err != nil {
			return nil, fmt.Errorf("waiting for assessment of %s: %w", host, err)
		}

		result, err = s.client.Analyze(waitCtx, host, ssllabs.AnalyzeOptions{})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *ingestService) IngestEndpoint(ctx context.Context, host, ip string) (*models.EndpointRaw, error) {
	var result *ssllabs.EndpointResult
	err := s.logger.LogFetch("getEndpointData", func() error {
		var fetchErr error
		result, fetchErr = s.client.EndpointData(ctx, host, ip)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	doc := &models.EndpointRaw{
		UUID:       uuid.New().String(),
		Host:       host,
		IP:         ip,
		Kind:       models.EndpointKindDetail,
		Source:     models.SourceSSLLabs,
		IngestedAt: time.Now().UTC().Unix(),
		Response:   datatypes.JSON(result.Body),
	}
	if err := s.rawDao.SaveEndpoint(doc); err != nil {
		s.logger.WithError(err).Error("SaveEndpoint failed")
		return nil, err
	}

	s.logger.WithFields(logger.Fields{
		"uuid": doc.UUID,
		"host": host,
		"ip":   ip,
	}).Info("Stored endpoint document")
	return doc, nil
}

// IngestRun is the full three-stage sequence for one host: info, analyze
// (waiting for the assessment to finish), then one getEndpointData fetch
// per endpoint the assessment reported.
func (s *ingestService) IngestRun(ctx context.Context, host string) (*RunReport, error) {
	if _, err := s.IngestInfo(ctx); err != nil {
		return nil, err
	}

	analyzeDoc, err := s.IngestAnalyze(ctx, host, AnalyzeRunOptions{FromCache: true, Wait: true})
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		Host:        host,
		AnalyzeUUID: analyzeDoc.UUID,
		Status:      analyzeDoc.Status,
	}

	if analyzeDoc.Status != ssllabs.StatusReady {
		s.notifyRun(report, apierrors.ErrScanFailed)
		return report, fmt.Errorf("assessment of %s ended with status %s: %w",
			host, analyzeDoc.Status, apierrors.ErrScanFailed)
	}

	ips, err := endpointIPs(analyzeDoc)
	if err != nil {
		return report, err
	}

	for _, ip := range ips {
		if err := sleepCtx(ctx, s.cfg.WaitBetween); err != nil {
			return report, err
		}
		if _, err := s.IngestEndpoint(ctx, host, ip); err != nil {
			s.notifyRun(report, err)
			return report, err
		}
		report.EndpointCount++
	}

	s.notifyRun(report, nil)
	return report, nil
}

func (s *ingestService) notifyRun(report *RunReport, runErr error) {
	if s.notifier == nil {
		return
	}

	msg := notification.Message{
		Title:   "SSL Labs ingest run",
		Outcome: notification.OutcomeSuccess,
		Fields: map[string]string{
			"host":      report.Host,
			"status":    report.Status,
			"endpoints": fmt.Sprintf("%d", report.EndpointCount),
		},
	}
	if runErr != nil {
		msg.Outcome = notification.OutcomeFailure
		msg.Description = runErr.Error()
	}

	if err := s.notifier.Send(msg); err != nil {
		s.logger.WithError(err).Warn("Failed to send run report")
	}
}

// endpointIPs extracts the endpoint IPs from a stored analyze document
func endpointIPs(doc *models.AnalyzeRaw) ([]string, error) {
	var report ssllabs.AnalyzeReport
	if err := json.Unmarshal(doc.Response, &report); err != nil {
		return nil, apierrors.NewAPIError("analyze", 0, err)
	}
	ips := make([]string, 0, len(report.Endpoints))
	for _, ep := range report.Endpoints {
		if ep.IPAddress != "" {
			ips = append(ips, ep.IPAddress)
		}
	}
	return ips, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
