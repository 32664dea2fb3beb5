package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sslingest/internal/config"
	"sslingest/internal/models"
	"sslingest/internal/ssllabs"
	"sslingest/pkg/apierrors"
)

type MockRawDAO struct {
	mock.Mock
}

func (m *MockRawDAO) SaveInfo(doc *models.InfoRaw) error {
	return m.Called(doc).Error(0)
}

func (m *MockRawDAO) SaveAnalyze(doc *models.AnalyzeRaw) error {
	return m.Called(doc).Error(0)
}

func (m *MockRawDAO) SaveEndpoint(doc *models.EndpointRaw) error {
	return m.Called(doc).Error(0)
}

func (m *MockRawDAO) ListInfo(limit int) ([]models.InfoRaw, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InfoRaw), args.Error(1)
}

func (m *MockRawDAO) GetAnalyzeByUUID(uuid string) (*models.AnalyzeRaw, error) {
	args := m.Called(uuid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalyzeRaw), args.Error(1)
}

func (m *MockRawDAO) ListAnalyzes(page, limit int) ([]models.AnalyzeRaw, int64, error) {
	args := m.Called(page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.AnalyzeRaw), args.Get(1).(int64), args.Error(2)
}

func (m *MockRawDAO) ListAnalyzesByHost(host string) ([]models.AnalyzeRaw, error) {
	args := m.Called(host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AnalyzeRaw), args.Error(1)
}

func (m *MockRawDAO) ListEndpointsByHost(host string) ([]models.EndpointRaw, error) {
	args := m.Called(host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EndpointRaw), args.Error(1)
}

type MockAPIClient struct {
	mock.Mock
}

func (m *MockAPIClient) Info(ctx context.Context) (*ssllabs.InfoResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssllabs.InfoResult), args.Error(1)
}

func (m *MockAPIClient) Analyze(ctx context.Context, host string, opts ssllabs.AnalyzeOptions) (*ssllabs.AnalyzeResult, error) {
	args := m.Called(ctx, host, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssllabs.AnalyzeResult), args.Error(1)
}

func (m *MockAPIClient) EndpointData(ctx context.Context, host, ip string) (*ssllabs.EndpointResult, error) {
	args := m.Called(ctx, host, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssllabs.EndpointResult), args.Error(1)
}

func testIngestConfig() *config.IngestConfig {
	return &config.IngestConfig{
		WaitBetween:  0,
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
	}
}

func analyzeResult(body string) *ssllabs.AnalyzeResult {
	var result ssllabs.AnalyzeResult
	result.Body = json.RawMessage(body)
	if err := json.Unmarshal([]byte(body), &result.Report); err != nil {
		panic(err)
	}
	var raw struct {
		Endpoints []json.RawMessage `json:"endpoints"`
	}
	json.Unmarshal([]byte(body), &raw)
	result.EndpointRaws = raw.Endpoints
	return &result
}

func TestIngestInfo(t *testing.T) {
	body := `{"engineVersion":"2.3.0"}`

	client := new(MockAPIClient)
	client.On("Info", mock.Anything).Return(&ssllabs.InfoResult{
		Report: ssllabs.Info{EngineVersion: "2.3.0"},
		Body:   json.RawMessage(body),
	}, nil)

	rawDao := new(MockRawDAO)
	rawDao.On("SaveInfo", mock.MatchedBy(func(doc *models.InfoRaw) bool {
		return string(doc.Response) == body &&
			doc.Source == models.SourceSSLLabs &&
			doc.UUID != "" &&
			doc.IngestedAt > 0
	})).Return(nil)

	svc := NewIngestService(rawDao, client, testIngestConfig())
	doc, err := svc.IngestInfo(context.Background())

	require.NoError(t, err)
	assert.Equal(t, body, string(doc.Response))
	rawDao.AssertNumberOfCalls(t, "SaveInfo", 1)
}

func TestIngestInfoFetchFailurePreventsInsert(t *testing.T) {
	client := new(MockAPIClient)
	client.On("Info", mock.Anything).Return(nil, apierrors.NewAPIError("info", 503, errors.New("unavailable")))

	rawDao := new(MockRawDAO)

	svc := NewIngestService(rawDao, client, testIngestConfig())
	_, err := svc.IngestInfo(context.Background())

	require.Error(t, err)
	rawDao.AssertNotCalled(t, "SaveInfo", mock.Anything)
}

func TestIngestAnalyzeStoresEndpointSummaries(t *testing.T) {
	body := `{"host":"example.com","status":"READY","endpoints":[` +
		`{"ipAddress":"192.0.2.1","grade":"A"},{"ipAddress":"192.0.2.2","grade":"B"}]}`

	client := new(MockAPIClient)
	client.On("Analyze", mock.Anything, "example.com", ssllabs.AnalyzeOptions{FromCache: true}).
		Return(analyzeResult(body), nil)

	rawDao := new(MockRawDAO)
	rawDao.On("SaveAnalyze", mock.MatchedBy(func(doc *models.AnalyzeRaw) bool {
		return doc.Host == "example.com" &&
			doc.Status == "READY" &&
			string(doc.Response) == body
	})).Return(nil)
	rawDao.On("SaveEndpoint", mock.MatchedBy(func(doc *models.EndpointRaw) bool {
		return doc.Kind == models.EndpointKindSummary && doc.Host == "example.com"
	})).Return(nil)

	svc := NewIngestService(rawDao, client, testIngestConfig())
	doc, err := svc.IngestAnalyze(context.Background(), "example.com", AnalyzeRunOptions{FromCache: true})

	require.NoError(t, err)
	assert.Equal(t, "READY", doc.Status)
	rawDao.AssertNumberOfCalls(t, "SaveAnalyze", 1)
	rawDao.AssertNumberOfCalls(t, "SaveEndpoint", 2)
}

func TestIngestAnalyzeFetchFailurePreventsInsert(t *testing.T) {
	client := new(MockAPIClient)
	client.On("Analyze", mock.Anything, "example.com", mock.Anything).
		Return(nil, apierrors.NewAPIError("analyze", 429, apierrors.ErrRateLimited))

	rawDao := new(MockRawDAO)

	svc := NewIngestService(rawDao, client, testIngestConfig())
	_, err := svc.IngestAnalyze(context.Background(), "example.com", AnalyzeRunOptions{})

	require.Error(t, err)
	rawDao.AssertNotCalled(t, "SaveAnalyze", mock.Anything)
	rawDao.AssertNotCalled(t, "SaveEndpoint", mock.Anything)
}

func TestIngestAnalyzeWaitPollsUntilReady(t *testing.T) {
	inProgress := `{"host":"example.com","status":"IN_PROGRESS","endpoints":[]}`
	ready := `{"host":"example.com","status":"READY","endpoints":[{"ipAddress":"192.0.2.1"}]}`

	client := new(MockAPIClient)
	// First call carries the user's options, polls go out bare
	client.On("Analyze", mock.Anything, "example.com", ssllabs.AnalyzeOptions{StartNew: true}).
		Return(analyzeResult(inProgress), nil).Once()
	client.On("Analyze", mock.Anything, "example.com", ssllabs.AnalyzeOptions{}).
		Return(analyzeResult(ready), nil).Once()

	rawDao := new(MockRawDAO)
	rawDao.On("SaveAnalyze", mock.MatchedBy(func(doc *models.AnalyzeRaw) bool {
		// Only the final response is stored
		return doc.Status == "READY" && string(doc.Response) == ready
	})).Return(nil)
	rawDao.On("SaveEndpoint", mock.Anything).Return(nil)

	svc := NewIngestService(rawDao, client, testIngestConfig())
	doc, err := svc.IngestAnalyze(context.Background(), "example.com",
		AnalyzeRunOptions{StartNew: true, Wait: true})

	require.NoError(t, err)
	assert.Equal(t, "READY", doc.Status)
	client.AssertNumberOfCalls(t, "Analyze", 2)
	rawDao.AssertNumberOfCalls(t, "SaveAnalyze", 1)
}

func TestIngestEndpoint(t *testing.T) {
	body := `{"ipAddress":"192.0.2.1","grade":"A"}`

	client := new(MockAPIClient)
	client.On("EndpointData", mock.Anything, "example.com", "192.0.2.1").
		Return(&ssllabs.EndpointResult{
			Report: ssllabs.EndpointSummary{IPAddress: "192.0.2.1", Grade: "A"},
			Body:   json.RawMessage(body),
		}, nil)

	rawDao := new(MockRawDAO)
	rawDao.On("SaveEndpoint", mock.MatchedBy(func(doc *models.EndpointRaw) bool {
		return doc.Kind == models.EndpointKindDetail &&
			doc.IP == "192.0.2.1" &&
			string(doc.Response) == body
	})).Return(nil)

	svc := NewIngestService(rawDao, client, testIngestConfig())
	doc, err := svc.IngestEndpoint(context.Background(), "example.com", "192.0.2.1")

	require.NoError(t, err)
	assert.Equal(t, models.EndpointKindDetail, doc.Kind)
	rawDao.AssertNumberOfCalls(t, "SaveEndpoint", 1)
}

func TestIngestRun(t *testing.T) {
	ready := `{"host":"example.com","status":"READY","endpoints":[` +
		`{"ipAddress":"192.0.2.1"},{"ipAddress":"192.0.2.2"}]}`

	client := new(MockAPIClient)
	client.On("Info", mock.Anything).Return(&ssllabs.InfoResult{
		Body: json.RawMessage(`{"engineVersion":"2.3.0"}`),
	}, nil)
	client.On("Analyze", mock.Anything, "example.com", mock.Anything).
		Return(analyzeResult(ready), nil)
	client.On("EndpointData", mock.Anything, "example.com", "192.0.2.1").
		Return(&ssllabs.EndpointResult{Body: json.RawMessage(`{"ipAddress":"192.0.2.1"}`)}, nil)
	client.On("EndpointData", mock.Anything, "example.com", "192.0.2.2").
		Return(&ssllabs.EndpointResult{Body: json.RawMessage(`{"ipAddress":"192.0.2.2"}`)}, nil)

	rawDao := new(MockRawDAO)
	rawDao.On("SaveInfo", mock.Anything).Return(nil)
	rawDao.On("SaveAnalyze", mock.Anything).Return(nil)
	rawDao.On("SaveEndpoint", mock.Anything).Return(nil)

	svc := NewIngestService(rawDao, client, testIngestConfig())
	report, err := svc.IngestRun(context.Background(), "example.com")

	require.NoError(t, err)
	assert.Equal(t, 2, report.EndpointCount)
	assert.Equal(t, "READY", report.Status)
	rawDao.AssertNumberOfCalls(t, "SaveInfo", 1)
	rawDao.AssertNumberOfCalls(t, "SaveAnalyze", 1)
	// 2 summaries from the analyze response + 2 detail documents
	rawDao.AssertNumberOfCalls(t, "SaveEndpoint", 4)
}

func TestIngestRunStopsWhenAssessmentFails(t *testing.T) {
	failed := `{"host":"example.com","status":"ERROR","statusMessage":"Unable to resolve domain name"}`

	client := new(MockAPIClient)
	client.On("Info", mock.Anything).Return(&ssllabs.InfoResult{
		Body: json.RawMessage(`{"engineVersion":"2.3.0"}`),
	}, nil)
	client.On("Analyze", mock.Anything, "example.com", mock.Anything).
		Return(analyzeResult(failed), nil)

	rawDao := new(MockRawDAO)
	rawDao.On("SaveInfo", mock.Anything).Return(nil)
	rawDao.On("SaveAnalyze", mock.Anything).Return(nil)

	svc := NewIngestService(rawDao, client, testIngestConfig())
	_, err := svc.IngestRun(context.Background(), "example.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, apierrors.ErrScanFailed)
	client.AssertNotCalled(t, "EndpointData", mock.Anything, mock.Anything, mock.Anything)
}
