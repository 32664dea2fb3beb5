package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"sslingest/internal/models"
)

type MockInspectService struct {
	mock.Mock
}

func (m *MockInspectService) ListInfo(limit int) ([]models.InfoRaw, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InfoRaw), args.Error(1)
}

func (m *MockInspectService) GetAnalyzeByUUID(id string) (*models.AnalyzeRaw, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnalyzeRaw), args.Error(1)
}

func (m *MockInspectService) ListAnalyzes(page, limit int) ([]models.AnalyzeRaw, int64, error) {
	args := m.Called(page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.AnalyzeRaw), args.Get(1).(int64), args.Error(2)
}

func (m *MockInspectService) ListAnalyzesByHost(host string) ([]models.AnalyzeRaw, error) {
	args := m.Called(host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AnalyzeRaw), args.Error(1)
}

func (m *MockInspectService) ListEndpointsByHost(host string) ([]models.EndpointRaw, error) {
	args := m.Called(host)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EndpointRaw), args.Error(1)
}

func setupRouter(svc *MockInspectService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRawHandler(svc)

	router := gin.New()
	router.GET("/api/raw/info", h.ListInfo)
	router.GET("/api/raw/analyzes", h.ListAnalyzes)
	router.GET("/api/raw/analyzes/:id", h.GetAnalyzeByUUID)
	router.GET("/api/raw/endpoints", h.ListEndpoints)
	return router
}

func TestGetAnalyzeByUUID(t *testing.T) {
	tests := []struct {
		name           string
		uuid           string
		setupMock      func(*MockInspectService)
		expectedStatus int
	}{
		{
			name: "Found",
			uuid: "123e4567-e89b-12d3-a456-426614174000",
			setupMock: func(m *MockInspectService) {
				m.On("GetAnalyzeByUUID", "123e4567-e89b-12d3-a456-426614174000").
					Return(&models.AnalyzeRaw{
						UUID: "123e4567-e89b-12d3-a456-426614174000",
						Host: "example.com",
					}, nil)
			},
			expectedStatus: 200,
		},
		{
			name: "Not Found",
			uuid: "missing",
			setupMock: func(m *MockInspectService) {
				m.On("GetAnalyzeByUUID", "missing").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedStatus: 404,
		},
		{
			name: "Database Error",
			uuid: "boom",
			setupMock: func(m *MockInspectService) {
				m.On("GetAnalyzeByUUID", "boom").Return(nil, gorm.ErrInvalidDB)
			},
			expectedStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockInspectService)
			tt.setupMock(svc)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/api/raw/analyzes/"+tt.uuid, nil)
			setupRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestListAnalyzesByHost(t *testing.T) {
	svc := new(MockInspectService)
	svc.On("ListAnalyzesByHost", "example.com").Return([]models.AnalyzeRaw{
		{UUID: "a", Host: "example.com", Status: "READY"},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/raw/analyzes?host=example.com", nil)
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)

	var docs []models.AnalyzeRaw
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	assert.Len(t, docs, 1)
	assert.Equal(t, "example.com", docs[0].Host)
	svc.AssertNotCalled(t, "ListAnalyzes", mock.Anything, mock.Anything)
}

func TestListAnalyzesPaginated(t *testing.T) {
	svc := new(MockInspectService)
	svc.On("ListAnalyzes", 2, 5).Return([]models.AnalyzeRaw{{UUID: "a"}}, int64(11), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/raw/analyzes?page=2&limit=5", nil)
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)

	var resp AnalyzeListResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(11), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Len(t, resp.Docs, 1)
}

func TestListEndpointsRequiresHost(t *testing.T) {
	svc := new(MockInspectService)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/raw/endpoints", nil)
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	svc.AssertNotCalled(t, "ListEndpointsByHost", mock.Anything)
}

func TestListEndpoints(t *testing.T) {
	svc := new(MockInspectService)
	svc.On("ListEndpointsByHost", "example.com").Return([]models.EndpointRaw{
		{UUID: "e1", Host: "example.com", IP: "192.0.2.1", Kind: models.EndpointKindSummary},
		{UUID: "e2", Host: "example.com", IP: "192.0.2.1", Kind: models.EndpointKindDetail},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/raw/endpoints?host=example.com", nil)
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)

	var docs []models.EndpointRaw
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	assert.Len(t, docs, 2)
}

func TestListInfo(t *testing.T) {
	svc := new(MockInspectService)
	svc.On("ListInfo", 10).Return([]models.InfoRaw{{UUID: "i1"}}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/raw/info", nil)
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	svc.AssertExpectations(t)
}
