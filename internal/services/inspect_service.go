package services

import (
	"sslingest/internal/dao"
	"sslingest/internal/models"
)

// InspectServiceMethods is the read side serving the inspection API.
// Nothing here mutates the collections.
type InspectServiceMethods interface {
	ListInfo(limit int) ([]models.InfoRaw, error)
	GetAnalyzeByUUID(id string) (*models.AnalyzeRaw, error)
	ListAnalyzes(page, limit int) ([]models.AnalyzeRaw, int64, error)
	ListAnalyzesByHost(host string) ([]models.AnalyzeRaw, error)
	ListEndpointsByHost(host string) ([]models.EndpointRaw, error)
}

type inspectService struct {
	rawDao dao.RawDAO
}

func NewInspectService(rawDao dao.RawDAO) InspectServiceMethods {
	return &inspectService{rawDao: rawDao}
}

func (s *inspectService) ListInfo(limit int) ([]models.InfoRaw, error) {
	return s.rawDao.ListInfo(limit)
}

func (s *inspectService) GetAnalyzeByUUID(id string) (*models.AnalyzeRaw, error) {
	return s.rawDao.GetAnalyzeByUUID(id)
}

func (s *inspectService) ListAnalyzes(page, limit int) ([]models.AnalyzeRaw, int64, error) {
	return s.rawDao.ListAnalyzes(page, limit)
}

func (s *inspectService) ListAnalyzesByHost(host string) ([]models.AnalyzeRaw, error) {
	return s.rawDao.ListAnalyzesByHost(host)
}

func (s *inspectService) ListEndpointsByHost(host string) ([]models.EndpointRaw, error) {
	return s.rawDao.ListEndpointsByHost(host)
}
