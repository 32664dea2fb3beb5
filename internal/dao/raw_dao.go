package dao

import (
	"gorm.io/gorm"

	"sslingest/internal/models"
)

type RawDAO interface {
	SaveInfo(doc *models.InfoRaw) error
	SaveAnalyze(doc *models.AnalyzeRaw) error
	SaveEndpoint(doc *models.EndpointRaw) error
	ListInfo(limit int) ([]models.InfoRaw, error)
	GetAnalyzeByUUID(uuid string) (*models.AnalyzeRaw, error)
	ListAnalyzes(page, limit int) ([]models.AnalyzeRaw, int64, error)
	ListAnalyzesByHost(host string) ([]models.AnalyzeRaw, error)
	ListEndpointsByHost(host string) ([]models.EndpointRaw, error)
}

type rawDAO struct {
	db *gorm.DB
}

func NewRawDAO(db *gorm.DB) RawDAO {
	return &rawDAO{db: db}
}

func (dao *rawDAO) SaveInfo(doc *models.InfoRaw) error {
	return dao.db.Create(doc).Error
}

func (dao *rawDAO) SaveAnalyze(doc *models.AnalyzeRaw) error {
	return dao.db.Create(doc).Error
}

func (dao *rawDAO) SaveEndpoint(doc *models.EndpointRaw) error {
	return dao.db.Create(doc).Error
}

func (dao *rawDAO) ListInfo(limit int) ([]models.InfoRaw, error) {
	if limit < 1 {
		limit = 10
	}
	var docs []models.InfoRaw
	if err := dao.db.Order("ingested_at desc").Limit(limit).Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (dao *rawDAO) GetAnalyzeByUUID(uuid string) (*models.AnalyzeRaw, error) {
	var doc models.AnalyzeRaw
	if err := dao.db.Where("uuid = ?", uuid).First(&doc).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (dao *rawDAO) ListAnalyzes(page, limit int) ([]models.AnalyzeRaw, int64, error) {
	var docs []models.AnalyzeRaw
	var total int64

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	offset := (page - 1) * limit

	if err := dao.db.Model(&models.AnalyzeRaw{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := dao.db.Order("ingested_at desc").
		Limit(limit).
		Offset(offset).
		Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (dao *rawDAO) ListAnalyzesByHost(host string) ([]models.AnalyzeRaw, error) {
	var docs []models.AnalyzeRaw
	if err := dao.db.Where("host = ?", host).Order("ingested_at desc").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (dao *rawDAO) ListEndpointsByHost(host string) ([]models.EndpointRaw, error) {
	var docs []models.EndpointRaw
	if err := dao.db.Where("host = ?", host).Order("ingested_at desc").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
