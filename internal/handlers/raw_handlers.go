package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"sslingest/internal/services"
	"sslingest/pkg/logger"
)

// RawHandler serves the stored raw documents for inspection. All routes
// are read-only.
type RawHandler struct {
	inspectService services.InspectServiceMethods
	logger         *logger.Logger
}

func NewRawHandler(inspectService services.InspectServiceMethods) *RawHandler {
	return &RawHandler{inspectService: inspectService, logger: logger.NewLogger(logrus.InfoLevel)}
}

func (h *RawHandler) ListInfo(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	docs, err := h.inspectService.ListInfo(limit)
	if err != nil {
		h.logger.Error("Failed to list info documents:", logger.Fields{"error": err})
		c.JSON(500, gin.H{"error": "Failed to list info documents"})
		return
	}
	c.JSON(200, docs)
}

func (h *RawHandler) ListAnalyzes(c *gin.Context) {
	if host := c.Query("host"); host != "" {
		docs, err := h.inspectService.ListAnalyzesByHost(host)
		if err != nil {
			h.logger.Error("Failed to list analyze documents:", logger.Fields{"error": err, "host": host})
			c.JSON(500, gin.H{"error": "Failed to list analyze documents"})
			return
		}
		c.JSON(200, docs)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	docs, total, err := h.inspectService.ListAnalyzes(page, limit)
	if err != nil {
		h.logger.Error("Failed to list analyze documents:", logger.Fields{"error": err})
		c.JSON(500, gin.H{"error": "Failed to list analyze documents"})
		return
	}
	c.JSON(200, AnalyzeListResponse{Total: total, Page: page, Limit: limit, Docs: docs})
}

func (h *RawHandler) GetAnalyzeByUUID(c *gin.Context) {
	id := c.Param("id")
	doc, err := h.inspectService.GetAnalyzeByUUID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(404, gin.H{"error": "Analyze document not found"})
			return
		}
		h.logger.Error("Failed to get analyze document:", logger.Fields{"error": err, "uuid": id})
		c.JSON(500, gin.H{"error": "Failed to get analyze document"})
		return
	}
	c.JSON(200, doc)
}

func (h *RawHandler) ListEndpoints(c *gin.Context) {
	host := c.Query("host")
	if host == "" {
		c.JSON(400, gin.H{"error": "host query parameter is required"})
		return
	}

	docs, err := h.inspectService.ListEndpointsByHost(host)
	if err != nil {
		h.logger.Error("Failed to list endpoint documents:", logger.Fields{"error": err, "host": host})
		c.JSON(500, gin.H{"error": "Failed to list endpoint documents"})
		return
	}
	c.JSON(200, docs)
}
