package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sslingest/internal/dao"
	"sslingest/internal/handlers"
	"sslingest/internal/services"
)

func InitRawRoutes(router *gin.RouterGroup, db *gorm.DB) {
	rawDao := dao.NewRawDAO(db)
	inspectService := services.NewInspectService(rawDao)
	handlers := handlers.NewRawHandler(inspectService)

	rawRoutes := router.Group("/raw")
	{
		rawRoutes.GET("/info", handlers.ListInfo)
		rawRoutes.GET("/analyzes", handlers.ListAnalyzes)
		rawRoutes.GET("/analyzes/:id", handlers.GetAnalyzeByUUID)
		rawRoutes.GET("/endpoints", handlers.ListEndpoints)
	}
}
