package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func InitRouter(db *gorm.DB) *gin.Engine {
	router := gin.Default()

	// REST APIs
	api := router.Group("/api")
	{
		InitRawRoutes(api, db)
	}

	return router
}
