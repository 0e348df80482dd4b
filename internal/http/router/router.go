package router

import (
	"github.com/gin-gonic/gin"

	"vibecoder.app/console/internal/http/handler"
	"vibecoder.app/console/internal/store"
)

func SetupRoutes(router *gin.Engine, stores *store.Stores) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		boardHandler := handler.NewBoardHandler(stores.Boards())
		BoardRouter(v1.Group("/boards"), boardHandler)
	}
}
