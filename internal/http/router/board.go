package router

import (
	"github.com/gin-gonic/gin"

	"vibecoder.app/console/internal/http/handler"
)

func BoardRouter(rg *gin.RouterGroup, h *handler.BoardHandler) {
	rg.GET("/:thread_id", h.Get)
	rg.PUT("/:thread_id", h.Put)
	rg.DELETE("/:thread_id", h.Delete)
	rg.GET("/:thread_id/stream", h.Stream)
}
