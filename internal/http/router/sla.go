package router

import (
	"github.com/gin-gonic/gin"

	"civicpulse.app/sla/internal/http/handler"
)

func SLARouter(rg *gin.RouterGroup, h *handler.SLAHandler) {
	rg.POST("/resolve", h.Resolve)
	rg.GET("/policy", h.Policy)
	rg.GET("/compliance", h.Compliance)
	rg.POST("/sweep", h.Sweep)
}
