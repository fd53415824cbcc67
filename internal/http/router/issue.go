package router

import (
	"github.com/gin-gonic/gin"

	"civicpulse.app/sla/internal/http/handler"
)

func IssueRouter(rg *gin.RouterGroup, h *handler.IssueHandler, sla *handler.SLAHandler) {
	rg.POST("", h.Register)
	rg.GET("/:id/sla", h.GetSLA)
	rg.PATCH("/:id/status", h.TransitionStatus)
	rg.POST("/:id/evaluate", sla.Evaluate)
}
