package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"civicpulse.app/sla/internal/http/handler"
	"civicpulse.app/sla/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		issueHandler := handler.NewIssueHandler(services.Issues())
		slaHandler := handler.NewSLAHandler(services.SLA())

		IssueRouter(v1.Group("/issues"), issueHandler, slaHandler)
		SLARouter(v1.Group("/sla"), slaHandler)
	}
}
