package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"civicpulse.app/sla/internal/http/dto"
	"civicpulse.app/sla/internal/model"
	"civicpulse.app/sla/internal/service"
)

type IssueHandler struct {
	issueService service.IssueService
}

func NewIssueHandler(issueService service.IssueService) *IssueHandler {
	return &IssueHandler{issueService: issueService}
}

func (h *IssueHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	registered, err := h.issueService.Register(ctx, req.ToParams())
	if err != nil {
		respondError(c, err, "failed to register issue")
		return
	}

	c.JSON(http.StatusCreated, dto.ToRegisterIssueResponse(registered))
}

func (h *IssueHandler) GetSLA(c *gin.Context) {
	view, err := h.issueService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to load issue")
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueSLAResponse(view))
}

func (h *IssueHandler) TransitionStatus(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := h.issueService.TransitionStatus(ctx, c.Param("id"), model.Status(req.Status))
	if err != nil {
		respondError(c, err, "failed to update status")
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueResponse(issue))
}
