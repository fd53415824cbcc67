package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"civicpulse.app/sla/internal/compliance"
	"civicpulse.app/sla/internal/http/dto"
	"civicpulse.app/sla/internal/service"
)

type SLAHandler struct {
	slaService service.SLAService
}

func NewSLAHandler(slaService service.SLAService) *SLAHandler {
	return &SLAHandler{slaService: slaService}
}

func (h *SLAHandler) Resolve(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.slaService.Resolve(req.ToParams())
	if err != nil {
		respondError(c, err, "failed to resolve deadline")
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *SLAHandler) Policy(c *gin.Context) {
	c.JSON(http.StatusOK, h.slaService.Policy())
}

func (h *SLAHandler) Compliance(c *gin.Context) {
	var q dto.ComplianceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := compliance.Filter{AreaID: q.AreaID}
	var err error
	if filter.From, err = parseDate(q.From); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid from: %v", err)})
		return
	}
	if filter.To, err = parseDate(q.To); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid to: %v", err)})
		return
	}

	report, err := h.slaService.Compliance(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "failed to compute compliance")
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *SLAHandler) Sweep(c *gin.Context) {
	summary, err := h.slaService.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err, "sweep failed")
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *SLAHandler) Evaluate(c *gin.Context) {
	outcome, err := h.slaService.Evaluate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "evaluation failed")
		return
	}

	c.JSON(http.StatusOK, dto.ToOutcomeResponse(outcome))
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
