package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-audit/app/requests"
	"github.com/address-audit/app/responses"
	"github.com/address-audit/app/services"
)

// CompareController serves the stateless pair-comparison endpoint.
type CompareController struct {
	pipeline  *services.PipelineService
	logger    *zap.Logger
	startTime time.Time
}

func NewCompareController(pipeline *services.PipelineService, logger *zap.Logger) *CompareController {
	return &CompareController{pipeline: pipeline, logger: logger, startTime: time.Now()}
}

// Compare handles POST /compare.
func (cc *CompareController) Compare(c *gin.Context) {
	var req requests.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}
	if strings.TrimSpace(req.Addr1) == "" || strings.TrimSpace(req.Addr2) == "" {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "addr1 and addr2 must be non-empty",
		})
		return
	}

	res, err := cc.pipeline.ComparePair(c.Request.Context(), req.Addr1, req.Addr2, req.UseLLM)
	if err != nil {
		cc.logger.Error("compare failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "COMPARE_ERROR",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, res)
}

// HealthCheck handles GET /health.
func (cc *CompareController) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(cc.startTime).Seconds()),
	})
}
