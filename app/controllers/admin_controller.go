package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-audit/app/requests"
	"github.com/address-audit/app/responses"
	"github.com/address-audit/app/services"
	"github.com/address-audit/internal/search"
)

// AdminController serves the corpus-management endpoints: seeding, running
// the pipeline, evaluation, and the POI search used by operators to inspect
// the gazetteer.
type AdminController struct {
	seeder    *services.SeedService
	pipeline  *services.PipelineService
	evaluator *services.EvaluateService
	poiIndex  *search.POIIndex
	logger    *zap.Logger
}

// NewAdminController wires the admin surface. poiIndex may be nil; the POI
// search endpoint then reports unavailability.
func NewAdminController(seeder *services.SeedService, pipeline *services.PipelineService,
	evaluator *services.EvaluateService, poiIndex *search.POIIndex, logger *zap.Logger) *AdminController {

	return &AdminController{
		seeder:    seeder,
		pipeline:  pipeline,
		evaluator: evaluator,
		poiIndex:  poiIndex,
		logger:    logger,
	}
}

// Seed handles POST /v1/admin/seed. An empty body seeds the reference corpus.
func (ac *AdminController) Seed(c *gin.Context) {
	var req requests.SeedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, responses.ErrorResponse{
				Error:   "INVALID_REQUEST",
				Message: err.Error(),
			})
			return
		}
	}
	req.Defaults()

	summary, err := ac.seeder.Seed(c.Request.Context(), req.NEntities, req.VariantsPerEntity, req.Seed)
	if err != nil {
		ac.logger.Error("seed failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "SEED_ERROR",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Run handles POST /v1/admin/run.
func (ac *AdminController) Run(c *gin.Context) {
	var req requests.RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, responses.ErrorResponse{
				Error:   "INVALID_REQUEST",
				Message: err.Error(),
			})
			return
		}
	}

	summary, err := ac.pipeline.Run(c.Request.Context(), req.UseLLM)
	if err != nil {
		ac.logger.Error("pipeline run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "RUN_ERROR",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Evaluate handles POST /v1/admin/evaluate.
func (ac *AdminController) Evaluate(c *gin.Context) {
	var req requests.EvaluateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, responses.ErrorResponse{
				Error:   "INVALID_REQUEST",
				Message: err.Error(),
			})
			return
		}
	}

	if req.GridSearch {
		res, err := ac.evaluator.GridSearch(c.Request.Context())
		if err != nil {
			ac.logger.Error("grid search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
				Error:   "EVALUATE_ERROR",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	metrics, err := ac.evaluator.EvaluateCurrent(c.Request.Context())
	if err != nil {
		ac.logger.Error("evaluation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "EVALUATE_ERROR",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

// SearchPOIs handles GET /v1/admin/pois/search?q=...&district=...&limit=...
func (ac *AdminController) SearchPOIs(c *gin.Context) {
	if ac.poiIndex == nil {
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:   "POI_INDEX_UNAVAILABLE",
			Message: "meilisearch is not configured",
		})
		return
	}

	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, responses.ErrorResponse{
			Error:   "INVALID_REQUEST",
			Message: "query parameter q is required",
		})
		return
	}
	limit := int64(10)
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 && v <= 100 {
			limit = v
		}
	}

	hits, err := ac.poiIndex.Search(q, c.Query("district"), limit)
	if err != nil {
		ac.logger.Error("poi search failed", zap.String("q", q), zap.Error(err))
		c.JSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:   "SEARCH_ERROR",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": q, "hits": hits})
}
