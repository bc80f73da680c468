package handlers

import (
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/bdavis/diamond-dfs/internal/services"
	"github.com/bdavis/diamond-dfs/pkg/utils"
)

var slateDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type ProjectionsHandler struct {
	cache     *services.CacheService
	collector *services.CollectorService
}

func NewProjectionsHandler(cache *services.CacheService, collector *services.CollectorService) *ProjectionsHandler {
	return &ProjectionsHandler{
		cache:     cache,
		collector: collector,
	}
}

// GetSlate returns the cached projections for a slate date.
func (h *ProjectionsHandler) GetSlate(c *gin.Context) {
	slateDate := c.Param("date")
	if !slateDatePattern.MatchString(slateDate) {
		utils.SendValidationError(c, "Invalid slate date", "expected YYYY-MM-DD")
		return
	}

	var slate services.SlateResult
	if err := h.cache.GetSimple(services.ProjectionsCacheKey(slateDate), &slate); err != nil {
		utils.SendNotFound(c, "No projections for slate date; trigger a run first")
		return
	}

	utils.SendSuccess(c, slate)
}

// RunSlate triggers a collection run for a slate date and returns the result.
func (h *ProjectionsHandler) RunSlate(c *gin.Context) {
	var req struct {
		SlateDate string `json:"slate_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}
	if !slateDatePattern.MatchString(req.SlateDate) {
		utils.SendValidationError(c, "Invalid slate date", "expected YYYY-MM-DD")
		return
	}

	slate, err := h.collector.RunSlate(c.Request.Context(), req.SlateDate)
	if err != nil {
		utils.SendInternalError(c, "Collection run failed: "+err.Error())
		return
	}

	utils.SendSuccess(c, slate)
}
