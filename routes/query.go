package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"basin-research-platform/internal/ai"
	"basin-research-platform/models"
	"basin-research-platform/services"
	"basin-research-platform/utils"
)

// SetupQueryRoutes registers the unified query endpoint.
func SetupQueryRoutes(router *gin.Engine, agent *services.AgentService) {
	api := router.Group("/api")

	api.POST("/query", func(c *gin.Context) {
		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		result, err := agent.HandleQuery(c.Request.Context(), req)
		if err != nil {
			respondQueryError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	})
}

// respondQueryError maps pipeline failures onto the error surface: client
// mistakes are 4xx, a down dependency is 503 with empty evidence fields.
func respondQueryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAnalysisNeedsFile):
		utils.RespondWithError(c, http.StatusBadRequest, "file_required",
			"This query needs an uploaded data file. Upload one and pass its file_id.", nil)
	case errors.Is(err, services.ErrDatasetNotFound):
		utils.RespondWithNotFound(c, "No uploaded file matches that file_id")
	case errors.Is(err, services.ErrBadTable):
		utils.RespondWithError(c, http.StatusUnprocessableEntity, "table_unusable", err.Error(), nil)
	case errors.Is(err, ai.ErrUnavailable):
		utils.RespondWithUnavailable(c, "completion_unavailable",
			"The answer service is temporarily unavailable. Please retry shortly.")
	default:
		utils.RespondWithUnavailable(c, "retrieval_unavailable",
			"Evidence retrieval is temporarily unavailable. Please retry shortly.")
	}
}
