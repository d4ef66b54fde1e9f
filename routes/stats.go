package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basin-research-platform/internal/config"
	"basin-research-platform/services"
	"basin-research-platform/utils"
)

// SetupStatsRoutes registers corpus statistics and the capability
// description clients use to render their UI.
func SetupStatsRoutes(router *gin.Engine, cfg *config.Config, stats *services.StatsService) {
	api := router.Group("/api")

	api.GET("/stats", func(c *gin.Context) {
		current, err := stats.Current(c.Request.Context())
		if err != nil {
			utils.RespondWithUnavailable(c, "stats_unavailable",
				"Corpus statistics are temporarily unavailable")
			return
		}
		c.JSON(http.StatusOK, current)
	})

	api.GET("/capabilities", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "basin-research-platform",
			"description": "Hybrid retrieval over river basin research papers with traceable answers and tabular data analysis",
			"capabilities": gin.H{
				"document_search": gin.H{
					"enabled":         true,
					"vector_index":    cfg.VectorIndexName,
					"embedding_model": cfg.EmbeddingModel,
					"reranker_model":  cfg.RerankerModel,
					"graph_expansion": true,
					"top_k_default":   cfg.TopK,
				},
				"data_analysis": gin.H{
					"enabled": true,
					"formats": []string{".csv", ".xlsx"},
				},
				"sessions": gin.H{
					"enabled":   true,
					"ttl_hours": cfg.SessionTTLHours,
				},
			},
			"answer_model": cfg.GeminiModel,
			"upload": gin.H{
				"max_file_size": cfg.MaxFileSize,
				"documents":     []string{".pdf"},
			},
		})
	})
}
