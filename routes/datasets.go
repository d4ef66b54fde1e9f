package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basin-research-platform/internal/config"
	"basin-research-platform/services"
	"basin-research-platform/utils"
)

// SetupDatasetRoutes registers tabular file upload for data analysis.
func SetupDatasetRoutes(router *gin.Engine, cfg *config.Config, datasets *services.DatasetService) {
	group := router.Group("/api/datasets")

	group.POST("", func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
				"File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "no_file",
				"No data file provided under the 'file' field", nil)
			return
		}
		defer file.Close()

		dataset, err := datasets.SaveUpload(c.Request.Context(), file, header)
		if err != nil {
			utils.RespondWithBadRequest(c, "Upload rejected", gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"file_id":     dataset.DatasetID,
			"filename":    dataset.Filename,
			"size":        dataset.Size,
			"uploaded_at": dataset.UploadedAt,
		})
	})

	group.GET("", func(c *gin.Context) {
		items, err := datasets.List(c.Request.Context(), 50)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list datasets", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"datasets": items})
	})
}
