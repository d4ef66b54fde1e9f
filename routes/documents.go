package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"basin-research-platform/internal/config"
	"basin-research-platform/internal/logger"
	"basin-research-platform/internal/queue"
	"basin-research-platform/models"
	"basin-research-platform/services"
	"basin-research-platform/utils"
)

// SetupDocumentRoutes registers paper upload, listing and reindexing.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, papers *services.PaperService, graph *services.GraphService, queueClient *asynq.Client) {
	docs := router.Group("/api/documents")

	docs.POST("", func(c *gin.Context) {
		if err := c.Request.ParseMultipartForm(cfg.MaxFileSize); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "file_too_large",
				"File size exceeds maximum limit", nil)
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "no_file",
				"No PDF file provided under the 'file' field", nil)
			return
		}
		defer file.Close()

		paper, created, err := papers.CreateFromUpload(c.Request.Context(), file, header)
		if err != nil {
			utils.RespondWithBadRequest(c, "Upload rejected", gin.H{"error": err.Error()})
			return
		}

		if !created {
			c.JSON(http.StatusOK, models.UploadResponse{
				PaperID:  paper.PaperID,
				Filename: paper.Filename,
				Status:   paper.Status,
				Message:  "A paper with identical content is already indexed",
			})
			return
		}

		if err := enqueueIngest(queueClient, paper); err != nil {
			logger.Error("Failed to enqueue ingestion", "paper_id", paper.PaperID, "error", err)
			utils.RespondWithUnavailable(c, "queue_unavailable",
				"Upload stored but processing could not be scheduled. Reindex the document later.")
			return
		}

		c.JSON(http.StatusAccepted, models.UploadResponse{
			PaperID:  paper.PaperID,
			Filename: paper.Filename,
			Status:   paper.Status,
			Message:  "Upload accepted for processing",
		})
	})

	docs.GET("", func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		items, total, err := papers.List(c.Request.Context(), page, limit)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"documents": items,
			"total":     total,
			"page":      page,
		})
	})

	docs.GET("/:id", func(c *gin.Context) {
		paper, err := papers.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondPaperError(c, err)
			return
		}

		payload := gin.H{"paper": paper}
		// Graph view is best effort, the Mongo record is the document.
		if meta, err := graph.PaperMetadata(c.Request.Context(), paper.PaperID); err == nil {
			payload["graph"] = meta
		}
		c.JSON(http.StatusOK, payload)
	})

	docs.GET("/:id/text", func(c *gin.Context) {
		text, err := papers.FullText(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondPaperError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"paper_id": c.Param("id"),
			"text":     text,
		})
	})

	docs.POST("/:id/reindex", func(c *gin.Context) {
		paper, err := papers.MarkPending(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondPaperError(c, err)
			return
		}

		if err := enqueueIngest(queueClient, paper); err != nil {
			logger.Error("Failed to enqueue reindex", "paper_id", paper.PaperID, "error", err)
			utils.RespondWithUnavailable(c, "queue_unavailable",
				"Reindex could not be scheduled. Please retry.")
			return
		}

		c.JSON(http.StatusAccepted, models.UploadResponse{
			PaperID:  paper.PaperID,
			Filename: paper.Filename,
			Status:   paper.Status,
			Message:  "Reindex scheduled",
		})
	})
}

func enqueueIngest(queueClient *asynq.Client, paper *models.Paper) error {
	task, err := queue.NewDocumentIngestTask(paper.PaperID, paper.Filename)
	if err != nil {
		return err
	}
	_, err = queueClient.Enqueue(task)
	return err
}

func respondPaperError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrPaperNotFound) {
		utils.RespondWithNotFound(c, "Document not found")
		return
	}
	utils.RespondWithInternalError(c, "Failed to load document", gin.H{"error": err.Error()})
}
