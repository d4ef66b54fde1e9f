package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"basin-research-platform/services"
	"basin-research-platform/utils"
)

// SetupSessionRoutes registers session history access.
func SetupSessionRoutes(router *gin.Engine, sessions *services.SessionService) {
	group := router.Group("/api/sessions")

	group.GET("/:id", func(c *gin.Context) {
		session, err := sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				utils.RespondWithNotFound(c, "Session not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to load session", nil)
			return
		}

		payload := gin.H{"session": session}
		if latest, ok := sessions.LatestAnswer(c.Request.Context(), session.SessionID); ok {
			payload["latest_answer"] = latest
		}
		c.JSON(http.StatusOK, payload)
	})

	group.DELETE("/:id", func(c *gin.Context) {
		err := sessions.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				utils.RespondWithNotFound(c, "Session not found")
				return
			}
			utils.RespondWithInternalError(c, "Failed to delete session", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
	})
}
