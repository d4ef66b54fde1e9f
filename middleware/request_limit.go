package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"basin-research-platform/utils"
)

// RequestSizeLimit middleware limits the size of request bodies. Sized to
// cover multipart uploads of papers and datasets plus form overhead.
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.RespondWithError(c, http.StatusRequestEntityTooLarge,
				"request_too_large",
				"Request body exceeds maximum size",
				gin.H{
					"max_size_bytes": maxSize,
					"received":       c.Request.ContentLength,
				})
			c.Abort()
			return
		}
		c.Next()
	}
}
