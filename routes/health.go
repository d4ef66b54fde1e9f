package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"basin-research-platform/services"
)

// SetupHealthRoutes registers liveness with dependency pings. The graph
// store being down degrades the report but not the status code, queries
// still work without it.
func SetupHealthRoutes(router *gin.Engine, mongoClient *mongo.Client, rdb *redis.Client, graph *services.GraphService) {
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		deps := gin.H{}
		degraded := []string{}
		status := http.StatusOK

		if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			deps["mongodb"] = "down"
			degraded = append(degraded, "mongodb")
			status = http.StatusServiceUnavailable
		} else {
			deps["mongodb"] = "up"
		}

		if err := rdb.Ping(ctx).Err(); err != nil {
			deps["redis"] = "down"
			degraded = append(degraded, "redis")
			status = http.StatusServiceUnavailable
		} else {
			deps["redis"] = "up"
		}

		if err := graph.Ping(ctx); err != nil {
			deps["neo4j"] = "down"
			degraded = append(degraded, "neo4j")
		} else {
			deps["neo4j"] = "up"
		}

		state := "healthy"
		if len(degraded) > 0 {
			state = "degraded"
		}

		c.JSON(status, gin.H{
			"status":       state,
			"dependencies": deps,
			"degraded":     degraded,
			"time":         time.Now().UTC(),
		})
	})
}
