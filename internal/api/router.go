package api

import (
	"github.com/gin-gonic/gin"

	"github.com/bdavis/diamond-dfs/internal/api/handlers"
	"github.com/bdavis/diamond-dfs/internal/identity"
	"github.com/bdavis/diamond-dfs/internal/services"
)

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(
	group *gin.RouterGroup,
	cache *services.CacheService,
	collector *services.CollectorService,
	resolver *identity.Resolver,
	registry *identity.Registry,
	matchThreshold float64,
	strictMatchThreshold float64,
) {
	projectionsHandler := handlers.NewProjectionsHandler(cache, collector)
	playersHandler := handlers.NewPlayersHandler(resolver, registry, matchThreshold, strictMatchThreshold)
	healthHandler := handlers.NewHealthHandler(collector)

	// Projection endpoints
	group.GET("/projections/:date", projectionsHandler.GetSlate)
	group.POST("/projections/run", projectionsHandler.RunSlate)

	// Identity endpoints
	group.GET("/players/resolve", playersHandler.ResolveName)
	group.GET("/players/identities", playersHandler.ListIdentities)

	// Operational endpoints
	group.GET("/status", healthHandler.GetStatus)
}
