package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/bdavis/diamond-dfs/internal/identity"
	"github.com/bdavis/diamond-dfs/internal/names"
	"github.com/bdavis/diamond-dfs/pkg/utils"
)

type PlayersHandler struct {
	resolver         *identity.Resolver
	registry         *identity.Registry
	defaultThreshold float64
	strictThreshold  float64
}

func NewPlayersHandler(resolver *identity.Resolver, registry *identity.Registry, defaultThreshold, strictThreshold float64) *PlayersHandler {
	if defaultThreshold <= 0 {
		defaultThreshold = identity.DefaultMatchThreshold
	}
	if strictThreshold <= 0 {
		strictThreshold = identity.StrictMatchThreshold
	}
	return &PlayersHandler{
		resolver:         resolver,
		registry:         registry,
		defaultThreshold: defaultThreshold,
		strictThreshold:  strictThreshold,
	}
}

// ResolveName resolves a free-text name against the identity registry.
// Useful for debugging why a salary-export name matched (or didn't).
func (h *PlayersHandler) ResolveName(c *gin.Context) {
	rawName := c.Query("name")
	if rawName == "" {
		utils.SendValidationError(c, "Missing name parameter", "pass ?name=<player name>")
		return
	}

	threshold := h.defaultThreshold
	if c.Query("strict") == "true" {
		threshold = h.strictThreshold
	}

	record := h.resolver.Resolve(rawName, threshold)

	utils.SendSuccess(c, gin.H{
		"raw_name":   rawName,
		"normalized": names.Normalize(rawName),
		"threshold":  threshold,
		"record":     record,
	})
}

// ListIdentities returns the registry contents.
func (h *PlayersHandler) ListIdentities(c *gin.Context) {
	utils.SendSuccess(c, h.registry.All())
}
