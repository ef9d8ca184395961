package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carbon-registry/registry-backend/internal/core"
)

type CreditsHandler struct {
	registry *core.Registry
}

func (h *CreditsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	credits := rg.Group("/credits")
	{
		credits.GET("", h.List)
		credits.GET("/by-index/:i", h.TokenByIndex)
		credits.GET("/:id/supply", h.Supply)
		credits.GET("/:id/owners", h.Owners)
		credits.GET("/:id/balance/:addr", h.Balance)
	}
}

// List returns every credit view, or only those owned by ?owner=addr.
func (h *CreditsHandler) List(c *gin.Context) {
	if owner := c.Query("owner"); owner != "" {
		c.JSON(http.StatusOK, h.registry.GetOwnedCredits(owner))
		return
	}
	c.JSON(http.StatusOK, h.registry.GetAllCredits())
}

func (h *CreditsHandler) TokenByIndex(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("i"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	tokenID, err := h.registry.TokenByIndex(i)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token_id": tokenID})
}

func (h *CreditsHandler) Supply(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token_id": tokenID,
		"supply":   h.registry.TokenSupply(tokenID),
		"sold":     h.registry.TokenSold(tokenID),
	})
}

func (h *CreditsHandler) Owners(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token_id":    tokenID,
		"owners":      h.registry.TokenOwners(tokenID),
		"owner_count": h.registry.OwnerCount(tokenID),
	})
}

func (h *CreditsHandler) Balance(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		return
	}
	addr := c.Param("addr")
	c.JSON(http.StatusOK, gin.H{
		"token_id": tokenID,
		"address":  addr,
		"balance":  h.registry.BalanceOf(addr, tokenID),
	})
}
