package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/core"
)

type MarketHandler struct {
	registry *core.Registry
	logger   *zap.Logger
}

func (h *MarketHandler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	market := rg.Group("/market")
	{
		market.GET("/listings", h.Listings)
		market.POST("/listings", authed, h.ListForSale)
		market.POST("/buy", authed, h.Buy)
	}
	vault := rg.Group("/vault")
	{
		vault.GET("/balance/:addr", h.VaultBalance)
		vault.POST("/deposit", authed, h.Deposit)
	}
}

func (h *MarketHandler) Listings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"count":    h.registry.ListedTokensCount(),
		"listings": h.registry.GetAllListedCredits(),
	})
}

type listRequest struct {
	TokenID        uint64 `json:"token_id" binding:"required"`
	PricePerCredit uint64 `json:"price_per_credit"`
}

func (h *MarketHandler) ListForSale(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.ListCreditsForSale(addr, req.TokenID, req.PricePerCredit); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type buyRequest struct {
	TokenID   uint64 `json:"token_id" binding:"required"`
	Amount    uint64 `json:"amount" binding:"required"`
	PaidValue uint64 `json:"paid_value" binding:"required"`
}

func (h *MarketHandler) Buy(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req buyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.BuyCredits(addr, req.TokenID, req.Amount, req.PaidValue); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token_id": req.TokenID,
		"amount":   req.Amount,
		"balance":  h.registry.BalanceOf(addr, req.TokenID),
	})
}

type depositRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

func (h *MarketHandler) Deposit(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.Deposit(addr, req.Amount); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr, "balance": h.registry.VaultBalance(addr)})
}

func (h *MarketHandler) VaultBalance(c *gin.Context) {
	addr := c.Param("addr")
	c.JSON(http.StatusOK, gin.H{"address": addr, "balance": h.registry.VaultBalance(addr)})
}
