package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/core"
)

type AccountsHandler struct {
	registry *core.Registry
	logger   *zap.Logger
}

func (h *AccountsHandler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	accts := rg.Group("/accounts")
	{
		accts.GET("", h.List)
		accts.GET("/:addr", h.Get)
		accts.POST("", authed, h.Register)
		accts.DELETE("/:addr", authed, h.Remove)
		accts.PUT("/authorized-contract", authed, h.SetAuthorizedContract)
		accts.POST("/:addr/credits", authed, h.AdjustCredits)
		accts.POST("/:addr/retired", authed, h.AdjustRetired)
	}
}

type registerAccountRequest struct {
	Address        string `json:"address" binding:"required"`
	InitialCredits uint64 `json:"initial_credits"`
	IsAuditor      bool   `json:"is_auditor"`
}

func (h *AccountsHandler) Register(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req registerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	acct, err := h.registry.RegisterAccount(addr, req.Address, req.InitialCredits, req.IsAuditor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

func (h *AccountsHandler) Remove(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	if err := h.registry.RemoveAccount(addr, c.Param("addr")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type authorizedContractRequest struct {
	Address string `json:"address" binding:"required"`
}

func (h *AccountsHandler) SetAuthorizedContract(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req authorizedContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.SetAuthorizedContract(addr, req.Address); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type adjustRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

func (h *AccountsHandler) AdjustCredits(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.AdjustCredits(addr, c.Param("addr"), req.Delta); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountsHandler) AdjustRetired(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.AdjustRetired(addr, c.Param("addr"), req.Delta); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountsHandler) Get(c *gin.Context) {
	acct, err := h.registry.GetAccountByAddress(c.Param("addr"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (h *AccountsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.GetAllAccounts())
}
