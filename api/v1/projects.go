package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/core"
	"carbon-registry/registry-backend/pkg/storage"
)

type ProjectsHandler struct {
	registry *core.Registry
	metadata storage.MetadataClient
	logger   *zap.Logger
}

func (h *ProjectsHandler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	proj := rg.Group("/projects")
	{
		proj.GET("/:id", h.Get)
		proj.GET("/:id/metadata", h.Metadata)
		proj.POST("", authed, h.Register)
		proj.POST("/:id/approve", authed, h.Approve)
		proj.POST("/:id/decline", authed, h.Decline)
	}
}

type registerProjectRequest struct {
	TokenSupply    uint64 `json:"token_supply" binding:"required"`
	MetadataURI    string `json:"metadata_uri" binding:"required"`
	PricePerCredit uint64 `json:"price_per_credit"`
}

func (h *ProjectsHandler) Register(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req registerProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.registry.RegisterProject(addr, req.TokenSupply, req.MetadataURI, req.PricePerCredit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ProjectsHandler) Approve(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	tokenID, err := parseTokenID(c)
	if err != nil {
		return
	}
	if err := h.registry.ApproveProject(addr, tokenID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectsHandler) Decline(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	tokenID, err := parseTokenID(c)
	if err != nil {
		return
	}
	if err := h.registry.DeclineProject(addr, tokenID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectsHandler) Get(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		return
	}
	item, err := h.registry.GetProject(tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Metadata resolves the project's off-chain document through the metadata
// store. The registry never interprets the document; it is served as-is.
func (h *ProjectsHandler) Metadata(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		return
	}
	item, err := h.registry.GetProject(tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	doc, err := h.metadata.FetchJSON(c.Request.Context(), item.MetadataURI)
	if err != nil {
		h.logger.Warn("metadata fetch failed",
			zap.Uint64("token_id", tokenID),
			zap.String("uri", item.MetadataURI),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func parseTokenID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token id"})
		return 0, err
	}
	return id, nil
}
