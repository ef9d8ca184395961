package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/core"
	"carbon-registry/registry-backend/pkg/pdf"
)

type RetirementsHandler struct {
	registry *core.Registry
	logger   *zap.Logger
}

func (h *RetirementsHandler) RegisterRoutes(rg *gin.RouterGroup, authed gin.HandlerFunc) {
	ret := rg.Group("/retirements")
	{
		ret.GET("", h.List)
		ret.GET("/:id", h.Get)
		ret.GET("/:id/certificate.pdf", h.Certificate)
		ret.GET("/by-index/:i", h.ByIndex)
		ret.POST("", authed, h.Retire)
		ret.POST("/:id/certificate", authed, h.Certify)
	}
}

type retireRequest struct {
	TokenID        uint64 `json:"token_id" binding:"required"`
	Amount         uint64 `json:"amount" binding:"required"`
	CertificateURI string `json:"certificate_uri"`
}

func (h *RetirementsHandler) Retire(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	var req retireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.registry.RetireCredits(addr, req.TokenID, req.Amount, req.CertificateURI)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type certifyRequest struct {
	CertificateURI string `json:"certificate_uri" binding:"required"`
}

func (h *RetirementsHandler) Certify(c *gin.Context) {
	addr, ok := caller(c)
	if !ok {
		return
	}
	id, err := parseRetirementID(c)
	if err != nil {
		return
	}
	var req certifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.registry.CertificateRetirement(addr, id, req.CertificateURI); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List returns every retirement, or only an owner's with ?owner=addr.
func (h *RetirementsHandler) List(c *gin.Context) {
	if owner := c.Query("owner"); owner != "" {
		c.JSON(http.StatusOK, h.registry.GetOwnedRetirements(owner))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":       h.registry.RetirementsTotalSupply(),
		"retirements": h.registry.GetAllRetirements(),
	})
}

func (h *RetirementsHandler) Get(c *gin.Context) {
	id, err := parseRetirementID(c)
	if err != nil {
		return
	}
	rec, err := h.registry.GetRetirement(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// ByIndex serves positional enumeration, owner-scoped with ?owner=addr.
func (h *RetirementsHandler) ByIndex(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("i"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	if owner := c.Query("owner"); owner != "" {
		rec, err := h.registry.RetirementOfOwnerByIndex(owner, i)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
		return
	}
	rec, err := h.registry.RetirementByIndex(i)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *RetirementsHandler) Certificate(c *gin.Context) {
	id, err := parseRetirementID(c)
	if err != nil {
		return
	}
	rec, err := h.registry.GetRetirement(id)
	if err != nil {
		respondError(c, err)
		return
	}
	raw, err := pdf.RenderCertificate(pdf.CertificateData{
		Serial:         rec.Serial,
		RetirementID:   rec.ID,
		TokenID:        rec.TokenID,
		Owner:          rec.Owner,
		Amount:         rec.Amount,
		RetiredAt:      rec.RetiredAt,
		CertificateURI: rec.CertificateURI,
		IsCertificated: rec.IsCertificated,
	})
	if err != nil {
		h.logger.Error("certificate render failed", zap.Uint64("retirement_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "certificate render failed"})
		return
	}
	c.Data(http.StatusOK, "application/pdf", raw)
}

func parseRetirementID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid retirement id"})
		return 0, err
	}
	return id, nil
}
