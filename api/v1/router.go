package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carbon-registry/registry-backend/internal/accounts"
	"carbon-registry/registry-backend/internal/auth"
	"carbon-registry/registry-backend/internal/core"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/ledger"
	"carbon-registry/registry-backend/internal/marketplace"
	"carbon-registry/registry-backend/internal/payments"
	"carbon-registry/registry-backend/internal/projects"
	"carbon-registry/registry-backend/internal/retirement"
	"carbon-registry/registry-backend/pkg/storage"
)

// Register mounts every registry route under the given group. Mutating
// routes require a bearer token; reads are open.
func Register(rg *gin.RouterGroup, registry *core.Registry, hub *events.Hub, jwtSecret string, logger *zap.Logger) {
	authed := auth.Middleware(jwtSecret)

	accountsHandler := &AccountsHandler{registry: registry, logger: logger}
	accountsHandler.RegisterRoutes(rg, authed)

	projectsHandler := &ProjectsHandler{registry: registry, metadata: storage.NewMetadataClient(), logger: logger}
	projectsHandler.RegisterRoutes(rg, authed)

	creditsHandler := &CreditsHandler{registry: registry}
	creditsHandler.RegisterRoutes(rg)

	marketHandler := &MarketHandler{registry: registry, logger: logger}
	marketHandler.RegisterRoutes(rg, authed)

	retirementsHandler := &RetirementsHandler{registry: registry, logger: logger}
	retirementsHandler.RegisterRoutes(rg, authed)

	if hub != nil {
		rg.GET("/ws", func(c *gin.Context) {
			if err := hub.HandleConnection(c.Writer, c.Request); err != nil {
				logger.Error("websocket upgrade failed", zap.Error(err))
			}
		})
	}
}

// respondError maps the core's typed failures onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, accounts.ErrNotAdmin),
		errors.Is(err, accounts.ErrUnauthorized),
		errors.Is(err, ledger.ErrUnauthorized),
		errors.Is(err, projects.ErrInvalidAuditor),
		errors.Is(err, retirement.ErrInvalidAuditor):
		status = http.StatusForbidden
	case errors.Is(err, accounts.ErrNotFound),
		errors.Is(err, projects.ErrNotFound),
		errors.Is(err, retirement.ErrNotFound),
		errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, accounts.ErrAlreadyRegistered),
		errors.Is(err, projects.ErrInvalidState),
		errors.Is(err, ledger.ErrTokenExists):
		status = http.StatusConflict
	case errors.Is(err, marketplace.ErrInsufficientFunds),
		errors.Is(err, payments.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, marketplace.ErrInsufficientBalance),
		errors.Is(err, marketplace.ErrNotHolder),
		errors.Is(err, marketplace.ErrNotListed),
		errors.Is(err, marketplace.ErrCostOverflow),
		errors.Is(err, payments.ErrAmountOverflow),
		errors.Is(err, accounts.ErrUnderflow),
		errors.Is(err, accounts.ErrOverflow),
		errors.Is(err, projects.ErrTokenSupplyInvalid),
		errors.Is(err, projects.ErrNotRegistered),
		errors.Is(err, ledger.ErrBurnExceedsSupply),
		errors.Is(err, ledger.ErrIndexOutOfBounds),
		errors.Is(err, retirement.ErrIndexOutOfBounds):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrNoCaller):
		status = http.StatusUnauthorized
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func caller(c *gin.Context) (string, bool) {
	addr, err := auth.CallerAddress(c)
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return addr, true
}
