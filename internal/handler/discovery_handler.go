// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pyrometer-service/internal/service"
	"pyrometer-service/internal/utils"
)

// DiscoveryHandler handles serial port listing requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// RegisterRoutes registers discovery routes
func (h *DiscoveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ports", h.ListPorts)
}

// ListPorts lists serial ports on the host
// @Summary List serial ports
// @Description List serial ports a pyrometer can be connected to, with USB adapter details when known
// @Tags Discovery
// @Produce json
// @Param type query string false "Scanner type" Enums(all, serial) default(all)
// @Success 200 {object} utils.APIResponse{data=object{ports_found=int,ports=[]discovery.DiscoveredPort}} "Port scan completed"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /ports [get]
func (h *DiscoveryHandler) ListPorts(c *gin.Context) {
	scanType := c.DefaultQuery("type", "all")

	ports, err := h.discoveryService.ListPorts(c.Request.Context(), scanType)
	if err != nil {
		h.logger.Error("Failed to list ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Port scan completed", gin.H{
		"ports_found": len(ports),
		"ports":       ports,
	})
}
