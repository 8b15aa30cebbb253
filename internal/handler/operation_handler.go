// internal/handler/operation_handler.go
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pyrometer-service/internal/model"
	"pyrometer-service/internal/repository"
	"pyrometer-service/internal/service"
	"pyrometer-service/internal/utils"
)

// OperationHandler handles command journal HTTP requests
type OperationHandler struct {
	operationService *service.OperationService
	logger           *utils.ServiceLogger
}

// NewOperationHandler creates a new operation handler
func NewOperationHandler(operationService *service.OperationService, logger *zap.Logger) *OperationHandler {
	return &OperationHandler{
		operationService: operationService,
		logger:           utils.NewServiceLogger(logger, "operation-handler"),
	}
}

// RegisterRoutes registers operation-related routes
func (h *OperationHandler) RegisterRoutes(router *gin.RouterGroup) {
	operations := router.Group("/operations")
	{
		operations.GET("", h.ListOperations)
		operations.GET("/stats", h.GetOperationStats)
		operations.GET("/:id", h.GetOperation)
	}
}

// GetOperation retrieves a journaled command
// @Summary Get operation details
// @Description Get a journaled command by operation ID
// @Tags Operations
// @Produce json
// @Param id path string true "Operation ID"
// @Success 200 {object} utils.APIResponse{data=model.DeviceOperation} "Operation retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid operation ID"
// @Failure 404 {object} utils.APIResponse "Operation not found"
// @Router /operations/{id} [get]
func (h *OperationHandler) GetOperation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid operation ID", err)
		return
	}

	operation, err := h.operationService.GetOperation(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOperationNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Operation not found", err)
			return
		}
		h.logger.Error("Failed to get operation", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get operation", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Operation retrieved successfully", operation)
}

// ListOperations lists journaled commands
// @Summary List operations
// @Description Get journaled commands with filtering and pagination
// @Tags Operations
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param device_id query string false "Filter by device ID"
// @Param kind query string false "Filter by command" Enums(serial_number, target_temperature, head_temperature, current_target_temperature, get_emissivity, set_emissivity, get_laser, set_laser, toggle_laser)
// @Param status query string false "Filter by status" Enums(PROCESSING, SUCCESS, FAILED, TIMEOUT)
// @Param start_date query string false "Start date filter (RFC3339)"
// @Param end_date query string false "End date filter (RFC3339)"
// @Param sort_by query string false "Sort by field" Enums(created_at, started_at, duration_ms, kind, status) default(created_at)
// @Param sort_order query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} utils.APIResponse{data=object{operations=[]model.DeviceOperation,pagination=service.PaginationResult}} "Operations retrieved successfully"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /operations [get]
func (h *OperationHandler) ListOperations(c *gin.Context) {
	filter := &service.OperationFilter{
		Page:      1,
		PerPage:   20,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	// Parse pagination
	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if perPage := c.Query("per_page"); perPage != "" {
		if pp, err := strconv.Atoi(perPage); err == nil && pp > 0 && pp <= 100 {
			filter.PerPage = pp
		}
	}

	// Parse filters
	if deviceID := c.Query("device_id"); deviceID != "" {
		filter.DeviceID = &deviceID
	}
	if kind := c.Query("kind"); kind != "" {
		k := model.CommandKind(kind)
		if !k.IsValid() {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid command kind", nil)
			return
		}
		filter.Kind = &k
	}
	if status := c.Query("status"); status != "" {
		s := model.OperationStatus(status)
		filter.Status = &s
	}
	filter.StartDate = parseTimeQuery(c, "start_date")
	filter.EndDate = parseTimeQuery(c, "end_date")

	operations, pagination, err := h.operationService.ListOperations(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list operations", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list operations", err)
		return
	}

	response := gin.H{
		"operations": operations,
		"pagination": pagination,
	}

	utils.SuccessResponse(c, http.StatusOK, "Operations retrieved successfully", response)
}

// GetOperationStats summarizes the journal
// @Summary Operation statistics
// @Description Count journaled commands by kind and status
// @Tags Operations
// @Produce json
// @Param device_id query string false "Filter by device ID"
// @Param start_date query string false "Start date filter (RFC3339)"
// @Param end_date query string false "End date filter (RFC3339)"
// @Success 200 {object} utils.APIResponse{data=repository.OperationStats} "Operation statistics retrieved successfully"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /operations/stats [get]
func (h *OperationHandler) GetOperationStats(c *gin.Context) {
	filter := &repository.OperationStatsFilter{
		StartDate: parseTimeQuery(c, "start_date"),
		EndDate:   parseTimeQuery(c, "end_date"),
	}
	if deviceID := c.Query("device_id"); deviceID != "" {
		filter.DeviceID = &deviceID
	}

	stats, err := h.operationService.GetOperationStats(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to get operation stats", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get operation stats", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Operation statistics retrieved successfully", stats)
}

func parseTimeQuery(c *gin.Context, key string) *time.Time {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	date, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &date
}
