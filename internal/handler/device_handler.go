// internal/handler/device_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pyrometer-service/internal/model"
	"pyrometer-service/internal/service"
	"pyrometer-service/internal/utils"
)

// DeviceHandler handles pyrometer HTTP requests
type DeviceHandler struct {
	pyrometerService *service.PyrometerService
	logger           *utils.ServiceLogger
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(pyrometerService *service.PyrometerService, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		pyrometerService: pyrometerService,
		logger:           utils.NewServiceLogger(logger, "device-handler"),
	}
}

// RegisterRoutes registers device-related routes
func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	device := router.Group("/device")
	{
		device.POST("/connect", h.Connect)
		device.POST("/disconnect", h.Disconnect)
		device.GET("/status", h.GetStatus)
		device.GET("/temperature", h.GetTemperature)
		device.POST("/commands", h.IssueCommand)

		device.GET("/emissivity", h.GetEmissivity)
		device.PUT("/emissivity", h.SetEmissivity)
		device.GET("/laser", h.GetLaser)
		device.PUT("/laser", h.SetLaser)
		device.POST("/laser/toggle", h.ToggleLaser)
	}
}

// Connect opens the serial connection
// @Summary Connect to the pyrometer
// @Description Open the serial port and start temperature polling. Without a port the configured one is used.
// @Tags Device
// @Accept json
// @Produce json
// @Param request body ConnectRequest false "Serial port"
// @Success 200 {object} utils.APIResponse{data=service.DeviceStatusResponse} "Device connected successfully"
// @Failure 400 {object} utils.APIResponse "No port given"
// @Failure 409 {object} utils.APIResponse "Already connected to another port"
// @Failure 502 {object} utils.APIResponse "Port could not be opened"
// @Router /device/connect [post]
func (h *DeviceHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.pyrometerService.Connect(c.Request.Context(), req.Port); err != nil {
		respondDeviceError(c, h.logger, "Connect", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device connected successfully", h.pyrometerService.Status())
}

// Disconnect closes the serial connection
// @Summary Disconnect from the pyrometer
// @Description Stop polling and close the serial port
// @Tags Device
// @Produce json
// @Success 200 {object} utils.APIResponse "Device disconnected successfully"
// @Failure 500 {object} utils.APIResponse "Disconnection failed"
// @Router /device/disconnect [post]
func (h *DeviceHandler) Disconnect(c *gin.Context) {
	if err := h.pyrometerService.Disconnect(c.Request.Context()); err != nil {
		respondDeviceError(c, h.logger, "Disconnect", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device disconnected successfully", gin.H{
		"device_id": h.pyrometerService.DeviceID(),
	})
}

// GetStatus returns the device status
// @Summary Get device status
// @Description Connection state, poller state, health metrics and last reading
// @Tags Device
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.DeviceStatusResponse} "Device status retrieved successfully"
// @Router /device/status [get]
func (h *DeviceHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Device status retrieved successfully", h.pyrometerService.Status())
}

// GetTemperature returns the last polled temperature
// @Summary Get last temperature sample
// @Description Last good target temperature taken by the poller
// @Tags Device
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.TemperatureReading} "Temperature retrieved successfully"
// @Failure 404 {object} utils.APIResponse "No sample taken yet"
// @Router /device/temperature [get]
func (h *DeviceHandler) GetTemperature(c *gin.Context) {
	reading, ok := h.pyrometerService.LastReading()
	if !ok {
		utils.ErrorResponse(c, http.StatusNotFound, "No temperature sample yet", nil)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Temperature retrieved successfully", reading)
}

// IssueCommand runs a foreground command
// @Summary Issue a device command
// @Description Run one command with polling paused. The outcome is journaled.
// @Tags Device
// @Accept json
// @Produce json
// @Param request body CommandRequest true "Command"
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Command executed successfully"
// @Failure 400 {object} utils.APIResponse "Invalid command"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Failure 502 {object} utils.APIResponse "Device rejected command"
// @Failure 504 {object} utils.APIResponse "Device did not respond"
// @Router /device/commands [post]
func (h *DeviceHandler) IssueCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.runCommand(c, req.Kind, req.Payload)
}

// GetEmissivity reads the emissivity
// @Summary Get emissivity
// @Tags Device
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Command executed successfully"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Failure 504 {object} utils.APIResponse "Device did not respond"
// @Router /device/emissivity [get]
func (h *DeviceHandler) GetEmissivity(c *gin.Context) {
	h.runCommand(c, model.CommandGetEmissivity, nil)
}

// SetEmissivity writes the emissivity
// @Summary Set emissivity
// @Tags Device
// @Accept json
// @Produce json
// @Param request body EmissivityRequest true "Emissivity between 0 and 1"
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Command executed successfully"
// @Failure 400 {object} utils.APIResponse "Invalid emissivity"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Failure 502 {object} utils.APIResponse "Device rejected command"
// @Router /device/emissivity [put]
func (h *DeviceHandler) SetEmissivity(c *gin.Context) {
	var req EmissivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.runCommand(c, model.CommandSetEmissivity, model.JSONObject{"value": *req.Value})
}

// GetLaser reads the laser state
// @Summary Get laser state
// @Tags Device
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Command executed successfully"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Router /device/laser [get]
func (h *DeviceHandler) GetLaser(c *gin.Context) {
	h.runCommand(c, model.CommandGetLaser, nil)
}

// SetLaser switches the laser
// @Summary Set laser state
// @Tags Device
// @Accept json
// @Produce json
// @Param request body LaserRequest true "Laser state"
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Command executed successfully"
// @Failure 400 {object} utils.APIResponse "Invalid request body"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Failure 502 {object} utils.APIResponse "Device rejected command"
// @Router /device/laser [put]
func (h *DeviceHandler) SetLaser(c *gin.Context) {
	var req LaserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.runCommand(c, model.CommandSetLaser, model.JSONObject{"on": *req.On})
}

// ToggleLaser inverts the laser state
// @Summary Toggle laser
// @Tags Device
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.CommandResult} "Command executed successfully"
// @Failure 409 {object} utils.APIResponse "Device not connected"
// @Router /device/laser/toggle [post]
func (h *DeviceHandler) ToggleLaser(c *gin.Context) {
	h.runCommand(c, model.CommandToggleLaser, nil)
}

func (h *DeviceHandler) runCommand(c *gin.Context, kind model.CommandKind, payload model.JSONObject) {
	result, err := h.pyrometerService.IssueCommand(c.Request.Context(), kind, payload)
	if err != nil {
		respondDeviceError(c, h.logger, string(kind), err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Command executed successfully", result)
}

// DTOs for Device Handler

// ConnectRequest represents a connect request
type ConnectRequest struct {
	Port string `json:"port" example:"/dev/ttyUSB0"`
}

// CommandRequest represents a foreground command
type CommandRequest struct {
	Kind    model.CommandKind `json:"kind" binding:"required" example:"set_emissivity"`
	Payload model.JSONObject  `json:"payload" swaggertype:"object"`
}

// EmissivityRequest represents an emissivity write
type EmissivityRequest struct {
	Value *float64 `json:"value" binding:"required" example:"0.95"`
}

// LaserRequest represents a laser switch
type LaserRequest struct {
	On *bool `json:"on" binding:"required"`
}
