// internal/handler/errors.go
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pyrometer-service/internal/driver/optris"
	"pyrometer-service/internal/service"
	"pyrometer-service/internal/utils"
)

// deviceErrorStatus maps a device or command error to an HTTP status
func deviceErrorStatus(err error) (int, string) {
	var connectErr *optris.ConnectError

	switch {
	case errors.Is(err, service.ErrUnknownCommand),
		errors.Is(err, service.ErrInvalidPayload),
		errors.Is(err, service.ErrPortRequired),
		errors.Is(err, optris.ErrInvalidEmissivity):
		return http.StatusBadRequest, "Invalid command"
	case errors.Is(err, optris.ErrNotConnected):
		return http.StatusConflict, "Device not connected"
	case errors.Is(err, service.ErrAlreadyConnected):
		return http.StatusConflict, "Device already connected"
	case errors.As(err, &connectErr):
		return http.StatusBadGateway, "Failed to open serial port"
	case errors.Is(err, optris.ErrAckMismatch):
		return http.StatusBadGateway, "Device rejected command"
	case errors.Is(err, optris.ErrShortRead),
		errors.Is(err, optris.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Device did not respond"
	}
	return http.StatusInternalServerError, "Device command failed"
}

// respondDeviceError logs err and renders it with the mapped status
func respondDeviceError(c *gin.Context, logger *utils.ServiceLogger, action string, err error) {
	status, message := deviceErrorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(action+" failed", zap.Error(err))
	} else {
		logger.Warn(action+" failed", zap.Error(err), zap.Int("status", status))
	}
	utils.ErrorResponse(c, status, message, err)
}
