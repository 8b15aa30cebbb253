// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"pyrometer-service/internal/config"
)

const defaultLogFile = "./logs/pyrometer-service.log"

// NewLogger builds the process logger. Output is stdout, stderr or a file
// path rotated by lumberjack.
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	sink, err := logSink(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	core := zapcore.NewCore(logEncoder(cfg.Format), sink, level)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func logEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "timestamp"
	ec.MessageKey = "message"
	ec.EncodeCaller = zapcore.ShortCallerEncoder

	if format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
		return zapcore.NewConsoleEncoder(ec)
	}

	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339Nano)
	return zapcore.NewJSONEncoder(ec)
}

func logSink(cfg *config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}

	path := cfg.Output
	if path == "" {
		path = defaultLogFile
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}), nil
}

// DeviceLogger tags entries with the pyrometer's identity and port
type DeviceLogger struct {
	*zap.Logger
}

// NewDeviceLogger creates a device-scoped logger. port may be empty before
// the first connect.
func NewDeviceLogger(baseLogger *zap.Logger, deviceID, model, port string) *DeviceLogger {
	return &DeviceLogger{Logger: baseLogger.With(
		zap.String("component", "device"),
		zap.String("device_id", deviceID),
		zap.String("model", model),
		zap.String("port", port),
	)}
}

// LogTransaction records one request/response exchange with its raw frames.
// Failures go out at warn level since the poller retries on its own.
func (dl *DeviceLogger) LogTransaction(operation string, request, response []byte, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.Binary("request", request),
		zap.Binary("response", response),
		zap.Int("response_len", len(response)),
		zap.Duration("duration", duration),
	}
	if err != nil {
		dl.Warn("Device transaction failed", append(fields, zap.Error(err))...)
		return
	}
	dl.Debug("Device transaction completed", fields...)
}

// LogConnection records a connect or disconnect attempt
func (dl *DeviceLogger) LogConnection(action string, success bool, err error) {
	if err != nil {
		dl.Error("Serial line "+action+" failed", zap.Error(err))
		return
	}
	dl.Info("Serial line "+action, zap.Bool("success", success))
}

// OperationLogger follows one journaled command from start to outcome
type OperationLogger struct {
	logger    *zap.Logger
	startTime time.Time
}

// NewOperationLogger creates a logger for a single command
func NewOperationLogger(baseLogger *zap.Logger, kind, operationID string) *OperationLogger {
	return &OperationLogger{
		logger: baseLogger.With(
			zap.String("component", "operation"),
			zap.String("kind", kind),
			zap.String("operation_id", operationID),
		),
		startTime: time.Now(),
	}
}

func (ol *OperationLogger) Start(fields ...zap.Field) {
	ol.logger.Info("Command started", fields...)
}

func (ol *OperationLogger) Success(fields ...zap.Field) {
	ol.logger.Info("Command completed",
		append([]zap.Field{zap.Duration("duration", time.Since(ol.startTime))}, fields...)...)
}

func (ol *OperationLogger) Error(err error, fields ...zap.Field) {
	ol.logger.Error("Command failed",
		append([]zap.Field{zap.Duration("duration", time.Since(ol.startTime)), zap.Error(err)}, fields...)...)
}

// ServiceLogger is the logger handed to services, handlers and middleware
type ServiceLogger struct {
	*zap.Logger
}

// NewServiceLogger creates a logger tagged with the service name
func NewServiceLogger(baseLogger *zap.Logger, serviceName string) *ServiceLogger {
	return &ServiceLogger{Logger: baseLogger.With(
		zap.String("component", "service"),
		zap.String("service", serviceName),
	)}
}

// LogServiceStart logs the version and effective configuration
func (sl *ServiceLogger) LogServiceStart(version string, config interface{}) {
	sl.Info("Service starting", zap.String("version", version), zap.Any("config", config))
}

// LogServiceStop logs why the process is going down
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping", zap.String("reason", reason))
}

// LogAPIRequest logs one HTTP request, raising the level for 4xx and 5xx
func (sl *ServiceLogger) LogAPIRequest(method, path, userAgent, clientIP string, statusCode int, duration time.Duration) {
	level := zapcore.InfoLevel
	switch {
	case statusCode >= 500:
		level = zapcore.ErrorLevel
	case statusCode >= 400:
		level = zapcore.WarnLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", statusCode),
			zap.Duration("duration", duration),
			zap.String("client_ip", clientIP),
			zap.String("user_agent", userAgent),
		)
	}
}

// LogError logs err at error level with extra fields
func LogError(logger *zap.Logger, message string, err error, fields ...zap.Field) {
	logger.Error(message, append([]zap.Field{zap.Error(err)}, fields...)...)
}

// CloseLogger flushes buffered log entries
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
