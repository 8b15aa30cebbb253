// internal/repository/operation_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pyrometer-service/internal/database"
	"pyrometer-service/internal/model"
)

const operationColumns = `id, device_id, kind, payload, status, started_at,
			   completed_at, duration_ms, error_message, result, created_at`

// operationRepository implements OperationRepository on PostgreSQL
type operationRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewOperationRepository creates a new operation repository
func NewOperationRepository(db *database.DB, logger *zap.Logger) OperationRepository {
	return &operationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new operation
func (r *operationRepository) Create(ctx context.Context, operation *model.DeviceOperation) error {
	query := `
		INSERT INTO device_operations (
			id, device_id, kind, payload, status, started_at, result, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if operation.CreatedAt.IsZero() {
		operation.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		operation.ID, operation.DeviceID, operation.Kind, operation.Payload,
		operation.Status, operation.StartedAt, operation.Result, operation.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create operation", zap.Error(err))
		return fmt.Errorf("failed to create operation: %w", err)
	}

	return nil
}

// GetByID retrieves an operation by ID
func (r *operationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DeviceOperation, error) {
	query := `SELECT ` + operationColumns + ` FROM device_operations WHERE id = $1`

	operation, err := scanOperation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
		}
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}

	return operation, nil
}

// Update updates an existing operation
func (r *operationRepository) Update(ctx context.Context, operation *model.DeviceOperation) error {
	query := `
		UPDATE device_operations SET
			status = $2, completed_at = $3, duration_ms = $4,
			error_message = $5, result = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		operation.ID, operation.Status, operation.CompletedAt,
		operation.DurationMs, operation.ErrorMessage, operation.Result,
	)

	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, operation.ID)
	}

	return nil
}

// List retrieves operations with filtering and pagination
func (r *operationRepository) List(ctx context.Context, filter *OperationFilter) ([]*model.DeviceOperation, int, error) {
	filter.Normalize()
	whereClause, args := buildOperationWhere(filter.DeviceID, filter.Kind, filter.Status, filter.StartDate, filter.EndDate)

	// Count total records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM device_operations %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count operations: %w", err)
	}

	// Build main query with pagination
	offset := (filter.Page - 1) * filter.PerPage
	query := fmt.Sprintf(`
		SELECT %s
		FROM device_operations %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, operationColumns, whereClause, filter.SortBy, strings.ToUpper(filter.SortOrder), len(args)+1, len(args)+2)

	args = append(args, filter.PerPage, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	operations := []*model.DeviceOperation{}
	for rows.Next() {
		operation, err := scanOperation(rows)
		if err != nil {
			r.logger.Error("Failed to scan operation row", zap.Error(err))
			continue
		}
		operations = append(operations, operation)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return operations, total, nil
}

// GetOperationStats retrieves operation statistics
func (r *operationRepository) GetOperationStats(ctx context.Context, filter *OperationStatsFilter) (*OperationStats, error) {
	whereClause, args := buildOperationWhere(filter.DeviceID, nil, nil, filter.StartDate, filter.EndDate)

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) as total_operations,
			COUNT(CASE WHEN status = 'SUCCESS' THEN 1 END) as successful_ops,
			COUNT(CASE WHEN status IN ('FAILED', 'TIMEOUT') THEN 1 END) as failed_ops,
			COUNT(CASE WHEN status = 'PROCESSING' THEN 1 END) as pending_ops,
			AVG(duration_ms) as avg_duration_ms
		FROM device_operations %s
	`, whereClause)

	stats := &OperationStats{
		ByKind:   make(map[model.CommandKind]int),
		ByStatus: make(map[model.OperationStatus]int),
	}

	var avgDurationMs sql.NullFloat64
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalOperations,
		&stats.SuccessfulOps,
		&stats.FailedOps,
		&stats.PendingOps,
		&avgDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get operation stats: %w", err)
	}

	if avgDurationMs.Valid {
		stats.AvgDuration = time.Duration(avgDurationMs.Float64 * float64(time.Millisecond))
	}

	groupQuery := fmt.Sprintf(`
		SELECT kind, status, COUNT(*)
		FROM device_operations %s
		GROUP BY kind, status
	`, whereClause)

	rows, err := r.db.QueryContext(ctx, groupQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group operation stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind model.CommandKind
		var status model.OperationStatus
		var count int
		if err := rows.Scan(&kind, &status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan operation stats: %w", err)
		}
		stats.ByKind[kind] += count
		stats.ByStatus[status] += count
	}

	return stats, rows.Err()
}

// DeleteOldOperations removes old operation records
func (r *operationRepository) DeleteOldOperations(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM device_operations WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old operations: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.Info("Deleted old operations",
		zap.Int64("rows_deleted", rowsAffected),
		zap.Time("older_than", olderThan),
	)

	return rowsAffected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row rowScanner) (*model.DeviceOperation, error) {
	operation := &model.DeviceOperation{}
	err := row.Scan(
		&operation.ID, &operation.DeviceID, &operation.Kind, &operation.Payload,
		&operation.Status, &operation.StartedAt, &operation.CompletedAt,
		&operation.DurationMs, &operation.ErrorMessage, &operation.Result,
		&operation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return operation, nil
}

// buildOperationWhere builds a WHERE clause with numbered placeholders
func buildOperationWhere(deviceID *string, kind *model.CommandKind, status *model.OperationStatus, start, end *time.Time) (string, []interface{}) {
	whereConditions := []string{}
	args := []interface{}{}

	add := func(condition string, value interface{}) {
		args = append(args, value)
		whereConditions = append(whereConditions, fmt.Sprintf(condition, len(args)))
	}

	if deviceID != nil {
		add("device_id = $%d", *deviceID)
	}
	if kind != nil {
		add("kind = $%d", string(*kind))
	}
	if status != nil {
		add("status = $%d", string(*status))
	}
	if start != nil {
		add("created_at >= $%d", *start)
	}
	if end != nil {
		add("created_at <= $%d", *end)
	}

	if len(whereConditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(whereConditions, " AND "), args
}
