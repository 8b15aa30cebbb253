// internal/repository/interfaces.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pyrometer-service/internal/model"
)

// ErrOperationNotFound is returned when no journal entry has the given id
var ErrOperationNotFound = errors.New("operation not found")

// OperationRepository defines the foreground command journal
type OperationRepository interface {
	// CRUD operations
	Create(ctx context.Context, operation *model.DeviceOperation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.DeviceOperation, error)
	Update(ctx context.Context, operation *model.DeviceOperation) error

	// Listing and filtering
	List(ctx context.Context, filter *OperationFilter) ([]*model.DeviceOperation, int, error)

	// Analytics and reporting
	GetOperationStats(ctx context.Context, filter *OperationStatsFilter) (*OperationStats, error)

	// Cleanup
	DeleteOldOperations(ctx context.Context, olderThan time.Time) (int64, error)
}

// Filter structures

// OperationFilter represents operation listing filters
type OperationFilter struct {
	DeviceID  *string                `json:"device_id,omitempty"`
	Kind      *model.CommandKind     `json:"kind,omitempty"`
	Status    *model.OperationStatus `json:"status,omitempty"`
	StartDate *time.Time             `json:"start_date,omitempty"`
	EndDate   *time.Time             `json:"end_date,omitempty"`
	Page      int                    `json:"page"`
	PerPage   int                    `json:"per_page"`
	SortBy    string                 `json:"sort_by"`
	SortOrder string                 `json:"sort_order"`
}

// Normalize fills in paging defaults
func (f *OperationFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 || f.PerPage > 500 {
		f.PerPage = 50
	}
	if _, ok := sortableColumns[f.SortBy]; !ok {
		f.SortBy = "created_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

// sortableColumns are the columns a listing may be ordered by
var sortableColumns = map[string]struct{}{
	"created_at":  {},
	"started_at":  {},
	"duration_ms": {},
	"kind":        {},
	"status":      {},
}

// OperationStatsFilter represents operation statistics filters
type OperationStatsFilter struct {
	DeviceID  *string    `json:"device_id,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Statistics structures

// OperationStats represents operation statistics
type OperationStats struct {
	TotalOperations int                           `json:"total_operations"`
	SuccessfulOps   int                           `json:"successful_operations"`
	FailedOps       int                           `json:"failed_operations"`
	PendingOps      int                           `json:"pending_operations"`
	AvgDuration     time.Duration                 `json:"average_duration"`
	ByKind          map[model.CommandKind]int     `json:"by_kind"`
	ByStatus        map[model.OperationStatus]int `json:"by_status"`
}
