// internal/repository/memory_operation_repository.go
package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pyrometer-service/internal/model"
)

// memoryOperationRepository keeps the journal in process memory when no
// database is configured
type memoryOperationRepository struct {
	mu         sync.RWMutex
	operations map[uuid.UUID]*model.DeviceOperation
}

// NewMemoryOperationRepository creates an in-memory operation repository
func NewMemoryOperationRepository() OperationRepository {
	return &memoryOperationRepository{
		operations: make(map[uuid.UUID]*model.DeviceOperation),
	}
}

func cloneOperation(op *model.DeviceOperation) *model.DeviceOperation {
	c := *op
	return &c
}

// Create stores a new operation
func (r *memoryOperationRepository) Create(ctx context.Context, operation *model.DeviceOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.operations[operation.ID]; exists {
		return fmt.Errorf("failed to create operation: duplicate id %s", operation.ID)
	}
	if operation.CreatedAt.IsZero() {
		operation.CreatedAt = time.Now()
	}
	r.operations[operation.ID] = cloneOperation(operation)
	return nil
}

// GetByID retrieves an operation by ID
func (r *memoryOperationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.DeviceOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	op, ok := r.operations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
	}
	return cloneOperation(op), nil
}

// Update replaces the completion fields of an operation
func (r *memoryOperationRepository) Update(ctx context.Context, operation *model.DeviceOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.operations[operation.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOperationNotFound, operation.ID)
	}
	existing.Status = operation.Status
	existing.CompletedAt = operation.CompletedAt
	existing.DurationMs = operation.DurationMs
	existing.ErrorMessage = operation.ErrorMessage
	existing.Result = operation.Result
	return nil
}

func (r *memoryOperationRepository) matching(deviceID *string, kind *model.CommandKind, status *model.OperationStatus, start, end *time.Time) []*model.DeviceOperation {
	out := []*model.DeviceOperation{}
	for _, op := range r.operations {
		if deviceID != nil && op.DeviceID != *deviceID {
			continue
		}
		if kind != nil && op.Kind != *kind {
			continue
		}
		if status != nil && op.Status != *status {
			continue
		}
		if start != nil && op.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && op.CreatedAt.After(*end) {
			continue
		}
		out = append(out, op)
	}
	return out
}

// List retrieves operations with filtering and pagination
func (r *memoryOperationRepository) List(ctx context.Context, filter *OperationFilter) ([]*model.DeviceOperation, int, error) {
	filter.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := r.matching(filter.DeviceID, filter.Kind, filter.Status, filter.StartDate, filter.EndDate)
	less := operationLess(filter.SortBy)
	sort.SliceStable(ops, func(i, j int) bool {
		if filter.SortOrder == "asc" {
			return less(ops[i], ops[j])
		}
		return less(ops[j], ops[i])
	})

	total := len(ops)
	from := (filter.Page - 1) * filter.PerPage
	if from > total {
		from = total
	}
	to := from + filter.PerPage
	if to > total {
		to = total
	}

	page := make([]*model.DeviceOperation, 0, to-from)
	for _, op := range ops[from:to] {
		page = append(page, cloneOperation(op))
	}
	return page, total, nil
}

func operationLess(column string) func(a, b *model.DeviceOperation) bool {
	switch column {
	case "started_at":
		return func(a, b *model.DeviceOperation) bool { return a.StartedAt.Before(b.StartedAt) }
	case "duration_ms":
		return func(a, b *model.DeviceOperation) bool { return durationOf(a) < durationOf(b) }
	case "kind":
		return func(a, b *model.DeviceOperation) bool { return a.Kind < b.Kind }
	case "status":
		return func(a, b *model.DeviceOperation) bool { return a.Status < b.Status }
	default:
		return func(a, b *model.DeviceOperation) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func durationOf(op *model.DeviceOperation) int {
	if op.DurationMs == nil {
		return 0
	}
	return *op.DurationMs
}

// GetOperationStats retrieves operation statistics
func (r *memoryOperationRepository) GetOperationStats(ctx context.Context, filter *OperationStatsFilter) (*OperationStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &OperationStats{
		ByKind:   make(map[model.CommandKind]int),
		ByStatus: make(map[model.OperationStatus]int),
	}

	var totalMs, timed int
	for _, op := range r.matching(filter.DeviceID, nil, nil, filter.StartDate, filter.EndDate) {
		stats.TotalOperations++
		stats.ByKind[op.Kind]++
		stats.ByStatus[op.Status]++

		switch op.Status {
		case model.OperationStatusSuccess:
			stats.SuccessfulOps++
		case model.OperationStatusFailed, model.OperationStatusTimeout:
			stats.FailedOps++
		case model.OperationStatusProcessing:
			stats.PendingOps++
		}
		if op.DurationMs != nil {
			totalMs += *op.DurationMs
			timed++
		}
	}

	if timed > 0 {
		stats.AvgDuration = time.Duration(float64(totalMs) / float64(timed) * float64(time.Millisecond))
	}
	return stats, nil
}

// DeleteOldOperations removes operations created before olderThan
func (r *memoryOperationRepository) DeleteOldOperations(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, op := range r.operations {
		if op.CreatedAt.Before(olderThan) {
			delete(r.operations, id)
			deleted++
		}
	}
	return deleted, nil
}
