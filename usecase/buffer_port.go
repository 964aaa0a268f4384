package usecase

import (
	"context"

	"github.com/fastygo/catalog/domain"
)

// Buffered write operations.
const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// OperationBuffer abstracts the buffer processor so use cases stay storage-agnostic.
type OperationBuffer interface {
	BufferProduct(ctx context.Context, operation string, product *domain.Product) error
}
