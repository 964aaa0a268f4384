package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/internal/infrastructure/buffer"
	"github.com/fastygo/catalog/usecase"
)

// BufferBridge adapts the processor to the use case port.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) BufferProduct(ctx context.Context, operation string, product *domain.Product) error {
	if b.processor == nil || product == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(product)
	if err != nil {
		return err
	}
	priority := 3
	if operation == usecase.OperationDelete {
		// deletes run after creates/updates buffered in the same window
		priority = 4
	}
	item := buffer.Item{
		Entity:    buffer.EntityProduct,
		Operation: operation,
		TargetID:  product.ID,
		Data:      payload,
		Priority:  priority,
	}
	return b.processor.BufferOperation(ctx, item)
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
