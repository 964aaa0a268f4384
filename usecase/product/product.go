package product

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/pkg/sessionid"
	"github.com/fastygo/catalog/repository"
	"github.com/fastygo/catalog/usecase"
)

type UseCase struct {
	products repository.ProductRepository
	buffer   usecase.OperationBuffer
	logger   *zap.Logger
}

func New(products repository.ProductRepository, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		products: products,
		buffer:   buffer,
		logger:   logger,
	}
}

// ListProducts returns one page and the total number of products.
func (uc *UseCase) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int64, error) {
	var (
		items []domain.Product
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = uc.products.List(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = uc.products.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (uc *UseCase) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return uc.products.GetByID(ctx, id)
}

// CreateProduct assigns the id up front so a buffered create can still be
// addressed by the caller.
func (uc *UseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = sessionid.New().UUID().String()
	}
	created, err := uc.products.Create(ctx, product)
	if err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationCreate, product, err) {
			now := time.Now().UTC()
			product.CreatedAt, product.UpdatedAt = now, now
			return product, nil
		}
		return nil, err
	}
	return created, nil
}

func (uc *UseCase) UpdateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if err := uc.products.Update(ctx, product); err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationUpdate, product, err) {
			return product, nil
		}
		return nil, err
	}
	return product, nil
}

func (uc *UseCase) DeleteProduct(ctx context.Context, id string) error {
	if err := uc.products.Delete(ctx, id); err != nil {
		if uc.shouldBuffer(ctx, usecase.OperationDelete, &domain.Product{ID: id}, err) {
			return nil
		}
		return err
	}
	return nil
}

// shouldBuffer hands infrastructure failures to the write buffer. Domain
// errors such as not-found or conflict are final and go back to the caller.
func (uc *UseCase) shouldBuffer(ctx context.Context, operation string, product *domain.Product, cause error) bool {
	if uc.buffer == nil {
		return false
	}
	var dErr *domain.Error
	if errors.As(cause, &dErr) {
		return false
	}
	if err := uc.buffer.BufferProduct(ctx, operation, product); err != nil {
		uc.logger.Error("failed to buffer product operation",
			zap.String("operation", operation),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return false
	}
	uc.logger.Warn("product operation buffered",
		zap.String("operation", operation),
		zap.String("product_id", product.ID),
		zap.Error(cause))
	return true
}
