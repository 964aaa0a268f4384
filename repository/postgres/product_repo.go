package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/pkg/sessionid"
	"github.com/fastygo/catalog/repository"
)

var productColumns = []string{"id", "sku", "name", "description", "price", "created_at", "updated_at"}

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a Postgres-backed implementation of ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) repository.ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if !validID(id) {
		return nil, domain.ErrProductNotFound
	}
	query, args, err := psq.Select(productColumns...).From("products").Where("id = ?", id).ToSql()
	if err != nil {
		return nil, err
	}
	return scanProduct(r.pool.QueryRow(ctx, query, args...))
}

func (r *productRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, error) {
	sortBy := filter.SortBy
	if !sortBy.Valid() {
		sortBy = domain.SortByCreatedAt
	}
	direction := " ASC"
	if filter.Descending {
		direction = " DESC"
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// id breaks ties so pages stay stable across equal sort values.
	query, args, err := psq.Select(productColumns...).
		From("products").
		OrderBy(string(sortBy)+direction, "id"+direction).
		Limit(uint64(clampLimit(filter.Limit))).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := psq.Select("COUNT(*)").From("products").ToSql()
	if err != nil {
		return 0, err
	}
	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product == nil {
		return nil, domain.ErrInvalidPayload
	}
	if product.ID == "" {
		product.ID = sessionid.New().UUID().String()
	}

	const query = `
	INSERT INTO products (id, sku, name, description, price)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		product.ID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price,
	).Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return product, nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	if product == nil || product.ID == "" {
		return domain.ErrInvalidPayload
	}
	if !validID(product.ID) {
		return domain.ErrProductNotFound
	}

	const query = `
	UPDATE products
	SET sku = $2,
		name = $3,
		description = $4,
		price = $5,
		updated_at = NOW()
	WHERE id = $1
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		product.ID,
		product.SKU,
		product.Name,
		product.Description,
		product.Price,
	).Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.ErrProductNotFound
		case isUniqueViolation(err):
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrProductNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	if err := row.Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}
