package domain

import "time"

// Product is a catalog entry. Pricing rules live outside this service.
type Product struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductSort lists the columns a listing can be ordered by.
type ProductSort string

const (
	SortByName      ProductSort = "name"
	SortByPrice     ProductSort = "price"
	SortByCreatedAt ProductSort = "created_at"
)

// Valid reports whether s names a sortable column.
func (s ProductSort) Valid() bool {
	switch s {
	case SortByName, SortByPrice, SortByCreatedAt:
		return true
	}
	return false
}
