// Package catalog owns the item aggregate. The stock column is mutated only
// through the transactional helpers consumed by the stock movement processor;
// catalog field updates can never touch it.
package catalog

import "time"

// Item is a catalog entry with its current stock level.
type Item struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	CostPrice   int64     `json:"cost_price"`
	Stock       int64     `json:"stock"`
	Photo       string    `json:"photo"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListFilter narrows item listings. Query matches name or code.
type ListFilter struct {
	Query    string
	Category string
	Limit    int
	Offset   int
}
