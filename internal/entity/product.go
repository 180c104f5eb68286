package entity

import "github.com/uptrace/bun"

// Product is the catalog row consulted when pricing a cart.
type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID    int64  `bun:",pk,autoincrement"`
	Name  string `bun:"name,notnull"`
	Price int64  `bun:"price,notnull"`
	Stock int    `bun:"stock,notnull"`
}

// ProductVariation overrides the product price for a specific variant.
type ProductVariation struct {
	bun.BaseModel `bun:"table:product_variations"`

	ID        int64  `bun:",pk,autoincrement"`
	ProductID int64  `bun:"product_id,notnull"`
	Name      string `bun:"name,notnull"`
	Price     int64  `bun:"price,notnull"`
}
