package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	"github.com/Additional-Code/storefront/internal/database"
	"github.com/Additional-Code/storefront/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/storefront/repository/catalog")

// ErrNotFound is returned when a product or variation does not exist.
var ErrNotFound = errors.New("catalog item not found")

// Module provides the catalog repository to Fx.
var Module = fx.Provide(NewRepository)

// Repository reads catalog prices from the read replica.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a catalog repository.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// Price returns the unit price for a product, or for one of its variations when
// variationID is non-zero.
func (r *Repository) Price(ctx context.Context, productID, variationID int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.Price", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int64("product.variation_id", variationID),
	))
	defer span.End()

	var (
		price int64
		err   error
	)
	if variationID != 0 {
		err = r.reader.NewSelect().
			Model((*entity.ProductVariation)(nil)).
			Column("price").
			Where("id = ?", variationID).
			Where("product_id = ?", productID).
			Scan(ctx, &price)
	} else {
		err = r.reader.NewSelect().
			Model((*entity.Product)(nil)).
			Column("price").
			Where("id = ?", productID).
			Scan(ctx, &price)
	}
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return 0, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return 0, err
	}
	return price, nil
}
