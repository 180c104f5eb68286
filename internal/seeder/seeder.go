package seeder

import (
	"context"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/internal/database"
	"github.com/Additional-Code/storefront/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Catalog seeds sample products and variations if they are missing, so a local checkout
// can be priced from cart lines.
func (s *Seeder) Catalog(ctx context.Context) error {
	products := []entity.Product{
		{ID: 1, Name: "Taza esmaltada", Price: 5990, Stock: 40},
		{ID: 2, Name: "Polera algodón", Price: 12990, Stock: 25},
		{ID: 3, Name: "Mochila urbana", Price: 45990, Stock: 8},
	}
	variations := []entity.ProductVariation{
		{ID: 1, ProductID: 2, Name: "S", Price: 12990},
		{ID: 2, ProductID: 2, Name: "XL", Price: 14990},
		{ID: 3, ProductID: 3, Name: "Edición impermeable", Price: 52990},
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&products).Ignore().Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(&variations).Ignore().Exec(ctx); err != nil {
			return err
		}

		if s.logger != nil {
			s.logger.Info("seeded catalog",
				zap.Int("products", len(products)),
				zap.Int("variations", len(variations)),
			)
		}
		return nil
	})
}
