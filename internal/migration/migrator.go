package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/storefront/db/migrations"
	"github.com/Additional-Code/storefront/internal/config"
	"github.com/Additional-Code/storefront/internal/database"
)

// Module provides the migrator to Fx.
var Module = fx.Provide(New)

// goose keeps dialect and filesystem in package state.
var gooseMu sync.Mutex

// Migrator wraps goose operations over the embedded per-dialect migrations.
type Migrator struct {
	db      *bun.DB
	dialect string
	dir     string
	logger  *zap.Logger
}

// New constructs a goose-backed migrator.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	dialect, dir, err := gooseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	return &Migrator{
		db:      conns.Writer,
		dialect: dialect,
		dir:     dir,
		logger:  logger,
	}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	err := withGoose(m.dialect, func() error {
		return goose.UpContext(ctx, m.db.DB, m.dir)
	})
	if err != nil {
		if isNoMigrationErr(err) {
			m.logger.Info("no migrations to apply")

			return nil
		}
		return err
	}

	m.logger.Info("migrations applied", zap.String("dialect", m.dialect))

	return nil
}

// Down rolls back migrations. Steps <=0 defaults to 1; all=true rolls everything back.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		err := withGoose(m.dialect, func() error {
			return goose.DownToContext(ctx, m.db.DB, m.dir, 0)
		})
		if err != nil {
			if isNoMigrationErr(err) {
				m.logger.Info("no migrations to rollback")

				return nil
			}
			return err
		}
		m.logger.Info("migrations rolled back", zap.String("mode", "all"))

		return nil
	}

	if steps <= 0 {
		steps = 1
	}

	for i := 0; i < steps; i++ {
		err := withGoose(m.dialect, func() error {
			return goose.DownContext(ctx, m.db.DB, m.dir)
		})
		if err != nil {
			if isNoMigrationErr(err) {
				m.logger.Info("no migrations to rollback")

				return nil
			}
			return err
		}
	}

	m.logger.Info("migrations rolled back", zap.Int("steps", steps))

	return nil
}

// Apply runs every migration for driver against db. Tests use it to build a schema.
func Apply(ctx context.Context, db *sql.DB, driver string) error {
	dialect, dir, err := gooseDialect(driver)
	if err != nil {
		return err
	}
	err = withGoose(dialect, func() error {
		return goose.UpContext(ctx, db, dir)
	})
	if isNoMigrationErr(err) {
		return nil
	}
	return err
}

func withGoose(dialect string, fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return fn()
}

func gooseDialect(driver string) (dialect, dir string, err error) {
	switch driver {
	case "postgres", "pg":
		return "postgres", "postgres", nil
	case "mysql":
		return "mysql", "mysql", nil
	case "sqlite", "sqlite3":
		return "sqlite3", "sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}

func isNoMigrationErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoMigrationFiles) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "no migrations")
}
