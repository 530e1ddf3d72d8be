package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/database"
)

//go:embed sql/*.sql
var migrations embed.FS

// Module provides the migrator to Fx.
var Module = fx.Provide(New)

// Migrator applies the embedded schema migrations through a goose provider.
type Migrator struct {
	provider *goose.Provider
	logger   *zap.Logger
}

// Status describes one migration file and whether it has been applied.
type Status struct {
	Version int64
	Name    string
	Applied bool
}

// New constructs a migrator bound to the writer connection.
func New(cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Migrator, error) {
	dialect, err := gooseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	files, err := fs.Sub(migrations, "sql")
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect, conns.Writer.DB, files)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider, logger: logger}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	results, err := m.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if len(results) == 0 {
		m.logger.Info("no migrations to apply")
		return nil
	}

	version, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	m.logger.Info("migrations applied", zap.Int("count", len(results)), zap.Int64("version", version))
	return nil
}

// Down rolls back migrations. Steps <=0 defaults to 1; all=true rolls everything back.
func (m *Migrator) Down(ctx context.Context, steps int, all bool) error {
	if all {
		results, err := m.provider.DownTo(ctx, 0)
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		m.logger.Info("migrations rolled back", zap.String("mode", "all"), zap.Int("count", len(results)))
		return nil
	}

	if steps <= 0 {
		steps = 1
	}
	rolled := 0
	for ; rolled < steps; rolled++ {
		res, err := m.provider.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) || (err == nil && res == nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	}
	if rolled == 0 {
		m.logger.Info("no migrations to rollback")
		return nil
	}
	m.logger.Info("migrations rolled back", zap.Int("steps", rolled))
	return nil
}

// Status lists every known migration in version order.
func (m *Migrator) Status(ctx context.Context) ([]Status, error) {
	states, err := m.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	out := make([]Status, 0, len(states))
	for _, s := range states {
		out = append(out, Status{
			Version: s.Source.Version,
			Name:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

func gooseDialect(driver string) (goose.Dialect, error) {
	switch driver {
	case "postgres", "pgx":
		return goose.DialectPostgres, nil
	case "mysql":
		return goose.DialectMySQL, nil
	case "sqlite":
		return goose.DialectSQLite3, nil
	default:
		return "", fmt.Errorf("unsupported goose dialect for driver %s", driver)
	}
}
