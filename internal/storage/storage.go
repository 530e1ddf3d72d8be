package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/config"
)

// ErrWrite marks failures to persist an artifact.
var ErrWrite = errors.New("artifact write failed")

// ErrInvalidRef is returned when a reference does not name a stored artifact.
var ErrInvalidRef = errors.New("invalid artifact reference")

// Store persists uploaded style images and removes them on rollback.
type Store interface {
	// Save writes payload under a generated name and returns that name.
	// Failures wrap ErrWrite.
	Save(ctx context.Context, key string, payload io.Reader, size int64, ext string) (string, error)
	// Delete removes a previously saved artifact.
	Delete(ctx context.Context, ref string) error
}

// Module provides the configured artifact store to the Fx graph.
var Module = fx.Provide(NewStore)

// NewStore builds the store selected by configuration (local or minio).
func NewStore(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case "local":
		store := NewLocal(cfg.Storage.LocalDir, NewNamer())
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := store.Prepare(); err != nil {
					return err
				}
				logger.Info("artifact store ready", zap.String("driver", "local"), zap.String("dir", cfg.Storage.LocalDir))
				return nil
			},
		})
		return store, nil
	case "minio":
		store, err := NewMinio(cfg.Storage.Minio, NewNamer())
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := store.EnsureBucket(ctx); err != nil {
					return err
				}
				logger.Info("artifact store ready", zap.String("driver", "minio"), zap.String("bucket", cfg.Storage.Minio.Bucket))
				return nil
			},
		})
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrWrite, op, err)
}
