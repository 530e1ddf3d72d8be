// Package testutil builds throwaway infrastructure for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/database"
	"github.com/Additional-Code/stitchbook/internal/migration"
)

var dbSeq atomic.Int64

// SQLite returns migrated connections to a private in-memory database.
func SQLite(t testing.TB) *database.Connections {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.Config{Database: config.Database{
		Driver:    "sqlite",
		WriterDSN: fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1)),
	}}

	conns, err := database.Open(cfg.Database)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conns.Close() })

	mig, err := migration.New(cfg, conns, zap.NewNop())
	if err != nil {
		t.Fatalf("migrator: %v", err)
	}
	if err := mig.Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conns
}
