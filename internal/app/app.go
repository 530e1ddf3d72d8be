package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/stitchbook/internal/cache"
	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/database"
	"github.com/Additional-Code/stitchbook/internal/logger"
	"github.com/Additional-Code/stitchbook/internal/messaging"
	"github.com/Additional-Code/stitchbook/internal/observability"
	repositoryorder "github.com/Additional-Code/stitchbook/internal/repository/order"
	grpcserver "github.com/Additional-Code/stitchbook/internal/server/grpc"
	httpserver "github.com/Additional-Code/stitchbook/internal/server/http"
	serviceorder "github.com/Additional-Code/stitchbook/internal/service/order"
	"github.com/Additional-Code/stitchbook/internal/storage"
	transporthttp "github.com/Additional-Code/stitchbook/internal/transport/http"
	"github.com/Additional-Code/stitchbook/internal/worker"
	workerorder "github.com/Additional-Code/stitchbook/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	logger.Module,
	database.Module,
	cache.Module,
	messaging.Module,
	observability.Module,
	storage.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP and gRPC servers on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
