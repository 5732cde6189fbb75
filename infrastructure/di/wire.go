//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"tutormatch-backend/application/commands/bus"
	"tutormatch-backend/application/ports"
	querybus "tutormatch-backend/application/queries/bus"
	"tutormatch-backend/infrastructure/config"
	"tutormatch-backend/infrastructure/outbox"
	"tutormatch-backend/pkg/auth"
	"tutormatch-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Persistence *Persistence
	Publisher   ports.EventPublisher
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Relay       *outbox.Relay
	Validator   *auth.JWTValidator
	Cache       ports.Cache
	Metrics     *observability.Metrics
	Tracer      *observability.Tracer
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideMetrics,
	ProvideTracer,
	ProvideJWTValidator,
	ProvidePersistence,
	ProvideEventPublisher,
	ProvideRelay,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideQueryCache,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
