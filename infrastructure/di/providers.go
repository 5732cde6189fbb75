package di

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tutormatch-backend/application/commands"
	"tutormatch-backend/application/commands/bus"
	commandhandlers "tutormatch-backend/application/commands/handlers"
	"tutormatch-backend/application/ports"
	"tutormatch-backend/application/queries"
	querybus "tutormatch-backend/application/queries/bus"
	queryhandlers "tutormatch-backend/application/queries/handlers"
	"tutormatch-backend/infrastructure/config"
	"tutormatch-backend/infrastructure/messaging/eventbridge"
	"tutormatch-backend/infrastructure/messaging/inprocess"
	"tutormatch-backend/infrastructure/outbox"
	"tutormatch-backend/infrastructure/persistence/dynamodb"
	"tutormatch-backend/infrastructure/persistence/memory"
	"tutormatch-backend/infrastructure/persistence/postgres"
	"tutormatch-backend/pkg/auth"
	"tutormatch-backend/pkg/observability"
)

// queryCacheTTL is how long cached query views stay fresh, in seconds
const queryCacheTTL = 30

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates a metrics instance. When metrics are disabled the
// CloudWatch client is left nil and every recording call is a no-op.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("TutorMatch/%s", cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil, logger)
	}
	return observability.NewMetrics(namespace, client, logger)
}

// ProvideTracer creates an X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("tutormatch-" + cfg.Environment)
}

// ProvideJWTValidator creates the bearer token validator. Development falls
// back to a fixed secret so the API runs without env setup; production
// requires JWT_SECRET via config validation.
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required")
		}
		logger.Warn("JWT_SECRET not set, using development secret")
		secret = "tutormatch-dev-secret"
	}

	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
	})
}

// Persistence bundles the storage ports behind a single driver switch
type Persistence struct {
	UserRepo    ports.UserRepository
	TutorRepo   ports.TutorRepository
	RequestRepo ports.MatchingRequestRepository
	EventStore  ports.EventStore

	// Lock is only available on the dynamodb driver; callers treat nil as
	// "no cross-instance locking".
	Lock *dynamodb.DistributedLock

	closeFn func()
}

// Close releases any pooled connections held by the driver
func (p *Persistence) Close() {
	if p.closeFn != nil {
		p.closeFn()
	}
}

// ProvidePersistence constructs the repository set for the configured driver
func ProvidePersistence(
	ctx context.Context,
	cfg *config.Config,
	client *awsdynamodb.Client,
	logger *zap.Logger,
) (*Persistence, error) {
	switch cfg.PersistenceDriver {
	case config.DriverMemory:
		return &Persistence{
			UserRepo:    memory.NewUserRepository(),
			TutorRepo:   memory.NewTutorRepository(),
			RequestRepo: memory.NewMatchingRequestRepository(),
			EventStore:  memory.NewEventStore(),
		}, nil

	case config.DriverDynamoDB:
		return &Persistence{
			UserRepo:    dynamodb.NewUserRepository(client, cfg.DynamoDBTable, logger),
			TutorRepo:   dynamodb.NewTutorRepository(client, cfg.DynamoDBTable, logger),
			RequestRepo: dynamodb.NewMatchingRequestRepository(client, cfg.DynamoDBTable, logger),
			EventStore:  dynamodb.NewEventStore(client, cfg.DynamoDBTable, logger),
			Lock:        dynamodb.NewDistributedLock(client, cfg.DynamoDBTable, logger),
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Persistence{
			UserRepo:    postgres.NewUserRepository(pool, logger),
			TutorRepo:   postgres.NewTutorRepository(pool, logger),
			RequestRepo: postgres.NewMatchingRequestRepository(pool, logger),
			EventStore:  postgres.NewEventStore(pool, logger),
			closeFn:     pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.PersistenceDriver)
	}
}

// ProvideEventPublisher creates the external event publisher. The memory
// driver pairs with the in-process bus so local runs need no AWS account;
// everything else publishes to EventBridge.
func ProvideEventPublisher(
	cfg *config.Config,
	client *awseventbridge.Client,
	logger *zap.Logger,
) ports.EventPublisher {
	if cfg.PersistenceDriver == config.DriverMemory {
		return inprocess.NewBus(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// lockerAdapter exposes the DynamoDB lock through the relay's Locker port
type lockerAdapter struct {
	lock *dynamodb.DistributedLock
}

func (a *lockerAdapter) Acquire(ctx context.Context, resource, owner string, duration time.Duration) (outbox.UnlockFunc, error) {
	held, err := a.lock.Acquire(ctx, resource, owner, duration)
	if err != nil {
		return nil, err
	}
	return held.Release, nil
}

// ProvideRelay creates the outbox relay. With the dynamodb driver the relay
// ticks under a distributed lock so scaled-out instances do not double
// publish.
func ProvideRelay(
	cfg *config.Config,
	persistence *Persistence,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *outbox.Relay {
	opts := []outbox.Option{
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithInterval(cfg.OutboxInterval),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithMetrics(metrics),
	}

	if persistence.Lock != nil {
		hostname, _ := os.Hostname()
		owner := fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
		opts = append(opts, outbox.WithLocker(&lockerAdapter{lock: persistence.Lock}, owner))
	}

	return outbox.NewRelay(persistence.EventStore, publisher, logger, opts...)
}

// ProvideCommandBus creates a command bus with every write operation
// registered behind validation, logging, and metrics middleware
func ProvideCommandBus(
	cfg *config.Config,
	persistence *Persistence,
	publisher ports.EventPublisher,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	middleware := []bus.Middleware{
		bus.ValidationMiddleware(),
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	}
	if cfg.EnableTracing {
		middleware = append(middleware, bus.TracingMiddleware(tracer))
	}
	commandBus := bus.NewCommandBus(middleware...)

	userRepo := persistence.UserRepo
	tutorRepo := persistence.TutorRepo
	requestRepo := persistence.RequestRepo
	eventStore := persistence.EventStore
	policy := cfg.Policy

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.RegisterUserCommand{}, commandhandlers.NewRegisterUserHandler(userRepo, eventStore, publisher, policy, logger)},
		{commands.UpdateUserProfileCommand{}, commandhandlers.NewUpdateUserProfileHandler(userRepo, eventStore, publisher, policy, logger)},
		{commands.ChangeUserStatusCommand{}, commandhandlers.NewChangeUserStatusHandler(userRepo, eventStore, publisher, logger)},
		{commands.ChangeUserRoleCommand{}, commandhandlers.NewChangeUserRoleHandler(userRepo, eventStore, publisher, policy, logger)},
		{commands.RecordFailedLoginCommand{}, commandhandlers.NewRecordFailedLoginHandler(userRepo, eventStore, publisher, policy, logger)},

		{commands.PromoteToTutorCommand{}, commandhandlers.NewPromoteToTutorHandler(userRepo, tutorRepo, eventStore, publisher, policy, logger)},
		{commands.UpdateTutorProfileCommand{}, commandhandlers.NewUpdateTutorProfileHandler(tutorRepo, eventStore, publisher, policy, logger)},
		{commands.RecordSessionOutcomeCommand{}, commandhandlers.NewRecordSessionOutcomeHandler(tutorRepo, eventStore, publisher, policy, logger)},
		{commands.ChangeTutorStatusCommand{}, commandhandlers.NewChangeTutorStatusHandler(tutorRepo, eventStore, publisher, logger)},

		{commands.CreateMatchingRequestCommand{}, commandhandlers.NewCreateMatchingRequestHandler(userRepo, requestRepo, eventStore, publisher, policy, logger)},
		{commands.AssignTutorCommand{}, commandhandlers.NewAssignTutorHandler(requestRepo, tutorRepo, eventStore, publisher, logger)},
		{commands.ConfirmMatchCommand{}, commandhandlers.NewConfirmMatchHandler(requestRepo, eventStore, publisher, logger)},
		{commands.CancelMatchingRequestCommand{}, commandhandlers.NewCancelMatchingRequestHandler(requestRepo, eventStore, publisher, logger)},
		{commands.ExpireMatchingRequestsCommand{}, commandhandlers.NewExpireMatchingRequestsHandler(requestRepo, eventStore, publisher, policy, logger)},
	}

	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, reg.handler); err != nil {
			return nil, err
		}
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers. List queries
// sit behind a short read-through cache; point lookups go straight to the
// repository so writes read back immediately.
func ProvideQueryBus(
	persistence *Persistence,
	cache ports.Cache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	caching := querybus.NewCachingMiddleware(cache, queryCacheTTL)
	measured := querybus.NewMetricsMiddleware(metrics)

	userHandler := measured.Wrap(queryhandlers.NewUserQueryHandler(persistence.UserRepo, logger))
	tutorHandler := measured.Wrap(queryhandlers.NewTutorQueryHandler(persistence.TutorRepo, logger))
	matchingHandler := measured.Wrap(queryhandlers.NewMatchingQueryHandler(persistence.RequestRepo, logger))

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{queries.GetUserQuery{}, userHandler},
		{queries.GetUserByEmailQuery{}, userHandler},
		{queries.ListUsersQuery{}, caching.Wrap(userHandler)},

		{queries.GetTutorQuery{}, tutorHandler},
		{queries.GetTutorByUserIDQuery{}, tutorHandler},
		{queries.ListTutorsQuery{}, caching.Wrap(tutorHandler)},

		{queries.GetMatchingRequestQuery{}, matchingHandler},
		{queries.ListStudentRequestsQuery{}, matchingHandler},
		{queries.ListMatchingRequestsQuery{}, caching.Wrap(matchingHandler)},
	}

	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, reg.handler); err != nil {
			return nil, err
		}
	}

	return queryBus, nil
}

// ProvideQueryCache creates the in-process cache behind the read-side
// caching middleware. The janitor lives for the duration of ctx.
func ProvideQueryCache(ctx context.Context) ports.Cache {
	return NewQueryCache(ctx)
}
