package bootstrap

import (
	"context"
	"fmt"
	"log"

	"solar-parcel-be/internal/config"
	"solar-parcel-be/internal/controller"
	"solar-parcel-be/internal/pkg/logger"
	"solar-parcel-be/internal/repository/contract"
	"solar-parcel-be/internal/repository/memory"
	redisRepo "solar-parcel-be/internal/repository/redis"
	"solar-parcel-be/internal/repository/unitofwork"
	"solar-parcel-be/internal/service"
	"solar-parcel-be/pkg/agent/generate"
	"solar-parcel-be/pkg/agent/graph"
	"solar-parcel-be/pkg/agent/repair"
	"solar-parcel-be/pkg/agent/rewrite"
	"solar-parcel-be/pkg/agent/topic"
	"solar-parcel-be/pkg/agent/vague"
	"solar-parcel-be/pkg/agent/validate"
	"solar-parcel-be/pkg/events"
	"solar-parcel-be/pkg/llm"
	"solar-parcel-be/pkg/llm/factory"
	pktNats "solar-parcel-be/pkg/nats"
	"solar-parcel-be/pkg/parcel"
	"solar-parcel-be/pkg/schema"
	"solar-parcel-be/pkg/sqlexec"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SearchController controller.ISearchController
	SchemaController controller.ISchemaController
	HealthController controller.IHealthController
	AdminController  controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) (*Container, error) {
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. LLM
	provider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("init llm provider: %w", err)
	}
	llmLogger := logger.NewIsolatedLogger(cfg.LLM.LogFilePath)
	c.closers = append(c.closers, func() { _ = llmLogger.Sync() })
	provider = llm.WithLogging(provider, llmLogger)
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.LLM.Provider, cfg.LLM.Model)

	// 4. Agent
	introspector := schema.NewIntrospector(db, sysLogger, cfg.Database.AllowedSchemas...)
	executor := sqlexec.NewExecutor(db, sysLogger,
		sqlexec.WithStatementTimeout(cfg.Database.StatementTimeout),
		sqlexec.WithGeometryColumns(parcel.GeometryField.Aliases...),
	)

	pipeline := graph.New(graph.Stages{
		Topic:    topic.NewFilter(provider, sysLogger, cfg.Pipeline.TopicContextTurns),
		Rewrite:  rewrite.NewRewriter(provider, sysLogger),
		Vague:    vague.NewResolver(provider, introspector, sysLogger),
		Generate: generate.NewGenerator(provider, introspector, sysLogger, cfg.LLM.Temperature),
		Validate: validate.NewValidator(provider, introspector, sysLogger),
		Repair:   repair.NewRepairer(provider, introspector, sysLogger),
	}, executor, sysLogger,
		graph.WithCeiling(cfg.Pipeline.RepairCeiling),
		graph.WithTracer(otel.Tracer("solar-parcel-be/agent")),
	)

	// 5. Conversation Memory
	var sessions contract.SessionRepository
	var memoryPing controller.Pinger
	switch cfg.Memory.Store {
	case "redis":
		opt, err := redis.ParseURL(cfg.Memory.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.Memory.RedisURL}
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
		sessions = redisRepo.NewSessionRepository(rdb, cfg.Memory.SessionTTL)
		memoryPing = controller.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	default:
		sessions = memory.NewSessionRepository(cfg.Memory.SessionTTL)
		memoryPing = controller.PingFunc(func(context.Context) error { return nil })
	}

	// 6. NATS (optional)
	var eventPublisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventPublisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 7. Services
	publisherService := service.NewPublisherService(events.SearchCompletedTopic, pubSub)
	searchService := service.NewSearchService(pipeline, sessions, publisherService, cfg.Pipeline.SearchTimeout, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, events.SearchCompletedTopic, uowFactory, eventPublisher, sysLogger)
	schemaService := service.NewSchemaService(introspector, cfg.Database.AllowedSchemas)
	adminService := service.NewAdminService(uowFactory, sysLogger)

	// 8. Controllers
	databasePing := controller.PingFunc(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	c.SearchController = controller.NewSearchController(searchService, sysLogger)
	c.SchemaController = controller.NewSchemaController(schemaService, cfg.Keys.JWTSecret)
	c.HealthController = controller.NewHealthController(databasePing, memoryPing)
	c.AdminController = controller.NewAdminController(adminService, cfg.Keys.JWTSecret)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
