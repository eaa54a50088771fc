package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"fallout/internal/bootstrap/config"
	"fallout/internal/bootstrap/database"
	"fallout/internal/bootstrap/logging"
	"fallout/internal/infrastructure/broker"
	cacheinfra "fallout/internal/infrastructure/cache"
	"fallout/internal/infrastructure/classifier"
	sqliterepo "fallout/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "fallout/internal/infrastructure/persistence/sqlite/uow"
	"fallout/internal/ports"
	"fallout/internal/usecase/fallout"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewOrderRepository,
			fx.As(new(ports.OrderStore)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideCache),
	fx.Provide(provideClassifier),
	fx.Provide(provideAuditPublisher),
	fx.Provide(provideWorkflowOptions),
	fx.Provide(fallout.NewService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideCache(lc fx.Lifecycle, ctx context.Context, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	switch cfg.Cache.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		cache := cacheinfra.NewRedisCache(client, cfg.Cache.Redis.Prefix)
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return cache.Close()
			},
		})
		logging.Info(logCtx, "cache ready", slog.String("driver", "redis"), slog.String("addr", cfg.Cache.Redis.Addr))
		return cache, nil
	case "sqlite", "":
		logging.Info(logCtx, "cache ready", slog.String("driver", "sqlite"))
		return cacheinfra.NewSQLiteCache(db), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}
}

func provideClassifier(cfg config.Config) (ports.Classifier, error) {
	switch cfg.Classifier.Driver {
	case "openai":
		return classifier.NewOpenAIClassifier(classifier.OpenAIConfig{
			APIKey:  cfg.Classifier.OpenAI.APIKey,
			BaseURL: cfg.Classifier.OpenAI.BaseURL,
			Model:   cfg.Classifier.OpenAI.Model,
		})
	case "rules", "":
		return classifier.LoadRulesClassifier(cfg.Classifier.RulesFile)
	default:
		return nil, fmt.Errorf("unsupported classifier driver %q", cfg.Classifier.Driver)
	}
}

// provideAuditPublisher returns nil when no publisher is configured; the
// relay commands report that instead of failing at startup.
func provideAuditPublisher(lc fx.Lifecycle, cfg config.Config) (ports.AuditPublisher, error) {
	var publisher *broker.LazyPublisher
	switch cfg.Audit.Publisher {
	case "nats":
		publisher = broker.NewLazyPublisher("nats", func() (ports.AuditPublisher, error) {
			return broker.NewNATSPublisher(broker.NATSConfig{
				URL:     cfg.Audit.NATS.URL,
				Subject: cfg.Audit.NATS.Subject,
				Timeout: cfg.Audit.NATS.Timeout,
			})
		})
	case "kafka":
		publisher = broker.NewLazyPublisher("kafka", func() (ports.AuditPublisher, error) {
			return broker.NewKafkaPublisher(broker.KafkaConfig{
				Brokers:      cfg.Audit.Kafka.Brokers,
				Topic:        cfg.Audit.Kafka.Topic,
				WriteTimeout: cfg.Audit.Kafka.WriteTimeout,
			})
		})
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported audit publisher %q", cfg.Audit.Publisher)
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

func provideWorkflowOptions(cfg config.Config) fallout.Options {
	wf := cfg.Workflow
	return fallout.Options{
		MaxRetriesPerCategory: wf.MaxRetriesPerCategory,
		LeaseTTL:              wf.LeaseTTL,
		ClassifierTimeout:     wf.ClassifierTimeout,
		HandlerTimeout:        wf.HandlerTimeout,
		StoreTimeout:          wf.StoreTimeout,
		StoreRetries:          wf.StoreRetries,
		BatchSize:             wf.BatchSize,
		Workers:               wf.Workers,
		WorkerID:              wf.WorkerID,
	}
}
