package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"fallout/internal/bootstrap/logging"
	"fallout/internal/errs"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Workflow   WorkflowConfig   `mapstructure:"workflow"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" validate:"required,oneof=sqlite sqlite3"`
	DSN          string `mapstructure:"dsn" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
}

type CacheConfig struct {
	Driver string      `mapstructure:"driver" validate:"required,oneof=sqlite redis"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

type WorkflowConfig struct {
	MaxRetriesPerCategory int           `mapstructure:"max_retries_per_category" validate:"gte=0,lte=5"`
	LeaseTTL              time.Duration `mapstructure:"lease_ttl" validate:"gt=0"`
	ClassifierTimeout     time.Duration `mapstructure:"classifier_timeout" validate:"gt=0"`
	HandlerTimeout        time.Duration `mapstructure:"handler_timeout" validate:"gt=0"`
	StoreTimeout          time.Duration `mapstructure:"store_timeout" validate:"gt=0"`
	StoreRetries          int           `mapstructure:"store_retries" validate:"gte=1"`
	PollInterval          time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	BatchSize             int           `mapstructure:"batch_size" validate:"gte=1"`
	Workers               int           `mapstructure:"workers" validate:"gte=1"`
	WorkerID              string        `mapstructure:"worker_id" validate:"required"`
}

type ClassifierConfig struct {
	Driver    string       `mapstructure:"driver" validate:"required,oneof=rules openai"`
	RulesFile string       `mapstructure:"rules_file"`
	OpenAI    OpenAIConfig `mapstructure:"openai"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	Model   string `mapstructure:"model"`
}

type AuditConfig struct {
	Publisher    string        `mapstructure:"publisher" validate:"required,oneof=none nats kafka"`
	BatchSize    int           `mapstructure:"batch_size" validate:"gte=1"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	NATS         NATSConfig    `mapstructure:"nats"`
	Kafka        KafkaConfig   `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL     string        `mapstructure:"url"`
	Subject string        `mapstructure:"subject"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FALLOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("cache_driver", cfg.Cache.Driver),
		slog.String("classifier", cfg.Classifier.Driver),
		slog.String("audit_publisher", cfg.Audit.Publisher),
	)

	return cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return errs.Wrap(err, "validate config")
	}

	if cfg.Cache.Driver == "redis" && strings.TrimSpace(cfg.Cache.Redis.Addr) == "" {
		return errors.New("cache.redis.addr is required for the redis cache")
	}

	switch cfg.Classifier.Driver {
	case "openai":
		if strings.TrimSpace(cfg.Classifier.OpenAI.APIKey) == "" {
			return errors.New("classifier.openai.api_key is required for the openai classifier")
		}
		if strings.TrimSpace(cfg.Classifier.OpenAI.Model) == "" {
			return errors.New("classifier.openai.model is required for the openai classifier")
		}
	}

	switch cfg.Audit.Publisher {
	case "nats":
		if strings.TrimSpace(cfg.Audit.NATS.URL) == "" || strings.TrimSpace(cfg.Audit.NATS.Subject) == "" {
			return errors.New("audit.nats.url and audit.nats.subject are required for the nats publisher")
		}
	case "kafka":
		if len(cfg.Audit.Kafka.Brokers) == 0 || strings.TrimSpace(cfg.Audit.Kafka.Topic) == "" {
			return errors.New("audit.kafka.brokers and audit.kafka.topic are required for the kafka publisher")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fallout")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".fallout/state/fallout.sqlite")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.redis.addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis.prefix", "fallout:")

	v.SetDefault("workflow.max_retries_per_category", 1)
	v.SetDefault("workflow.lease_ttl", 2*time.Minute)
	v.SetDefault("workflow.classifier_timeout", 10*time.Second)
	v.SetDefault("workflow.handler_timeout", 30*time.Second)
	v.SetDefault("workflow.store_timeout", 5*time.Second)
	v.SetDefault("workflow.store_retries", 3)
	v.SetDefault("workflow.poll_interval", 30*time.Second)
	v.SetDefault("workflow.batch_size", 20)
	v.SetDefault("workflow.workers", 4)
	v.SetDefault("workflow.worker_id", "local")

	v.SetDefault("classifier.driver", "rules")
	v.SetDefault("classifier.openai.model", "gpt-4o-mini")

	v.SetDefault("audit.publisher", "none")
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.poll_interval", 5*time.Second)
	v.SetDefault("audit.nats.subject", "fallout.audit")
	v.SetDefault("audit.nats.timeout", 5*time.Second)
	v.SetDefault("audit.kafka.topic", "fallout-audit")
	v.SetDefault("audit.kafka.write_timeout", 10*time.Second)
}
