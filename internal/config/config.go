// Package config loads per-binary configuration from GROCERYFLOW_-prefixed
// environment variables and an optional config.yaml.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const envPrefix = "GROCERYFLOW"

type KafkaConfig struct {
	Brokers        []string      `default:"localhost:9092" usage:"Kafka bootstrap brokers"`
	CheckoutTopic  string        `default:"basket.checkout" usage:"Topic for ProductCheckedOut events"`
	UserTopic      string        `default:"user.events" usage:"Topic for user lifecycle events"`
	InventoryTopic string        `default:"inventory.events" usage:"Topic for product catalog events"`
	MaxRetries     uint64        `default:"5" usage:"In-process retries before a message is left uncommitted"`
	RetryWait      time.Duration `default:"200ms" usage:"Initial wait between handler retries"`
}

type TelemetryConfig struct {
	ServiceVersion string `default:"0.1.0"`
	OTLPEndpoint   string `env:"OTLP_ENDPOINT" default:"localhost:4317" usage:"OTLP gRPC trace collector"`
}

type GracefulConfig struct {
	ShutdownTimeout time.Duration `default:"10s" usage:"Maximum shutdown duration"`
}

type BasketConfig struct {
	Addr               string        `default:":8082" usage:"Basket API listen address"`
	MongoURI           string        `env:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase      string        `default:"basket"`
	RedisAddr          string        `default:"localhost:6379"`
	CacheTTL           time.Duration `env:"CACHE_TTL" default:"5m" usage:"Basket read cache TTL"`
	DiscountPercentBP  int64         `env:"DISCOUNT_PERCENT_BP" default:"2000" usage:"Checkout discount in basis points (2000 = 20%)"`
	MaxConflictRetries uint64        `default:"5" usage:"Retries of a basket write after a version conflict"`
	GroupID            string        `env:"GROUP_ID" default:"basket-projector" usage:"Consumer group prefix for the catalog replica, suffixed with the topic"`
	Kafka              KafkaConfig
	Telemetry          TelemetryConfig
	Graceful           GracefulConfig
}

type OrdersConfig struct {
	Addr        string `default:":8081" usage:"Orders API listen address"`
	PostgresURL string `env:"POSTGRES_URL" usage:"PostgreSQL connection URL (or POSTGRES_URL)"`
	Telemetry   TelemetryConfig
	Graceful    GracefulConfig
}

type MaterializerConfig struct {
	PostgresURL       string `env:"POSTGRES_URL" usage:"PostgreSQL connection URL (or POSTGRES_URL)"`
	MetricsAddr       string `default:":9091" usage:"Prometheus /metrics listen address"`
	GroupID           string `env:"GROUP_ID" default:"order-materializer"`
	UnknownUserPolicy string `env:"UNKNOWN_USER_POLICY" default:"create" usage:"UserUpdated for an unknown user: create or drop"`
	Kafka             KafkaConfig
	Telemetry         TelemetryConfig
	Graceful          GracefulConfig
}

type GatewayConfig struct {
	Addr             string `default:":8080" usage:"Gateway listen address"`
	BasketServiceURL string `env:"BASKET_SERVICE_URL" usage:"Base URL of the basket service"`
	OrdersServiceURL string `env:"ORDERS_SERVICE_URL" usage:"Base URL of the orders service"`
	Telemetry        TelemetryConfig
	Graceful         GracefulConfig
}

type MigrateConfig struct {
	PostgresURL    string `env:"POSTGRES_URL" usage:"PostgreSQL connection URL (or POSTGRES_URL)"`
	MigrationsPath string `usage:"golang-migrate source URL (or MIGRATIONS_PATH)"`
}

func load(dst any) error {
	loader := aconfig.LoaderFor(dst, aconfig.Config{
		EnvPrefix:          envPrefix,
		SkipFlags:          true,
		AllowUnknownEnvs:   true,
		AllowUnknownFields: true,
		Files:              []string{"config.yaml", "/etc/groceryflow/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return errors.Wrap(err, "load config")
	}
	return nil
}

// fallbackEnv fills *dst from the first set unprefixed variable.
func fallbackEnv(dst *string, names ...string) {
	if *dst != "" {
		return
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

func (k *KafkaConfig) applyFallbacks() {
	if v := os.Getenv("KAFKA_BROKERS"); v != "" && os.Getenv(envPrefix+"_KAFKA_BROKERS") == "" {
		k.Brokers = strings.Split(v, ",")
	}
}

func (t *TelemetryConfig) applyFallbacks() {
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" && os.Getenv(envPrefix+"_TELEMETRY_OTLP_ENDPOINT") == "" {
		t.OTLPEndpoint = v
	}
}

func LoadBasket() (*BasketConfig, error) {
	var cfg BasketConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	cfg.Kafka.applyFallbacks()
	cfg.Telemetry.applyFallbacks()

	if cfg.DiscountPercentBP < 0 || cfg.DiscountPercentBP > 10000 {
		return nil, errors.Errorf("discount percent must be between 0 and 10000 basis points, got %d", cfg.DiscountPercentBP)
	}
	return &cfg, nil
}

func LoadOrders() (*OrdersConfig, error) {
	var cfg OrdersConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	fallbackEnv(&cfg.PostgresURL, "POSTGRES_URL")
	cfg.Telemetry.applyFallbacks()

	if cfg.PostgresURL == "" {
		return nil, errors.New("postgres URL is required: set GROCERYFLOW_POSTGRES_URL or POSTGRES_URL")
	}
	return &cfg, nil
}

func LoadMaterializer() (*MaterializerConfig, error) {
	var cfg MaterializerConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	fallbackEnv(&cfg.PostgresURL, "POSTGRES_URL")
	cfg.Kafka.applyFallbacks()
	cfg.Telemetry.applyFallbacks()

	if cfg.PostgresURL == "" {
		return nil, errors.New("postgres URL is required: set GROCERYFLOW_POSTGRES_URL or POSTGRES_URL")
	}
	switch cfg.UnknownUserPolicy {
	case "create", "drop":
	default:
		return nil, errors.Errorf("unknown user policy must be create or drop, got %q", cfg.UnknownUserPolicy)
	}
	return &cfg, nil
}

func LoadGateway() (*GatewayConfig, error) {
	var cfg GatewayConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	fallbackEnv(&cfg.BasketServiceURL, "BASKET_SERVICE_URL")
	fallbackEnv(&cfg.OrdersServiceURL, "ORDERS_SERVICE_URL")
	cfg.Telemetry.applyFallbacks()

	if cfg.BasketServiceURL == "" {
		return nil, errors.New("basket service URL is required")
	}
	if cfg.OrdersServiceURL == "" {
		return nil, errors.New("orders service URL is required")
	}
	return &cfg, nil
}

func LoadMigrate() (*MigrateConfig, error) {
	var cfg MigrateConfig
	if err := load(&cfg); err != nil {
		return nil, err
	}
	fallbackEnv(&cfg.PostgresURL, "POSTGRES_URL")
	fallbackEnv(&cfg.MigrationsPath, "MIGRATIONS_PATH")
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://migrations"
	}

	if cfg.PostgresURL == "" {
		return nil, errors.New("postgres URL is required: set GROCERYFLOW_POSTGRES_URL or POSTGRES_URL")
	}
	return &cfg, nil
}
