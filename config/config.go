package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config armazena todas as configurações da Loja Social.
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string
	ServiceName string

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Cache (Redis)
	RedisAddr    string
	CacheTimeout time.Duration
	CacheTTL     time.Duration

	// Segurança (JWT)
	JWTSecretKey string

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Pedidos e Stock
	RequestItemCap      int
	ExpiryThresholdDays int
	ExpiryScanInterval  time.Duration

	// Catálogo externo (lookup por código de barras)
	CatalogLookupURL     string
	CatalogLookupTimeout time.Duration

	// Notificações
	NotifyQueueSize int

	// Telemetria (vazio desliga os exportadores OTLP)
	OTLPEndpoint string
}

// defaults centraliza os valores padrão de cada chave.
var defaults = map[string]interface{}{
	"PORT":                    "8080",
	"ENV":                     "development",
	"LOG_LEVEL":               "info",
	"SERVICE_NAME":            "lojasocial-api",
	"DB_TIMEOUT":              "5s",
	"REDIS_ADDR":              "localhost:6379",
	"CACHE_TIMEOUT":           "10s",
	"CACHE_TTL":               "5m",
	"RATE_LIMIT_MAX_REQUESTS": 100,
	"RATE_LIMIT_PERIOD":       "1m",
	"REQUEST_ITEM_CAP":        10,
	"EXPIRY_THRESHOLD_DAYS":   3,
	"EXPIRY_SCAN_INTERVAL":    "24h",
	"CATALOG_LOOKUP_URL":      "https://world.openfoodfacts.org",
	"CATALOG_LOOKUP_TIMEOUT":  "5s",
	"NOTIFY_QUEUE_SIZE":       256,
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente e,
// se CONFIG_PATH estiver definido, de um ficheiro config.yaml nesse diretório.
// O ambiente tem sempre precedência sobre o ficheiro.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	// Chaves sem default precisam de BindEnv explícito.
	_ = v.BindEnv("DATABASE_URL")
	_ = v.BindEnv("JWT_SECRET_KEY")
	_ = v.BindEnv("CONFIG_PATH")
	_ = v.BindEnv("OTEL_EXPORTER_OTLP_ENDPOINT")

	if path := v.GetString("CONFIG_PATH"); path != "" {
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("falha ao ler config.yaml em %s: %w", path, err)
			}
		}
	}

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		ServiceName: v.GetString("SERVICE_NAME"),

		DatabaseURL: v.GetString("DATABASE_URL"),
		DBTimeout:   v.GetDuration("DB_TIMEOUT"),

		RedisAddr:    v.GetString("REDIS_ADDR"),
		CacheTimeout: v.GetDuration("CACHE_TIMEOUT"),
		CacheTTL:     v.GetDuration("CACHE_TTL"),

		JWTSecretKey: v.GetString("JWT_SECRET_KEY"),

		RateLimitMaxRequests: v.GetInt("RATE_LIMIT_MAX_REQUESTS"),
		RateLimitPeriod:      v.GetDuration("RATE_LIMIT_PERIOD"),

		RequestItemCap:      v.GetInt("REQUEST_ITEM_CAP"),
		ExpiryThresholdDays: v.GetInt("EXPIRY_THRESHOLD_DAYS"),
		ExpiryScanInterval:  v.GetDuration("EXPIRY_SCAN_INTERVAL"),

		CatalogLookupURL:     v.GetString("CATALOG_LOOKUP_URL"),
		CatalogLookupTimeout: v.GetDuration("CATALOG_LOOKUP_TIMEOUT"),

		NotifyQueueSize: v.GetInt("NOTIFY_QUEUE_SIZE"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate garante que a aplicação não inicie sem credenciais ou com limites absurdos.
func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("erro de configuração: a variável DATABASE_URL deve ser definida")
	}
	if c.JWTSecretKey == "" {
		return errors.New("erro de configuração: a variável JWT_SECRET_KEY deve ser definida")
	}
	if c.RequestItemCap <= 0 {
		return fmt.Errorf("erro de configuração: REQUEST_ITEM_CAP deve ser positivo (recebido %d)", c.RequestItemCap)
	}
	if c.ExpiryThresholdDays <= 0 {
		return fmt.Errorf("erro de configuração: EXPIRY_THRESHOLD_DAYS deve ser positivo (recebido %d)", c.ExpiryThresholdDays)
	}
	if c.ExpiryScanInterval <= 0 {
		return fmt.Errorf("erro de configuração: EXPIRY_SCAN_INTERVAL deve ser positivo")
	}
	if c.NotifyQueueSize <= 0 {
		return fmt.Errorf("erro de configuração: NOTIFY_QUEUE_SIZE deve ser positivo (recebido %d)", c.NotifyQueueSize)
	}
	return nil
}
