package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Platform PlatformConfig
	Engine   EngineConfig
	HMAC     HMACConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Keycloak KeycloakConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PlatformConfig selects where payment aggregates live. Mode "platform"
// talks to the remote payment platform over HTTP; mode "local" uses the
// bun-backed store for development.
type PlatformConfig struct {
	Mode         string
	APIURL       string
	AuthURL      string
	ProjectKey   string
	ClientID     string
	ClientSecret string
	Scopes       string
}

type EngineConfig struct {
	RemoveSensitiveData bool
}

type HMACConfig struct {
	Enabled bool
	Key     string
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Topics  TopicConfig
	Enabled bool
}

type TopicConfig struct {
	Notifications string
	Reconciled    string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// KeycloakConfig backs the OIDC check on the admin routes.
type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

const (
	StoreModePlatform = "platform"
	StoreModeLocal    = "local"
)

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Platform: PlatformConfig{
			Mode:         getEnv("STORE_MODE", StoreModeLocal),
			APIURL:       getEnv("PLATFORM_API_URL", "http://localhost:8081"),
			AuthURL:      getEnv("PLATFORM_AUTH_URL", "http://localhost:8081/oauth/token"),
			ProjectKey:   getEnv("PLATFORM_PROJECT_KEY", "payments-dev"),
			ClientID:     getEnv("PLATFORM_CLIENT_ID", ""),
			ClientSecret: getEnv("PLATFORM_CLIENT_SECRET", ""),
			Scopes:       getEnv("PLATFORM_SCOPES", "manage_payments"),
		},
		Engine: EngineConfig{
			RemoveSensitiveData: getEnvBool("REMOVE_SENSITIVE_DATA", true),
		},
		HMAC: HMACConfig{
			Enabled: getEnvBool("HMAC_ENABLED", false),
			Key:     getEnv("HMAC_KEY", ""),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID: getEnv("KAFKA_GROUP_ID", "reconciliation-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				Notifications: getEnv("KAFKA_TOPIC_NOTIFICATIONS", "payments.notifications"),
				Reconciled:    getEnv("KAFKA_TOPIC_RECONCILED", "payments.reconciled"),
			},
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "reconciliation_user"),
			Password:     getEnv("DB_PASSWORD", "reconciliation_pass"),
			Database:     getEnv("DB_NAME", "payments_local"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Keycloak: KeycloakConfig{
			URL:      getEnv("KEYCLOAK_URL", ""),
			Realm:    getEnv("KEYCLOAK_REALM", "reconciliation"),
			ClientID: getEnv("KEYCLOAK_CLIENT_ID", "reconciliation-admin"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
