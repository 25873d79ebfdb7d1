package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Kafka    KafkaConfig
	Presence PresenceConfig
	Voice    VoiceConfig
	LogLevel string
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URI string
}

type RedisConfig struct {
	URI string
}

type JWTConfig struct {
	Secret string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type PresenceConfig struct {
	// CacheTTL bounds how long a crashed process can strand a user "online"
	// in the cache.
	CacheTTL time.Duration
}

type VoiceConfig struct {
	// MembershipTTL is the sliding expiry on persisted voice membership so
	// state survives a restart for a bounded window.
	MembershipTTL time.Duration
}

var (
	instance *Config
	once     sync.Once
)

func LoadConfig() (*Config, error) {
	once.Do(func() {
		viper.SetDefault("GATEWAY_HOST", "0.0.0.0")
		viper.SetDefault("GATEWAY_PORT", "8080")
		viper.SetDefault("GATEWAY_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("GATEWAY_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("GATEWAY_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("GATEWAY_JWT_SECRET", "secret")
		viper.SetDefault("GATEWAY_LOG_LEVEL", "info")
		viper.SetDefault("GATEWAY_PRESENCE_CACHE_TTL", 5*time.Minute)
		viper.SetDefault("GATEWAY_VOICE_MEMBERSHIP_TTL", 10*time.Minute)
		viper.SetDefault("POSTGRES_URI", "host=localhost user=postgres password=password dbname=postgres port=5432 sslmode=disable")
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("KAFKA_BROKERS", []string{})
		viper.SetDefault("KAFKA_TOPIC", "chat-messages")
		viper.SetDefault("KAFKA_ENABLED", false)
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Host:         viper.GetString("GATEWAY_HOST"),
				Port:         viper.GetString("GATEWAY_PORT"),
				ReadTimeout:  viper.GetDuration("GATEWAY_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("GATEWAY_WRITE_TIMEOUT"),
				IdleTimeout:  viper.GetDuration("GATEWAY_IDLE_TIMEOUT"),
			},
			Database: DatabaseConfig{
				URI: viper.GetString("POSTGRES_URI"),
			},
			Redis: RedisConfig{
				URI: viper.GetString("REDIS_URL"),
			},
			JWT: JWTConfig{
				Secret: viper.GetString("GATEWAY_JWT_SECRET"),
			},
			Kafka: KafkaConfig{
				Brokers: viper.GetStringSlice("KAFKA_BROKERS"),
				Topic:   viper.GetString("KAFKA_TOPIC"),
				Enabled: viper.GetBool("KAFKA_ENABLED"),
			},
			Presence: PresenceConfig{
				CacheTTL: viper.GetDuration("GATEWAY_PRESENCE_CACHE_TTL"),
			},
			Voice: VoiceConfig{
				MembershipTTL: viper.GetDuration("GATEWAY_VOICE_MEMBERSHIP_TTL"),
			},
			LogLevel: viper.GetString("GATEWAY_LOG_LEVEL"),
		}
	})

	return instance, nil
}
