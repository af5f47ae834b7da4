package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis" validate:"required"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
}

// ServerConfig contains the producer API server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// RedisConfig contains the status store connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// Addr returns the host:port address for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RabbitMQConfig contains the work channel broker connection settings.
type RabbitMQConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	VHost    string `mapstructure:"vhost" validate:"required"`
}

// URL returns the AMQP connection URL for the broker.
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d%s", c.User, c.Password, c.Host, c.Port, c.VHost)
}

// QueueConfig contains the work queue declaration settings.
type QueueConfig struct {
	// Name is the broker queue carrying task payloads.
	Name string `mapstructure:"name" validate:"required"`

	// Prefetch limits unacknowledged deliveries per worker connection,
	// keeping dispatch fair across competing consumers.
	Prefetch int `mapstructure:"prefetch" validate:"required,gt=0"`
}

// TaskConfig contains task record settings.
type TaskConfig struct {
	// TTLSeconds is how long task records live in the status store. It
	// must exceed the maximum end-to-end processing time plus the client
	// polling window.
	TTLSeconds int `mapstructure:"ttl_seconds" validate:"required,gt=0"`
}

// TTL returns the record TTL as a duration.
func (c TaskConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// WorkerConfig contains worker process settings.
type WorkerConfig struct {
	Count int `mapstructure:"count" validate:"required,gt=0"`
}

// LLMConfig contains the generator settings. Provider selects between the
// mock generator and the Gemini integration.
type LLMConfig struct {
	Provider     string `mapstructure:"provider" validate:"required,oneof=mock gemini"`
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	ModelName    string `mapstructure:"model_name"`

	// Mock latency window, in milliseconds.
	MockMinDelayMS int `mapstructure:"mock_min_delay_ms" validate:"gte=0"`
	MockMaxDelayMS int `mapstructure:"mock_max_delay_ms" validate:"gte=0"`
}

// MockMinDelay returns the lower bound of the simulated latency window.
func (c LLMConfig) MockMinDelay() time.Duration {
	return time.Duration(c.MockMinDelayMS) * time.Millisecond
}

// MockMaxDelay returns the upper bound of the simulated latency window.
func (c LLMConfig) MockMaxDelay() time.Duration {
	return time.Duration(c.MockMaxDelayMS) * time.Millisecond
}
