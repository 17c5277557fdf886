package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	FreshTrack FreshTrackConfig `yaml:"freshtrack"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // "postgres" | "mongo"
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type KafkaConfig struct {
	Host                        string `yaml:"host"`
	Port                        int    `yaml:"port"`
	DerivationRequestsTopicName string `yaml:"derivation_requests_topic_name"`
	DerivedRoutesTopicName      string `yaml:"derived_routes_topic_name"`
	WorkEventsTopicName         string `yaml:"work_events_topic_name"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type FreshTrackConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	GeocoderProvider           string   `yaml:"geocoder_provider"` // "nominatim" | "opencage" | "fake"
	GeocoderBaseURL            string   `yaml:"geocoder_base_url"`
	GeocoderUserAgent          string   `yaml:"geocoder_user_agent"`
	GeocoderAPIKeys            []string `yaml:"geocoder_api_keys"`
	GeocoderTimeoutSeconds     int      `yaml:"geocoder_timeout_seconds"`
	GeocoderMaxAttempts        int      `yaml:"geocoder_max_attempts"`
	GeocoderCacheTTLSeconds    int      `yaml:"geocoder_cache_ttl_seconds"`
	GeocoderRateLimitPerMinute int      `yaml:"geocoder_rate_limit_per_minute"`

	RouteSampleStride             int `yaml:"route_sample_stride"`
	RouteRequestDelayMs           int `yaml:"route_request_delay_ms"`
	RouteDerivationTimeoutSeconds int `yaml:"route_derivation_timeout_seconds"`

	TelemetryPollIntervalMs int `yaml:"telemetry_poll_interval_ms"`
	ElapsedTickIntervalMs   int `yaml:"elapsed_tick_interval_ms"`
	TelemetryFetchTimeoutMs int `yaml:"telemetry_fetch_timeout_ms"`

	WorkerHTTPAddr           string `yaml:"worker_http_addr"`
	WorkerKafkaConsumerGroup string `yaml:"worker_kafka_consumer_group"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
