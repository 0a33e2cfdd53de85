package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Patrol   PatrolConfig   `yaml:"patrol"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	PingTopicName         string `yaml:"ping_topic_name"`
	VisitCreatedTopicName string `yaml:"visit_created_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type PatrolConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	// attach_policy selects what happens to a ping whose nearest checkpoint
	// is beyond the threshold: "within_threshold" records the visit without a
	// checkpoint reference, "nearest_always" attaches the nearest checkpoint
	// and lets visit_status carry the outcome.
	MatchThresholdMeters float64 `yaml:"match_threshold_meters"`
	AttachPolicy         string  `yaml:"attach_policy"`

	// Static remap of retired hardware IDs to their replacements, applied
	// before device lookup.
	DeviceAliases map[string]string `yaml:"device_aliases"`

	IngestAllowedIPs         []string `yaml:"ingest_allowed_ips"`
	IngestRateLimitPerMinute int      `yaml:"ingest_rate_limit_per_minute"`

	ReportWindowHours int `yaml:"report_window_hours"`

	SeedWindowHours          int     `yaml:"seed_window_hours"`
	SeedViolationProbability float64 `yaml:"seed_violation_probability"`
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
