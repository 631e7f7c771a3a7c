package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	GRPC          GRPCConfig          `mapstructure:"grpc"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Bulk          BulkConfig          `mapstructure:"bulk"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Events        EventsConfig        `mapstructure:"events"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	Tracing       TracingConfig       `mapstructure:"tracing"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type GRPCConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	Host                string        `mapstructure:"host"`
	Port                int           `mapstructure:"port"`
	MaxRecvMsgSize      int           `mapstructure:"max_recv_msg_size"`
	MaxSendMsgSize      int           `mapstructure:"max_send_msg_size"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
}

type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type EventsConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	HardDeletedChannel string `mapstructure:"hard_deleted_channel"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Exporter   string  `mapstructure:"exporter"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads the YAML file at configPath. Every key has a default and can be
// overridden with an INDEXER_ prefixed environment variable
// (elasticsearch.url -> INDEXER_ELASTICSEARCH_URL).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("indexer")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration obtained from the defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.read_timeout", 30*time.Second)
	v.SetDefault("http.write_timeout", 120*time.Second)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50052)
	v.SetDefault("grpc.max_recv_msg_size", 1024*1024*4)
	v.SetDefault("grpc.max_send_msg_size", 1024*1024*4)
	v.SetDefault("grpc.health_check_interval", 15*time.Second)

	v.SetDefault("elasticsearch.url", "http://localhost:9200")
	v.SetDefault("elasticsearch.index", "documents")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.request_timeout", 5*time.Minute)
	v.SetDefault("elasticsearch.health_check_attempts", 30)
	v.SetDefault("elasticsearch.health_check_delay", 2*time.Second)
	v.SetDefault("elasticsearch.stopwords", []string{"french", "german"})
	v.SetDefault("elasticsearch.fields.autocomplete", "searchAutocomplete")
	v.SetDefault("elasticsearch.fields.phonetic", "searchPhonetic")
	v.SetDefault("elasticsearch.fields.display", "info")
	v.SetDefault("elasticsearch.fields.glyph", "glyph")
	v.SetDefault("elasticsearch.fields.status", "status")
	v.SetDefault("elasticsearch.fields.type", "type")
	v.SetDefault("elasticsearch.fields.id", "id")

	v.SetDefault("bulk.max_concurrent", 50)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.default_ttl", 1*time.Minute)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.hard_deleted_channel", "documents.hard-deleted")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

func (c *Config) Validate() error {
	if c.Elasticsearch.URL == "" {
		return fmt.Errorf("elasticsearch.url is required")
	}
	if c.Elasticsearch.Index == "" {
		return fmt.Errorf("elasticsearch.index is required")
	}
	if c.Elasticsearch.HealthCheckAttempts < 1 {
		return fmt.Errorf("elasticsearch.health_check_attempts must be at least 1")
	}
	if c.Bulk.MaxConcurrent < 1 {
		return fmt.Errorf("bulk.max_concurrent must be at least 1")
	}
	return nil
}

func (c *Config) GetHTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.HTTP.Port)
}

func (c *Config) GetGRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.GRPC.Host, c.GRPC.Port)
}

func (c *Config) GetMetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Metrics.Port)
}

func (c *Config) GetRedisAddress() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
