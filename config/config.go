package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Mongo      MongoConfig      `mapstructure:"mongo"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Local      LocalConfig      `mapstructure:"local"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	RxNav      RxNavConfig      `mapstructure:"rxnav"`
	Log        LogConfig        `mapstructure:"log"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
	Care       CareConfig       `mapstructure:"care"`
}

type ServerConfig struct {
	Address      string   `mapstructure:"address"`
	Port         int      `mapstructure:"port"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type MongoConfig struct {
	URI      string        `mapstructure:"uri"`
	Database string        `mapstructure:"database"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RedisConfig enables the patient cache when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type StorageConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type LocalConfig struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

type AuthConfig struct {
	SessionSecret     string        `mapstructure:"session_secret"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"`
	MinPasswordLength int           `mapstructure:"min_password_length"`
}

// KafkaConfig enables the event sink when Brokers is not empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RxNavConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	MaxEntries int           `mapstructure:"max_entries"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	Service string `mapstructure:"service"`
}

type JobsConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	FinishCoursesSpec string `mapstructure:"finish_courses_spec"`
}

type MigrationsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type CareConfig struct {
	WatchWindow  int           `mapstructure:"watch_window"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "eldercare")
	v.SetDefault("mongo.timeout", 10*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("storage.bucket", "eldercare-photos")
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("local.dir", "./data/local")
	v.SetDefault("local.in_memory", false)

	v.SetDefault("auth.session_ttl", 30*24*time.Hour)
	v.SetDefault("auth.min_password_length", 6)

	v.SetDefault("kafka.topic", "eldercare.events")

	v.SetDefault("rxnav.base_url", "https://rxnav.nlm.nih.gov")
	v.SetDefault("rxnav.timeout", 10*time.Second)
	v.SetDefault("rxnav.retry_count", 2)
	v.SetDefault("rxnav.rate_limit", 20)
	v.SetDefault("rxnav.max_entries", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.service", "eldercare360")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.finish_courses_spec", "5 0 * * *")

	v.SetDefault("migrations.enabled", true)

	v.SetDefault("care.watch_window", 50)
	v.SetDefault("care.poll_interval", 15*time.Second)
}

/*
* Load .env if present, a missing file is not an error
* Apply defaults, then ELDERCARE_ prefixed environment variables
* Read the optional config file
* Unmarshal and validate
 */
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded:", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ELDERCARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"auth.session_secret", "storage.endpoint", "storage.access_key",
		"storage.secret_key", "storage.public_base_url", "redis.password", "kafka.brokers"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Server.AllowOrigins = splitList(cfg.Server.AllowOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList accepts both a proper list and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		return fmt.Errorf("mongo.uri and mongo.database are required")
	}
	if len(c.Auth.SessionSecret) < 16 {
		return fmt.Errorf("auth.session_secret must be at least 16 characters")
	}
	if c.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be positive")
	}
	if c.Care.WatchWindow < 1 {
		return fmt.Errorf("care.watch_window must be positive")
	}
	if c.Care.PollInterval <= 0 {
		return fmt.Errorf("care.poll_interval must be positive")
	}
	if c.RxNav.RateLimit <= 0 {
		return fmt.Errorf("rxnav.rate_limit must be positive")
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
