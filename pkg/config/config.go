package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		WebhookSecret   string        `yaml:"webhook_secret"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Upbit struct {
		APIBase        string        `yaml:"api_base"`
		WebSocketURL   string        `yaml:"websocket_url"`
		AccessKey      string        `yaml:"access_key"`
		SecretKey      string        `yaml:"secret_key"`
		Timeout        time.Duration `yaml:"timeout"`
		Stream         bool          `yaml:"stream"`
		StreamMarkets  []string      `yaml:"stream_markets"`
		PriceStaleness time.Duration `yaml:"price_staleness"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"upbit"`
	Trading struct {
		DirectionPolicy string        `yaml:"direction_policy"` // gated or direct
		OrderMinKRW     int64         `yaml:"order_min_krw"`
		LotPrecision    int           `yaml:"lot_precision"`
		DedupWindow     time.Duration `yaml:"dedup_window"`
		PollInterval    time.Duration `yaml:"poll_interval"`
		PollMaxAttempts int           `yaml:"poll_max_attempts"`
	} `yaml:"trading"`
	Trend struct {
		ReferenceMarket string        `yaml:"reference_market"`
		CandleUnit      int           `yaml:"candle_unit"` // minutes per candle
		CandleCount     int           `yaml:"candle_count"`
		RefreshInterval time.Duration `yaml:"refresh_interval"`
	} `yaml:"trend"`
	Dedup struct {
		Backend  string `yaml:"backend"` // memory or redis
		FailOpen bool   `yaml:"fail_open"`
		Redis    struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"dedup"`
	Journal struct {
		Backend string `yaml:"backend"` // kafka, clickhouse, or none
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic"`
			RequiredAcks int           `yaml:"required_acks"`
			Compression  string        `yaml:"compression"`
			MaxAttempts  int           `yaml:"max_attempts"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			UseHTTP      bool          `yaml:"use_http"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"clickhouse"`
	} `yaml:"journal"`
	Notify struct {
		Enabled  bool   `yaml:"enabled"`
		SMTPHost string `yaml:"smtp_host"`
		SMTPPort int    `yaml:"smtp_port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
		To       string `yaml:"to"`
	} `yaml:"notify"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables (secrets first)
	if v := os.Getenv("UPBIT_ACCESS_KEY"); v != "" {
		c.Upbit.AccessKey = v
	}
	if v := os.Getenv("UPBIT_SECRET_KEY"); v != "" {
		c.Upbit.SecretKey = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		c.Server.WebhookSecret = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notify.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Dedup.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Journal.Kafka.Brokers = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5555
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Upbit.APIBase == "" {
		c.Upbit.APIBase = "https://api.upbit.com"
	}
	if c.Upbit.WebSocketURL == "" {
		c.Upbit.WebSocketURL = "wss://api.upbit.com/websocket/v1"
	}
	if c.Upbit.Timeout == 0 {
		c.Upbit.Timeout = 10 * time.Second
	}
	if c.Upbit.PriceStaleness == 0 {
		c.Upbit.PriceStaleness = 5 * time.Second
	}
	if c.Upbit.ReconnectDelay == 0 {
		c.Upbit.ReconnectDelay = 3 * time.Second
	}
	if c.Upbit.PingInterval == 0 {
		c.Upbit.PingInterval = 30 * time.Second
	}
	if c.Trading.DirectionPolicy == "" {
		c.Trading.DirectionPolicy = "gated"
	}
	if c.Trading.OrderMinKRW == 0 {
		c.Trading.OrderMinKRW = 50000
	}
	if c.Trading.LotPrecision == 0 {
		c.Trading.LotPrecision = 8
	}
	if c.Trading.DedupWindow == 0 {
		c.Trading.DedupWindow = 30 * time.Second
	}
	if c.Trading.PollInterval == 0 {
		c.Trading.PollInterval = 5 * time.Second
	}
	if c.Trading.PollMaxAttempts == 0 {
		c.Trading.PollMaxAttempts = 60
	}
	if c.Trend.ReferenceMarket == "" {
		c.Trend.ReferenceMarket = "KRW-DOGE"
	}
	if c.Trend.CandleUnit == 0 {
		c.Trend.CandleUnit = 10
	}
	if c.Trend.CandleCount == 0 {
		c.Trend.CandleCount = 200
	}
	if c.Trend.RefreshInterval == 0 {
		c.Trend.RefreshInterval = 10 * time.Minute
	}
	if c.Dedup.Backend == "" {
		c.Dedup.Backend = "memory"
	}
	if c.Dedup.Redis.Prefix == "" {
		c.Dedup.Redis.Prefix = "tradehook"
	}
	if c.Journal.Backend == "" {
		c.Journal.Backend = "none"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Trading.DirectionPolicy != "gated" && c.Trading.DirectionPolicy != "direct" {
		return fmt.Errorf("trading.direction_policy must be 'gated' or 'direct', got '%s'", c.Trading.DirectionPolicy)
	}
	if c.Trading.OrderMinKRW < 0 {
		return fmt.Errorf("trading.order_min_krw must be >= 0")
	}
	switch c.Dedup.Backend {
	case "memory":
	case "redis":
		if c.Dedup.Redis.Addr == "" {
			return fmt.Errorf("dedup.redis.addr is required for redis backend")
		}
	default:
		return fmt.Errorf("dedup.backend must be 'memory' or 'redis', got '%s'", c.Dedup.Backend)
	}
	switch c.Journal.Backend {
	case "none":
	case "kafka":
		if len(c.Journal.Kafka.Brokers) == 0 {
			return fmt.Errorf("journal.kafka.brokers cannot be empty")
		}
		if c.Journal.Kafka.Topic == "" {
			return fmt.Errorf("journal.kafka.topic is required")
		}
	case "clickhouse":
		if c.Journal.ClickHouse.Host == "" {
			return fmt.Errorf("journal.clickhouse.host is required")
		}
	default:
		return fmt.Errorf("journal.backend must be 'kafka', 'clickhouse' or 'none', got '%s'", c.Journal.Backend)
	}
	if c.Notify.Enabled {
		if c.Notify.SMTPHost == "" || c.Notify.From == "" || c.Notify.To == "" {
			return fmt.Errorf("notify requires smtp_host, from and to when enabled")
		}
	}
	return nil
}
