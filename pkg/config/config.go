package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// VenueConfig is the per-venue connection block.
type VenueConfig struct {
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit struct {
		Capacity     int     `yaml:"capacity"`
		RefillPerSec float64 `yaml:"refill_per_sec"`
	} `yaml:"rate_limit"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Collector struct {
		Symbols        []string `yaml:"symbols"`
		OrderBookDepth int      `yaml:"orderbook_depth"`
		TradeBatch     int      `yaml:"trade_batch"`
		Cadences       struct {
			Quote       time.Duration `yaml:"quote"`
			OrderBook   time.Duration `yaml:"orderbook"`
			Trade       time.Duration `yaml:"trade"`
			Derivatives time.Duration `yaml:"derivatives"`
			Positioning time.Duration `yaml:"positioning"`
			LargeFlow   time.Duration `yaml:"largeflow"`
		} `yaml:"cadences"`
		Backoff struct {
			Base        time.Duration `yaml:"base"`
			Cap         time.Duration `yaml:"cap"`
			MaxAttempts int           `yaml:"max_attempts"`
			Cooldown    time.Duration `yaml:"cooldown"`
		} `yaml:"backoff"`
	} `yaml:"collector"`
	Venues struct {
		BinancePerps VenueConfig `yaml:"binance_perps"`
		BinanceSpot  struct {
			VenueConfig `yaml:",inline"`
			Stream      struct {
				Enabled        bool          `yaml:"enabled"`
				URL            string        `yaml:"url"`
				ReconnectDelay time.Duration `yaml:"reconnect_delay"`
				PingInterval   time.Duration `yaml:"ping_interval"`
			} `yaml:"stream"`
		} `yaml:"binance_spot"`
		Gate   VenueConfig `yaml:"gate"`
		Kucoin VenueConfig `yaml:"kucoin"`
		Bitget struct {
			VenueConfig     `yaml:",inline"`
			LargeFlowWindow time.Duration `yaml:"largeflow_window"`
		} `yaml:"bitget"`
	} `yaml:"venues"`
	Engine struct {
		Lookback              time.Duration `yaml:"lookback"`
		EvalInterval          time.Duration `yaml:"eval_interval"`
		ExpectedQuoteInterval time.Duration `yaml:"expected_quote_interval"`
		DepthBands            []float64     `yaml:"depth_bands"`
		RoundIncrements       []float64     `yaml:"round_increments"`
		LargeFlowThreshold    float64       `yaml:"largeflow_threshold"`
		Weights               struct {
			Symmetric         float64 `yaml:"symmetric"`
			Round             float64 `yaml:"round"`
			SpreadConsistency float64 `yaml:"spread_consistency"`
			QuoteFrequency    float64 `yaml:"quote_frequency"`
		} `yaml:"weights"`
	} `yaml:"engine"`
	Rollup struct {
		Bucket   time.Duration `yaml:"bucket"`
		Window   time.Duration `yaml:"window"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"rollup"`
	Retention struct {
		Interval    time.Duration `yaml:"interval"`
		Quote       time.Duration `yaml:"quote"`
		OrderBook   time.Duration `yaml:"orderbook"`
		Trade       time.Duration `yaml:"trade"`
		Derivatives time.Duration `yaml:"derivatives"`
		Positioning time.Duration `yaml:"positioning"`
		LargeFlow   time.Duration `yaml:"largeflow"`
		Metric      time.Duration `yaml:"metric"`
		Rollup      time.Duration `yaml:"rollup"`
	} `yaml:"retention"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
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

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Collector.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Collector.Symbols) == 0 {
		return fmt.Errorf("collector.symbols cannot be empty")
	}
	if !c.Venues.BinancePerps.Enabled && !c.Venues.BinanceSpot.Enabled &&
		!c.Venues.Gate.Enabled && !c.Venues.Kucoin.Enabled && !c.Venues.Bitget.Enabled {
		return fmt.Errorf("at least one venue must be enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
