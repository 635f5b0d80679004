package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Strategy StrategyConfig `yaml:"strategy"`
	API      APIConfig      `yaml:"api"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	Stats    StatsConfig    `yaml:"stats"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Loop     LoopConfig     `yaml:"loop"`
	Log      LogConfig      `yaml:"log"`
}

// BotConfig controla qué se opera y en qué modo.
type BotConfig struct {
	Assets          []string          `yaml:"assets" validate:"required,min=1,dive,required,alphanum"`
	IntervalMinutes int               `yaml:"interval_minutes" validate:"gte=1,lte=1440"`
	DryRun          bool              `yaml:"dry_run"`
	PaperBalance    float64           `yaml:"paper_balance" validate:"gte=0"`
	SlugPrefixes    map[string]string `yaml:"slug_prefixes"` // asset → "btc-updown-15m"
	RecentOutcomes  int               `yaml:"recent_outcomes" validate:"gte=1"`
}

// StrategyConfig son los parámetros de señal y martingala.
type StrategyConfig struct {
	SignalMode          string  `yaml:"signal_mode" validate:"oneof=reverse follow"`
	StreakLength        int     `yaml:"streak_length" validate:"gte=1,lte=10"`
	BaseStake           float64 `yaml:"base_stake" validate:"gt=0"`
	MaxStake            float64 `yaml:"max_stake" validate:"gtefield=BaseStake"`
	ResolutionThreshold float64 `yaml:"resolution_threshold" validate:"gt=0.5,lte=1"`
	MinMultiplier       float64 `yaml:"min_multiplier" validate:"gt=1"`
	PriceBuffer         float64 `yaml:"price_buffer" validate:"gte=0,lt=0.1"`
	MaxLimitPrice       float64 `yaml:"max_limit_price" validate:"gt=0,lt=1"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase              string `yaml:"clob_base" validate:"required,url"`
	GammaBase             string `yaml:"gamma_base" validate:"required,url"`
	PolygonRPC            string `yaml:"polygon_rpc" validate:"omitempty,url"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" validate:"gte=1,lte=120"`
}

// WalletConfig identifica la cuenta que firma. La clave privada solo se lee del entorno.
type WalletConfig struct {
	PrivateKey    string `yaml:"-"`
	SignatureType int    `yaml:"signature_type" validate:"oneof=0 1 2"`
	Funder        string `yaml:"funder" validate:"omitempty,eth_addr"`

	// Allowance de USDC.e hacia los exchanges. Se comprueba al arrancar en live.
	MinAllowance    float64 `yaml:"min_allowance" validate:"gte=0"`
	EnsureApprovals bool    `yaml:"ensure_approvals"` // envía approve desde la EOA si falta
}

// StorageConfig controla dónde se persiste el estado.
type StorageConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=file sqlite redis"`
	Path          string `yaml:"path"`        // fichero JSON o DSN SQLite
	JournalDSN    string `yaml:"journal_dsn"` // diario SQLite opcional con backend file/redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
	RedisKey      string `yaml:"redis_key"`
}

// TelegramConfig configura las notificaciones. Token solo por entorno.
type TelegramConfig struct {
	Token   string `yaml:"-"`
	ChatID  string `yaml:"chat_id"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Retries int    `yaml:"retries" validate:"gte=0,lte=10"`
}

// Enabled es true cuando hay token y chat.
func (t TelegramConfig) Enabled() bool { return t.Token != "" && t.ChatID != "" }

// StatsConfig controla el ledger y los reportes por ventana.
type StatsConfig struct {
	HistoryLimit  int      `yaml:"history_limit" validate:"gte=1"`
	ReportWindows []string `yaml:"report_windows" validate:"dive,required"` // "6h", "24h"
}

// MetricsConfig controla el volcado de métricas Prometheus.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"` // vacío = deshabilitado
}

// LoopConfig controla el modo -loop.
type LoopConfig struct {
	Schedule string `yaml:"schedule"` // cron con segundos
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Un YAML inexistente no es error: se usan defaults + entorno.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// sin fichero: defaults + entorno
	case err != nil:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

var validate = validator.New()

// Validate comprueba tags y reglas entre campos. Un error aquí es fatal.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	if !c.Bot.DryRun && c.Wallet.PrivateKey == "" {
		return errors.New("config.Validate: PRIVATE_KEY is required unless dry_run is enabled")
	}
	if c.Storage.Backend == "redis" && c.Storage.RedisAddr == "" {
		return errors.New("config.Validate: storage.redis_addr is required with the redis backend")
	}
	if c.Storage.Backend != "redis" && c.Storage.Path == "" {
		return fmt.Errorf("config.Validate: storage.path is required with the %s backend", c.Storage.Backend)
	}
	if _, err := c.ReportWindows(); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	if c.MaxPrice().GreaterThan(c.Limit()) {
		return fmt.Errorf("config.Validate: max entry price %s (1/min_multiplier) exceeds max_limit_price %s",
			c.MaxPrice().StringFixed(3), c.Limit())
	}
	return nil
}

// Assets devuelve los assets en mayúsculas.
func (c *Config) Assets() []string {
	out := make([]string, 0, len(c.Bot.Assets))
	for _, a := range c.Bot.Assets {
		out = append(out, strings.ToUpper(a))
	}
	return out
}

// ReportWindows parsea las ventanas de reporte ("6h", "24h").
func (c *Config) ReportWindows() ([]time.Duration, error) {
	out := make([]time.Duration, 0, len(c.Stats.ReportWindows))
	for _, w := range c.Stats.ReportWindows {
		d, err := time.ParseDuration(w)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid report window %q", w)
		}
		out = append(out, d)
	}
	return out, nil
}

// RequestTimeout devuelve el timeout de cada llamada externa.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

func (c *Config) BaseStake() decimal.Decimal {
	return decimal.NewFromFloat(c.Strategy.BaseStake)
}

func (c *Config) MaxStake() decimal.Decimal {
	return decimal.NewFromFloat(c.Strategy.MaxStake)
}

func (c *Config) Threshold() decimal.Decimal {
	return decimal.NewFromFloat(c.Strategy.ResolutionThreshold)
}

func (c *Config) PriceBuffer() decimal.Decimal {
	return decimal.NewFromFloat(c.Strategy.PriceBuffer)
}

// Limit es el precio límite máximo de una orden.
func (c *Config) Limit() decimal.Decimal {
	return decimal.NewFromFloat(c.Strategy.MaxLimitPrice)
}

func (c *Config) MinAllowance() decimal.Decimal {
	return decimal.NewFromFloat(c.Wallet.MinAllowance)
}

func (c *Config) PaperBalance() decimal.Decimal {
	return decimal.NewFromFloat(c.Bot.PaperBalance)
}

// MaxPrice es el precio de entrada máximo: 1 / min_multiplier (1.7 → 0.588).
func (c *Config) MaxPrice() decimal.Decimal {
	return decimal.NewFromInt(1).Div(decimal.NewFromFloat(c.Strategy.MinMultiplier))
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PRIVATE_KEY"); v != "" {
		cfg.Wallet.PrivateKey = v
	}
	if v := os.Getenv("FUNDER_ADDRESS"); v != "" {
		cfg.Wallet.Funder = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("POLYGON_RPC_URL"); v != "" {
		cfg.API.PolygonRPC = v
	}
	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Storage.RedisPassword = v
	}
	if v := os.Getenv("DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DRY_RUN: %w", err)
		}
		cfg.Bot.DryRun = b
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if len(cfg.Bot.Assets) == 0 {
		cfg.Bot.Assets = []string{"BTC", "ETH"}
	}
	if cfg.Bot.IntervalMinutes == 0 {
		cfg.Bot.IntervalMinutes = 15
	}
	if cfg.Bot.PaperBalance == 0 {
		cfg.Bot.PaperBalance = 300
	}
	if cfg.Bot.RecentOutcomes == 0 {
		cfg.Bot.RecentOutcomes = 16
	}
	if cfg.Strategy.SignalMode == "" {
		cfg.Strategy.SignalMode = "reverse"
	}
	if cfg.Strategy.StreakLength == 0 {
		cfg.Strategy.StreakLength = 2
	}
	if cfg.Strategy.BaseStake == 0 {
		cfg.Strategy.BaseStake = 2
	}
	if cfg.Strategy.MaxStake == 0 {
		cfg.Strategy.MaxStake = 64
	}
	if cfg.Strategy.ResolutionThreshold == 0 {
		cfg.Strategy.ResolutionThreshold = 0.85
	}
	if cfg.Strategy.MinMultiplier == 0 {
		cfg.Strategy.MinMultiplier = 1.7
	}
	if cfg.Strategy.PriceBuffer == 0 {
		cfg.Strategy.PriceBuffer = 0.01
	}
	if cfg.Strategy.MaxLimitPrice == 0 {
		cfg.Strategy.MaxLimitPrice = 0.99
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.PolygonRPC == "" {
		cfg.API.PolygonRPC = "https://polygon-rpc.com"
	}
	if cfg.API.RequestTimeoutSeconds == 0 {
		cfg.API.RequestTimeoutSeconds = 10
	}
	if cfg.Wallet.MinAllowance == 0 {
		cfg.Wallet.MinAllowance = 1000
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.Path == "" {
		switch cfg.Storage.Backend {
		case "sqlite":
			cfg.Storage.Path = "streakbot.db"
		case "file":
			cfg.Storage.Path = "bot_state.json"
		}
	}
	if cfg.Telegram.Retries == 0 {
		cfg.Telegram.Retries = 2
	}
	if cfg.Stats.HistoryLimit == 0 {
		cfg.Stats.HistoryLimit = 1000
	}
	if cfg.Stats.ReportWindows == nil {
		cfg.Stats.ReportWindows = []string{"6h", "24h"}
	}
	if cfg.Loop.Schedule == "" {
		cfg.Loop.Schedule = "5 * * * * *"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
