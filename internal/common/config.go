package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPathEnv points at an optional YAML file; environment variables override it.
const ConfigPathEnv = "RECEIPTS_BOT_CONFIG"

// Sink and store selectors.
const (
	SinkSheets = "sheets"
	SinkXLSX   = "xlsx"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// DefaultRoster is the attribution roster offered when none is configured.
var DefaultRoster = []string{"Vikas Uppal", "Anupam K", "Prasanna Patel", "Akhilesh", "Shashank"}

// MaxRoster is the number of named buttons that fit next to the free-text option.
const MaxRoster = 5

// Config holds all application configuration
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	LLM      LLMConfig      `yaml:"llm"`
	Sheet    SheetConfig    `yaml:"sheet"`
	Bot      BotConfig      `yaml:"bot"`
	Session  SessionConfig  `yaml:"session"`
	Server   ServerConfig   `yaml:"server"`
	Journal  JournalConfig  `yaml:"journal"`
	Archive  ArchiveConfig  `yaml:"archive"`
	LogLevel string         `yaml:"logLevel"`
}

// TelegramConfig holds chat transport settings
type TelegramConfig struct {
	Token         string `yaml:"token"`
	APIEndpoint   string `yaml:"apiEndpoint"`
	WebhookURL    string `yaml:"webhookUrl"`
	WebhookSecret string `yaml:"webhookSecret"`
	PollTimeout   int    `yaml:"pollTimeout"` // seconds
}

// LLMConfig holds model endpoint settings
type LLMConfig struct {
	APIKey          string        `yaml:"apiKey"`
	BaseURL         string        `yaml:"baseUrl"`
	VisionModel     string        `yaml:"visionModel"`
	TextModel       string        `yaml:"textModel"`
	Temperature     float32       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	VisionMaxTokens int           `yaml:"visionMaxTokens"`
	FieldsMaxTokens int           `yaml:"fieldsMaxTokens"`
	RepairMaxTokens int           `yaml:"repairMaxTokens"`
}

// SheetConfig holds spreadsheet sink settings
type SheetConfig struct {
	Sink            string `yaml:"sink"`
	CredentialsJSON string `yaml:"credentialsJson"`
	SpreadsheetID   string `yaml:"spreadsheetId"`
	SheetName       string `yaml:"sheetName"`
	XLSXPath        string `yaml:"xlsxPath"`
	Layout          string `yaml:"layout"`
	DefaultCurrency string `yaml:"defaultCurrency"`
	CurrencyPattern string `yaml:"currencyPattern"`
}

// BotConfig holds conversation and dispatch settings
type BotConfig struct {
	Roster         []string      `yaml:"roster"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queueSize"`
	TempDir        string        `yaml:"tempDir"`
	ProcessTimeout time.Duration `yaml:"processTimeout"`
}

// SessionConfig selects where conversation state lives
type SessionConfig struct {
	Store         string        `yaml:"store"`
	RedisAddr     string        `yaml:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword"`
	RedisDB       int           `yaml:"redisDb"`
	TTL           time.Duration `yaml:"ttl"`
}

// ServerConfig holds listener addresses
type ServerConfig struct {
	HTTPAddr       string `yaml:"httpAddr"`
	GRPCHealthAddr string `yaml:"grpcHealthAddr"`
}

// JournalConfig holds extraction journal settings; an empty DSN disables it
type JournalConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime"`
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime"`
	DialTimeout     time.Duration `yaml:"dialTimeout"`
}

// ArchiveConfig holds S3-compatible receipt archive settings; an empty endpoint disables it
type ArchiveConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	AccessKey     string        `yaml:"accessKey"`
	SecretKey     string        `yaml:"secretKey"`
	Bucket        string        `yaml:"bucket"`
	UseSSL        bool          `yaml:"useSsl"`
	PublicBaseURL string        `yaml:"publicBaseUrl"`
	PresignExpiry time.Duration `yaml:"presignExpiry"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: 60,
		},
		LLM: LLMConfig{
			BaseURL:         "https://api.groq.com/openai/v1",
			VisionModel:     "meta-llama/llama-4-scout-17b-16e-instruct",
			TextModel:       "llama-3.3-70b-versatile",
			Temperature:     0.1,
			Timeout:         60 * time.Second,
			VisionMaxTokens: 2000,
			FieldsMaxTokens: 800,
			RepairMaxTokens: 500,
		},
		Sheet: SheetConfig{
			Sink:            SinkSheets,
			SheetName:       "Sheet1",
			XLSXPath:        "./receipts.xlsx",
			Layout:          "simple",
			DefaultCurrency: "INR",
			CurrencyPattern: "$#,##0.00",
		},
		Bot: BotConfig{
			Roster:         append([]string(nil), DefaultRoster...),
			Workers:        4,
			QueueSize:      64,
			TempDir:        os.TempDir(),
			ProcessTimeout: 3 * time.Minute,
		},
		Session: SessionConfig{
			Store: SessionMemory,
			TTL:   24 * time.Hour,
		},
		Server: ServerConfig{
			HTTPAddr: ":8080",
		},
		Journal: JournalConfig{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Archive: ArchiveConfig{
			Bucket:        "receipts",
			UseSSL:        true,
			PresignExpiry: 7 * 24 * time.Hour,
		},
		LogLevel: "info",
	}
}

// LoadConfig loads defaults, then the optional YAML file, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv(ConfigPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file "+path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, NewAppError(CodeConfig, "parse config file "+path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Telegram.Token = getEnv("TELEGRAM_TOKEN", c.Telegram.Token)
	c.Telegram.APIEndpoint = getEnv("TELEGRAM_API_ENDPOINT", c.Telegram.APIEndpoint)
	c.Telegram.WebhookURL = getEnv("WEBHOOK_URL", c.Telegram.WebhookURL)
	c.Telegram.WebhookSecret = getEnv("WEBHOOK_SECRET", c.Telegram.WebhookSecret)
	c.Telegram.PollTimeout = getEnvAsInt("TELEGRAM_POLL_TIMEOUT", c.Telegram.PollTimeout)

	c.LLM.APIKey = getEnv("GROQ_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.VisionModel = getEnv("VISION_MODEL", c.LLM.VisionModel)
	c.LLM.TextModel = getEnv("TEXT_MODEL", c.LLM.TextModel)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)

	c.Sheet.Sink = getEnv("SINK", c.Sheet.Sink)
	c.Sheet.CredentialsJSON = getEnv("CREDENTIALS_JSON", c.Sheet.CredentialsJSON)
	c.Sheet.SpreadsheetID = getEnv("SPREADSHEET_ID", c.Sheet.SpreadsheetID)
	c.Sheet.SheetName = getEnv("SHEET_NAME", c.Sheet.SheetName)
	c.Sheet.XLSXPath = getEnv("XLSX_PATH", c.Sheet.XLSXPath)
	c.Sheet.Layout = getEnv("LAYOUT", c.Sheet.Layout)
	c.Sheet.DefaultCurrency = strings.ToUpper(getEnv("DEFAULT_CURRENCY", c.Sheet.DefaultCurrency))
	c.Sheet.CurrencyPattern = getEnv("CURRENCY_PATTERN", c.Sheet.CurrencyPattern)

	if v := os.Getenv("ROSTER"); v != "" {
		c.Bot.Roster = splitList(v)
	}
	c.Bot.Workers = getEnvAsInt("WORKERS", c.Bot.Workers)
	c.Bot.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Bot.QueueSize)
	c.Bot.TempDir = getEnv("TEMP_DIR", c.Bot.TempDir)
	c.Bot.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Bot.ProcessTimeout)

	c.Session.Store = getEnv("SESSION_STORE", c.Session.Store)
	c.Session.RedisAddr = getEnv("REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPassword = getEnv("REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.RedisDB = getEnvAsInt("REDIS_DB", c.Session.RedisDB)
	c.Session.TTL = getEnvAsDuration("SESSION_TTL", c.Session.TTL)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	if port := os.Getenv("PORT"); port != "" && os.Getenv("HTTP_ADDR") == "" {
		c.Server.HTTPAddr = ":" + port
	}
	c.Server.GRPCHealthAddr = getEnv("GRPC_HEALTH_ADDR", c.Server.GRPCHealthAddr)

	c.Journal.DSN = getEnv("JOURNAL_DSN", c.Journal.DSN)
	c.Journal.MaxConns = getEnvAsInt32("JOURNAL_MAX_CONNS", c.Journal.MaxConns)

	c.Archive.Endpoint = getEnv("ARCHIVE_ENDPOINT", c.Archive.Endpoint)
	c.Archive.AccessKey = getEnv("ARCHIVE_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = getEnv("ARCHIVE_SECRET_KEY", c.Archive.SecretKey)
	c.Archive.Bucket = getEnv("ARCHIVE_BUCKET", c.Archive.Bucket)
	c.Archive.UseSSL = getEnvAsBool("ARCHIVE_USE_SSL", c.Archive.UseSSL)
	c.Archive.PublicBaseURL = getEnv("ARCHIVE_PUBLIC_BASE_URL", c.Archive.PublicBaseURL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateLLM checks the settings needed to call the models.
func (c *Config) ValidateLLM() error {
	v := NewValidator()
	v.Field("GROQ_API_KEY", c.LLM.APIKey, Required)
	v.Field("DEFAULT_CURRENCY", c.Sheet.DefaultCurrency, CurrencyCode)
	if err := v.Error(); err != nil {
		return NewAppError(CodeConfig, "invalid model configuration", fmt.Errorf("%w: %v", ErrConfig, err))
	}
	return nil
}

// Validate checks everything the bot needs before it can start.
func (c *Config) Validate() error {
	if err := c.ValidateLLM(); err != nil {
		return err
	}

	v := NewValidator()
	v.Field("TELEGRAM_TOKEN", c.Telegram.Token, Required)
	v.Field("LAYOUT", c.Sheet.Layout, OneOf("simple", "rich"))
	v.Field("SINK", c.Sheet.Sink, OneOf(SinkSheets, SinkXLSX))
	switch c.Sheet.Sink {
	case SinkSheets:
		v.Field("CREDENTIALS_JSON", c.Sheet.CredentialsJSON, Required)
		v.Field("SPREADSHEET_ID", c.Sheet.SpreadsheetID, Required)
	case SinkXLSX:
		v.Field("XLSX_PATH", c.Sheet.XLSXPath, Required)
	}
	v.Field("SESSION_STORE", c.Session.Store, OneOf(SessionMemory, SessionRedis))
	if c.Session.Store == SessionRedis {
		v.Field("REDIS_ADDR", c.Session.RedisAddr, Required)
	}
	if len(c.Bot.Roster) == 0 || len(c.Bot.Roster) > MaxRoster {
		v.Add("ROSTER", c.Bot.Roster, fmt.Sprintf("must list between 1 and %d names", MaxRoster))
	}
	if err := v.Error(); err != nil {
		return NewAppError(CodeConfig, "invalid bot configuration", fmt.Errorf("%w: %v", ErrConfig, err))
	}
	return nil
}
