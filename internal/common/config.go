package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Files     FilesConfig     `yaml:"files"`
	Engine    EngineConfig    `yaml:"engine"`
	LLM       LLMConfig       `yaml:"llm"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Export    ExportConfig    `yaml:"export"`
	Templates TemplatesConfig `yaml:"templates"`
	OCR       OCRConfig       `yaml:"ocr"`
	Log       LogConfig       `yaml:"log"`
}

// FilesConfig controls selection-time validation.
type FilesConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb"`
	SkipHidden bool `yaml:"skip_hidden"`
}

// EngineConfig holds the run timeouts. Zero means wait indefinitely.
type EngineConfig struct {
	ExtractTimeout  time.Duration `yaml:"extract_timeout"`
	ApprovalTimeout time.Duration `yaml:"approval_timeout"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Temperature     float32       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxContentChars int           `yaml:"max_content_chars"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"`
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// CacheConfig selects the recent-selections backend. An empty RedisAddr keeps it in memory.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	RecentLimit   int           `yaml:"recent_limit"`
	TTL           time.Duration `yaml:"ttl"`
}

// ExportConfig selects where artifacts are written.
type ExportConfig struct {
	Sink      string `yaml:"sink"`
	OutputDir string `yaml:"output_dir"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Region  string `yaml:"s3_region"`
	S3Prefix  string `yaml:"s3_prefix"`
}

// TemplatesConfig points at the template library.
type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// OCRConfig controls the tesseract fallback for PDFs without a text layer.
type OCRConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Lang        string `yaml:"lang"`
	TessdataDir string `yaml:"tessdata_dir"`
	DPI         int    `yaml:"dpi"`
	MaxPages    int    `yaml:"max_pages"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the built-in defaults before any file or env overrides.
func DefaultConfig() *Config {
	return &Config{
		Files: FilesConfig{MaxSizeMB: 50, SkipHidden: true},
		LLM: LLMConfig{
			Provider:        "gemini",
			Model:           "gemini-1.5-flash",
			Temperature:     0.0,
			Timeout:         60 * time.Second,
			MaxContentChars: 30000,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:docbatch.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server:    ServerConfig{GRPCAddr: ":8080"},
		Cache:     CacheConfig{Prefix: "docbatch:", RecentLimit: 20, TTL: 30 * 24 * time.Hour},
		Export:    ExportConfig{Sink: "local", OutputDir: "./exports"},
		Templates: TemplatesConfig{Dir: "./templates"},
		OCR:       OCRConfig{Lang: "eng", DPI: 300, MaxPages: 20},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig reads .env (if present), then the YAML file named by DOCBATCH_CONFIG, then environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path := os.Getenv("DOCBATCH_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto c.
func (c *Config) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Files.MaxSizeMB = getEnvAsInt("FILES_MAX_SIZE_MB", c.Files.MaxSizeMB)
	c.Files.SkipHidden = getEnvAsBool("FILES_SKIP_HIDDEN", c.Files.SkipHidden)

	c.Engine.ExtractTimeout = getEnvAsDuration("ENGINE_EXTRACT_TIMEOUT", c.Engine.ExtractTimeout)
	c.Engine.ApprovalTimeout = getEnvAsDuration("ENGINE_APPROVAL_TIMEOUT", c.Engine.ApprovalTimeout)

	c.LLM.Provider = getEnv("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxContentChars = getEnvAsInt("LLM_MAX_CONTENT_CHARS", c.LLM.MaxContentChars)
	switch c.LLM.Provider {
	case "openai":
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	default:
		c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	}

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)

	c.Cache.RedisAddr = getEnv("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvAsInt("REDIS_DB", c.Cache.RedisDB)
	c.Cache.Prefix = getEnv("CACHE_PREFIX", c.Cache.Prefix)
	c.Cache.RecentLimit = getEnvAsInt("CACHE_RECENT_LIMIT", c.Cache.RecentLimit)
	c.Cache.TTL = getEnvAsDuration("CACHE_TTL", c.Cache.TTL)

	c.Export.Sink = getEnv("EXPORT_SINK", c.Export.Sink)
	c.Export.OutputDir = getEnv("EXPORT_DIR", c.Export.OutputDir)
	c.Export.S3Bucket = getEnv("EXPORT_S3_BUCKET", c.Export.S3Bucket)
	c.Export.S3Region = getEnv("AWS_REGION", c.Export.S3Region)
	c.Export.S3Prefix = getEnv("EXPORT_S3_PREFIX", c.Export.S3Prefix)

	c.Templates.Dir = getEnv("TEMPLATES_DIR", c.Templates.Dir)

	c.OCR.Enabled = getEnvAsBool("OCR_ENABLED", c.OCR.Enabled)
	c.OCR.Lang = getEnv("OCR_LANG", c.OCR.Lang)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// MaxFileSizeBytes converts the configured ceiling to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Files.MaxSizeMB) * 1024 * 1024
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("files.max_size_mb", c.Files.MaxSizeMB, Positive).
		Field("llm.provider", c.LLM.Provider, OneOf("gemini", "openai")).
		Field("llm.api_key", c.LLM.APIKey, Required).
		Field("database.driver", c.Database.Driver, OneOf("sqlite", "postgres")).
		Field("database.dsn", c.Database.DSN, Required).
		Field("export.sink", c.Export.Sink, OneOf("local", "s3"))
	if c.Export.Sink == "s3" {
		v.Field("export.s3_bucket", c.Export.S3Bucket, Required)
	}
	if c.Engine.ExtractTimeout < 0 || c.Engine.ApprovalTimeout < 0 {
		v.Field("engine", "negative timeout", func(name string, value interface{}) *ValidationError {
			return &ValidationError{Field: name, Value: value, Message: "timeouts must not be negative"}
		})
	}
	return v.Err("CONFIG_ERROR")
}

// ValidateServer additionally requires a listen address.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}
