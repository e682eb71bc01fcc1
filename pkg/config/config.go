package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/xaenox/project-shield/internal/classifier"
	"github.com/xaenox/project-shield/internal/storage"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type AnalyzerConfig struct {
	UseAIAnalyzer   bool          `mapstructure:"use_ai_analyzer"`
	Timeout         time.Duration `mapstructure:"timeout"`
	LexiconPath     string        `mapstructure:"lexicon_path"`
	BulkConcurrency int           `mapstructure:"bulk_concurrency"`
	PendingSchedule string        `mapstructure:"pending_schedule"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig reads the YAML file at path and applies environment overrides.
// An empty path uses defaults and the environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "project_shield")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("analyzer.use_ai_analyzer", false)
	v.SetDefault("analyzer.timeout", classifier.DefaultTimeout)
	v.SetDefault("analyzer.bulk_concurrency", 4)
	v.SetDefault("analyzer.pending_schedule", "")
	v.SetDefault("openai.model", classifier.DefaultModel)
	v.SetDefault("openai.max_tokens", classifier.DefaultMaxTokens)
	v.SetDefault("openai.temperature", classifier.DefaultTemperature)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	// Enable environment variable support
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"telegram.token":           "TELEGRAM_TOKEN",
		"openai.api_key":           "OPENAI_API_KEY",
		"openai.model":             "OPENAI_MODEL",
		"analyzer.use_ai_analyzer": "USE_AI_ANALYZER",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := storage.ParseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = DatabaseConfig{
			Host:        dbConfig.Host,
			Port:        dbConfig.Port,
			User:        dbConfig.User,
			Password:    dbConfig.Password,
			DBName:      dbConfig.DBName,
			SSLMode:     dbConfig.SSLMode,
			UseInMemory: config.Database.UseInMemory,
		}
	}

	return &config, nil
}

// StorageConfig returns the database settings in the form storage expects.
func (c *Config) StorageConfig() storage.DatabaseConfig {
	return storage.DatabaseConfig{
		Host:        c.Database.Host,
		Port:        c.Database.Port,
		User:        c.Database.User,
		Password:    c.Database.Password,
		DBName:      c.Database.DBName,
		SSLMode:     c.Database.SSLMode,
		UseInMemory: c.Database.UseInMemory,
	}
}

// AnalyzerConfig builds the analyzer settings, loading the lexicon file when
// one is configured.
func (c *Config) AnalyzerConfig() (classifier.Config, error) {
	temperature := c.OpenAI.Temperature
	cfg := classifier.Config{
		UseAdvanced: c.Analyzer.UseAIAnalyzer,
		APIKey:      c.OpenAI.APIKey,
		Model:       c.OpenAI.Model,
		BaseURL:     c.OpenAI.BaseURL,
		Timeout:     c.Analyzer.Timeout,
		MaxTokens:   c.OpenAI.MaxTokens,
		Temperature: &temperature,
	}

	if c.Analyzer.LexiconPath != "" {
		lex, err := classifier.LoadLexicons(c.Analyzer.LexiconPath)
		if err != nil {
			return classifier.Config{}, err
		}
		cfg.Lexicons = &lex
	}
	return cfg, nil
}
