package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	S3         S3Config         `mapstructure:"s3"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Auth       AuthConfig       `mapstructure:"auth"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig selects the repository backend. Driver is "mongo" or "postgres";
// for postgres URI is a DSN and Name is ignored.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AuthConfig holds the shared secret the identity bridge presents on sign-in.
type AuthConfig struct {
	BridgeSecret string `mapstructure:"bridge_secret"`
}

type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ExtractionConfig struct {
	MaxLines int `mapstructure:"max_lines"`
	MinChars int `mapstructure:"min_chars"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// defaults doubles as the list of known keys: AutomaticEnv only resolves keys
// viper already knows about, so every key gets an entry, even an empty one.
var defaults = map[string]any{
	"server.address":       ":8080",
	"database.driver":      "mongo",
	"database.uri":         "mongodb://localhost:27017",
	"database.name":        "scan2cal",
	"s3.endpoint":          "",
	"s3.region":            "",
	"s3.access_key_id":     "",
	"s3.secret_access_key": "",
	"s3.bucket_name":       "",
	"s3.use_path_style":    true,
	"jwt.secret":           "",
	"jwt.expiration":       "1h",
	"auth.bridge_secret":   "",
	"llm.api_key":          "",
	"llm.model":            "gpt-4o-mini",
	"llm.base_url":         "",
	"llm.timeout":          "60s",
	"extraction.max_lines": 200,
	"extraction.min_chars": 20,
	"log.level":            "info",
	"log.format":           "json",
}

// LoadConfig reads configuration from <path>/config.yaml (optional) and
// environment variables. Nested keys map to env names with "." replaced
// by "_", e.g. s3.bucket_name -> S3_BUCKET_NAME.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// A missing file is fine, the service can run on env vars alone.
	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("read config: %w", err)
		}
	}

	// Durations such as "1h" or "60s" decode straight into time.Duration fields.
	if err = v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, nil
}

// Validate reports every missing required value at once.
func (c Config) Validate() error {
	var missing []string
	if c.S3.BucketName == "" {
		missing = append(missing, "s3.bucket_name")
	}
	if c.S3.Region == "" {
		missing = append(missing, "s3.region")
	}
	if c.Database.URI == "" {
		missing = append(missing, "database.uri")
	}
	if c.LLM.APIKey == "" {
		missing = append(missing, "llm.api_key")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret")
	}
	if c.Auth.BridgeSecret == "" {
		missing = append(missing, "auth.bridge_secret")
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "missing required configuration: "+strings.Join(missing, ", "))
	}
	switch c.Database.Driver {
	case "mongo", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("unsupported database.driver %q", c.Database.Driver))
	}
	if c.Extraction.MaxLines <= 0 {
		problems = append(problems, "extraction.max_lines must be positive")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
