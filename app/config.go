package chatter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"

	"github.com/spf13/viper"
)

type Mode string

const (
	DevMode  Mode = "dev"
	ProdMode Mode = "prod"
)

type Config struct {
	Mode Mode `validate:"required,oneof=dev prod"`
	// Port is the Port number to listen on. The default is 8080.
	Port int `validate:"required,port"`
	// Hostname is the Hostname to listen on. The default is 0.0.0.0.
	Hostname string `validate:"required"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel slog.Level `mapstructure:"log_level"`
	SQLite   struct {
		// File is the path to the SQLite database file.
		File string `validate:"required"`
		// Migrations overrides the embedded migrations with the files in this directory.
		Migrations string
	}
	// AllowedOrigins is a list of origins that are allowed to call the API.
	// The default is ["*"].
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"min=1"`
	Static         struct {
		// Dir is served at / when set.
		Dir      string
		Fallback string `validate:"required_with=Dir"`
	}
	GIF struct {
		// APIKey is the GIPHY key. GIF search is disabled without it.
		APIKey   string        `mapstructure:"api_key"`
		BaseURL  string        `mapstructure:"base_url" validate:"omitempty,url"`
		CacheTTL time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
		// RedisAddr switches the search cache from memory to redis.
		RedisAddr string `mapstructure:"redis_addr" validate:"omitempty,hostname_port"`
	}
	TLS struct {
		Crt string `validate:"required_with=Key"`
		Key string `validate:"required_with=Crt"`
	}
	valid bool
}

// LoadConfig loads the configuration from an optional config file, an optional
// .env file and environment variables, in increasing order of precedence.
// If file is empty, config.yaml is looked up in the working directory.
// Any invalid configuration will not be loaded, and the error wil be cought in the validation step.
func LoadConfig(file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// every key needs a default so that AutomaticEnv can see it on Unmarshal
	v.SetDefault("mode", string(DevMode))
	v.SetDefault("port", 8080)
	v.SetDefault("hostname", "0.0.0.0")
	v.SetDefault("log_level", "info")
	v.SetDefault("sqlite.file", "./roomchat.db")
	v.SetDefault("sqlite.migrations", "")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("static.dir", "")
	v.SetDefault("static.fallback", "index.html")
	v.SetDefault("gif.api_key", "")
	v.SetDefault("gif.base_url", "")
	v.SetDefault("gif.cache_ttl", "10m")
	v.SetDefault("gif.redis_addr", "")
	v.SetDefault("tls.crt", "")
	v.SetDefault("tls.key", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config,
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(",")),
		),
	); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.valid {
		return nil
	}
	err := validate.Struct(c)
	if err != nil {
		return err
	}
	c.valid = true
	return nil
}

// Addr is the address the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

func FormatValidationErrors(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	trans, _ := uniTrans.GetTranslator("en")
	translated := errs.Translate(trans)

	var sb strings.Builder
	for _, k := range slices.Sorted(maps.Keys(translated)) {
		sb.WriteString(translated[k])
		sb.WriteString("\n")
	}
	return sb.String()
}
