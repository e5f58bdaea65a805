package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. CRAM_DATABASE_URL.
const EnvPrefix = "CRAM"

// Load reads configuration from an optional .env file, an optional
// config.yaml in the working directory, and CRAM_* environment variables.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom behaves like Load but searches dir for config.yaml.
func LoadFrom(dir string) (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// CRAM_SERVER_ALLOWED_ORIGINS arrives as one comma-separated string.
	cfg.Server.AllowedOrigins = splitOrigins(cfg.Server.AllowedOrigins)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("auth.reset_token_lifetime_minutes", 30)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("study.random_deck_size", 25)
	v.SetDefault("study.mastery_threshold", 3)
	v.SetDefault("study.session_idle_minutes", 120)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.worker_count", 2)
	v.SetDefault("storage.upload_dir", "./uploads")
	v.SetDefault("storage.max_upload_bytes", 10<<20)
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
}

// bindEnvironmentVariables makes every key visible to Unmarshal even when it
// has no default and no file value; AutomaticEnv alone only covers Get calls.
func bindEnvironmentVariables(v *viper.Viper) {
	keys := []string{
		"server.port",
		"server.log_level",
		"server.allowed_origins",
		"database.url",
		"redis.url",
		"auth.jwt_secret",
		"auth.token_lifetime_minutes",
		"auth.refresh_token_lifetime_minutes",
		"auth.reset_token_lifetime_minutes",
		"auth.bcrypt_cost",
		"auth.admin_email",
		"study.random_deck_size",
		"study.mastery_threshold",
		"study.session_idle_minutes",
		"task.queue_size",
		"task.worker_count",
		"storage.upload_dir",
		"storage.max_upload_bytes",
		"llm.gemini_api_key",
		"llm.model_name",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

func splitOrigins(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, origin := range strings.Split(entry, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}
