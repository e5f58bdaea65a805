package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"    validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Study    StudyConfig    `mapstructure:"study"    validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// AllowedOrigins lists the browser origins permitted by CORS.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig holds the connection URL for the Redis instance backing
// token revocation and the missed-card tracker.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,min=1,max=44640"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,min=1,max=44640"`
	ResetTokenLifetimeMinutes   int    `mapstructure:"reset_token_lifetime_minutes"   validate:"required,min=1,max=1440"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"required,min=4,max=31"`
	// AdminEmail identifies the single administrator account. Matching is case-insensitive.
	AdminEmail string `mapstructure:"admin_email" validate:"required,email"`
}

// StudyConfig tunes study session construction and mastery tracking.
type StudyConfig struct {
	RandomDeckSize   int `mapstructure:"random_deck_size"  validate:"required,min=1"`
	MasteryThreshold int `mapstructure:"mastery_threshold" validate:"required,min=1"`
	// SessionIdleMinutes is how long an untouched session is kept in memory.
	SessionIdleMinutes int `mapstructure:"session_idle_minutes" validate:"required,min=1"`
}

// TaskConfig sizes the background task runner.
type TaskConfig struct {
	QueueSize   int `mapstructure:"queue_size"   validate:"required,min=1"`
	WorkerCount int `mapstructure:"worker_count" validate:"required,min=1"`
}

// StorageConfig controls where uploaded essays are written.
type StorageConfig struct {
	UploadDir      string `mapstructure:"upload_dir"       validate:"required"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" validate:"required,min=1"`
}

// LLMConfig contains all LLM integration related settings.
// An empty GeminiAPIKey disables essay grading.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	ModelName    string `mapstructure:"model_name"`
}

// GradingEnabled reports whether enough settings are present to call the LLM.
func (c LLMConfig) GradingEnabled() bool {
	return c.GeminiAPIKey != "" && c.ModelName != ""
}
