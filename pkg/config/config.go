package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Services ServicesConfig
	Client   ClientConfig
	Breaker  BreakerConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ServicesConfig holds the base URLs of the peer services. The gateway uses
// them for routing; the other services use them for remote lookups.
type ServicesConfig struct {
	AuthURL     string
	StudentURL  string
	TeacherURL  string
	AcademicURL string
	GradeURL    string
}

// ClientConfig tunes the outbound HTTP clients.
type ClientConfig struct {
	Timeout     time.Duration
	RefCacheTTL time.Duration
}

// BreakerConfig tunes the circuit breakers guarding remote dependencies.
type BreakerConfig struct {
	FailureRatio     float64
	MinRequests      uint32
	Interval         time.Duration
	Cooldown         time.Duration
	HalfOpenRequests uint32
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Services = ServicesConfig{
		AuthURL:     v.GetString("AUTH_SERVICE_URL"),
		StudentURL:  v.GetString("STUDENT_SERVICE_URL"),
		TeacherURL:  v.GetString("TEACHER_SERVICE_URL"),
		AcademicURL: v.GetString("ACADEMIC_SERVICE_URL"),
		GradeURL:    v.GetString("GRADE_SERVICE_URL"),
	}

	cfg.Client = ClientConfig{
		Timeout:     parseDuration(v.GetString("CLIENT_TIMEOUT"), 3*time.Second),
		RefCacheTTL: parseDuration(v.GetString("CLIENT_REF_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Breaker = BreakerConfig{
		FailureRatio:     v.GetFloat64("BREAKER_FAILURE_RATIO"),
		MinRequests:      uint32(v.GetInt("BREAKER_MIN_REQUESTS")),
		Interval:         parseDuration(v.GetString("BREAKER_INTERVAL"), time.Minute),
		Cooldown:         parseDuration(v.GetString("BREAKER_COOLDOWN"), 30*time.Second),
		HalfOpenRequests: uint32(v.GetInt("BREAKER_HALF_OPEN_REQUESTS")),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "univ_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AUTH_SERVICE_URL", "http://localhost:8081")
	v.SetDefault("STUDENT_SERVICE_URL", "http://localhost:8082")
	v.SetDefault("TEACHER_SERVICE_URL", "http://localhost:8083")
	v.SetDefault("ACADEMIC_SERVICE_URL", "http://localhost:8084")
	v.SetDefault("GRADE_SERVICE_URL", "http://localhost:8085")

	v.SetDefault("CLIENT_TIMEOUT", "3s")
	v.SetDefault("CLIENT_REF_CACHE_TTL", "5m")

	v.SetDefault("BREAKER_FAILURE_RATIO", 0.5)
	v.SetDefault("BREAKER_MIN_REQUESTS", 5)
	v.SetDefault("BREAKER_INTERVAL", "1m")
	v.SetDefault("BREAKER_COOLDOWN", "30s")
	v.SetDefault("BREAKER_HALF_OPEN_REQUESTS", 1)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
