package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting for the autoscaler.
// Service-level overrides (thresholds, cooldowns, pre-stop commands) are
// NOT here - those are read per-service from labels, see internal/policy.
type Config struct {
	// Logging
	LogLevel string
	LogJSON  bool

	// Orchestrator endpoints
	ReadonlyProxyDNS  string
	ReadonlyProxyPort int
	ManagerProxyHost  string

	// Reconciliation defaults
	PollInterval           time.Duration
	DefaultCooldown        time.Duration
	BelowMinAlertCooldown  time.Duration
	LabelPrefix            string
	DefaultMinReplicas     int
	DefaultMaxReplicas     int
	StartupProxyWait       time.Duration

	// Admin API / notifier
	SMTPConfigPath string
	AdminAPIPort   string
}

var AppConfig *Config

// Load loads configuration from the environment, falling back to an
// optional .env file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),

		ReadonlyProxyDNS:  getEnv("READONLY_PROXY_DNS", "tasks.dsproxy_ro"),
		ReadonlyProxyPort: getEnvInt("READONLY_PROXY_PORT", 2375),
		ManagerProxyHost:  getEnv("MANAGER_PROXY_HOST", "http://dsproxy_rw:2375"),

		PollInterval:          getEnvSeconds("POLL_INTERVAL", 15),
		DefaultCooldown:       getEnvSeconds("DEFAULT_COOLDOWN", 120),
		BelowMinAlertCooldown: getEnvSeconds("BELOW_MIN_ALERT_COOLDOWN", 120),
		LabelPrefix:           getEnv("LABEL_PREFIX", "autoscale"),
		DefaultMinReplicas:    getEnvInt("DEFAULT_MIN_REPLICAS", 1),
		DefaultMaxReplicas:    getEnvInt("DEFAULT_MAX_REPLICAS", 50),
		StartupProxyWait:      getEnvSeconds("STARTUP_PROXY_WAIT", 60),

		SMTPConfigPath: getEnv("SMTP_CONFIG_PATH", "/config/smtp.yml"),
		AdminAPIPort:   getEnv("ADMIN_API_PORT", "9090"),
	}

	AppConfig = cfg
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("Invalid boolean for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("Invalid integer for %s, using default: %d", key, defaultValue)
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

// getEnvSeconds reads an integer number of seconds and returns it as a Duration.
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSeconds)) * time.Second
}
