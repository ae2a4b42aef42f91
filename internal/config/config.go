package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration. It is loaded once at startup and
// passed by parameter; nothing mutates it afterwards.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Background notification dispatch
	UseMemoryQueue bool
	WorkerCount    int
	NotifyQueueURL string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// File upload storage
	UploadsBucket     string
	UploadsBaseURL    string
	MaxUploadSizeMB   int
	UploadTimeout     time.Duration
	AllowedExtensions []string

	// Email
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string

	// Anti-forgery + admin auth
	FormTokenSecret string
	FormTokenTTL    time.Duration
	AdminJWTSecret  string

	// Bot mitigation (reCAPTCHA siteverify)
	CaptchaEnabled   bool
	CaptchaType      string
	CaptchaSiteKey   string
	CaptchaSecretKey string
	CaptchaVerifyURL string
	CaptchaMinScore  float64
	CaptchaTimeout   time.Duration

	// Submission endpoint rate limiting
	SubmitRatePerSecond float64
	SubmitBurst         int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		NotifyQueueURL: getEnv("NOTIFY_QUEUE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		UploadsBucket:     getEnv("UPLOADS_BUCKET", ""),
		UploadsBaseURL:    getEnv("UPLOADS_BASE_URL", ""),
		MaxUploadSizeMB:   getEnvAsInt("MAX_UPLOAD_SIZE_MB", 5),
		UploadTimeout:     getEnvAsDuration("UPLOAD_TIMEOUT", 30*time.Second),
		AllowedExtensions: getEnvAsList("ALLOWED_EXTENSIONS", nil),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Stepform"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Stepform"),

		FormTokenSecret: getEnv("FORM_TOKEN_SECRET", ""),
		FormTokenTTL:    getEnvAsDuration("FORM_TOKEN_TTL", 2*time.Hour),
		AdminJWTSecret:  getEnv("ADMIN_JWT_SECRET", ""),

		CaptchaEnabled:   getEnvAsBool("CAPTCHA_ENABLED", false),
		CaptchaType:      strings.ToLower(strings.TrimSpace(getEnv("CAPTCHA_TYPE", "v3"))),
		CaptchaSiteKey:   getEnv("CAPTCHA_SITE_KEY", ""),
		CaptchaSecretKey: getEnv("CAPTCHA_SECRET_KEY", ""),
		CaptchaVerifyURL: getEnv("CAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		CaptchaMinScore:  getEnvAsFloat("CAPTCHA_MIN_SCORE", 0.5),
		CaptchaTimeout:   getEnvAsDuration("CAPTCHA_TIMEOUT", 10*time.Second),

		SubmitRatePerSecond: getEnvAsFloat("SUBMIT_RATE_PER_SECOND", 1),
		SubmitBurst:         getEnvAsInt("SUBMIT_BURST", 5),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated environment variable, trimming blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
