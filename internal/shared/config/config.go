package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Progress store types.
const (
	ProgressStoreFile   = "file"
	ProgressStoreS3     = "s3"
	ProgressStoreSQL    = "sql"
	ProgressStoreMemory = "memory"
)

// Analysis modes.
const (
	AnalysisModeConsolidated = "consolidated"
	AnalysisModePerCategory  = "per_category"
)

// Config holds application configuration.
type Config struct {
	Env             string
	Port            string
	CORSAllowOrigin []string

	LLMProvider       string
	LLMModel          string
	GeminiAPIKey      string
	OpenAIAPIKey      string
	LLMTimeout        time.Duration
	LLMRepairAttempts int
	AnalysisMode      string

	AssessmentDuration time.Duration
	ProgressStore      string
	ProgressKey        string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	ProgressDBURL      string

	AMQPURL      string
	AMQPExchange string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience. Variables
	// already set in the environment win.
	loadEnvFiles(".env", "cmd/.env")

	cfg := Config{
		Env:             normalizeEnv(getEnv("ENV", "dev")),
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		LLMProvider:       normalizeProvider(getEnv("LLM_PROVIDER", "gemini")),
		LLMModel:          getEnv("LLM_MODEL", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		LLMTimeout:        time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		LLMRepairAttempts: getEnvInt("LLM_REPAIR_ATTEMPTS", 1),
		AnalysisMode:      normalizeAnalysisMode(getEnv("ANALYSIS_MODE", AnalysisModeConsolidated)),

		AssessmentDuration: time.Duration(getEnvInt("ASSESSMENT_DURATION_SECONDS", 300)) * time.Second,
		ProgressStore:      normalizeStoreType(getEnv("PROGRESS_STORE", ProgressStoreFile)),
		ProgressKey:        getEnv("PROGRESS_KEY", "default"),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		ProgressDBURL:      getEnv("PROGRESS_DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "assessment_updates"),
	}

	if cfg.ProgressStore == ProgressStoreSQL && cfg.ProgressDBURL == "" {
		log.Printf("PROGRESS_STORE=sql requires PROGRESS_DATABASE_URL, using sqlite under %s", cfg.LocalStoreDir)
		cfg.ProgressDBURL = "sqlite://" + strings.TrimRight(cfg.LocalStoreDir, "/") + "/progress.db"
	}
	if cfg.ProgressStore == ProgressStoreS3 && cfg.S3Bucket == "" {
		log.Printf("PROGRESS_STORE=s3 requires S3_BUCKET, falling back to file")
		cfg.ProgressStore = ProgressStoreFile
	}
	return cfg
}

func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			log.Printf("skip env file %s: %v", path, err)
		}
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Printf("invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return v
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "off", "fallback":
		return "none"
	default:
		return "gemini"
	}
}

func normalizeAnalysisMode(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "per_category", "per-category", "category":
		return AnalysisModePerCategory
	default:
		return AnalysisModeConsolidated
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return ProgressStoreS3
	case "sql", "db", "database":
		return ProgressStoreSQL
	case "memory", "mem":
		return ProgressStoreMemory
	default:
		return ProgressStoreFile
	}
}
