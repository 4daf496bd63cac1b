// Package config reads settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"scan-fill/pkg/apperr"
	"scan-fill/pkg/services/merge"
	"scan-fill/pkg/services/ocr"
)

// Config holds every runtime setting.
type Config struct {
	Port        string
	GinMode     string
	DatabaseURL string

	OCREngine      string
	OCRLanguage    string
	TessdataPrefix string
	AzureEndpoint  string
	AzureKey       string
	OCREnhance     bool

	OnUnmatched merge.Policy

	MaxUploadBytes int64
	PDFDPI         int
	ConvertTimeout time.Duration
	SessionTTL     time.Duration
}

// Load reads .env files (missing files are ignored), then the environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] ignoring env file: %v", err)
	}

	policy, err := merge.ParsePolicy(getEnv("ON_UNMATCHED", string(merge.Append)))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeConfigInvalid, "invalid ON_UNMATCHED")
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		OCREngine:      strings.ToLower(getEnv("OCR_ENGINE", ocr.EngineTesseract)),
		OCRLanguage:    getEnv("OCR_LANGUAGE", "eng"),
		TessdataPrefix: getEnv("TESSDATA_PREFIX", ""),
		AzureEndpoint:  getEnv("AZURE_VISION_ENDPOINT", ""),
		AzureKey:       getEnv("AZURE_VISION_KEY", ""),
		OCREnhance:     getEnvBool("OCR_ENHANCE", true),

		OnUnmatched: policy,

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 32<<20)),
		PDFDPI:         getEnvInt("PDF_DPI", 300),
		ConvertTimeout: getEnvDuration("CONVERT_TIMEOUT", 2*time.Minute),
		SessionTTL:     getEnvDuration("SESSION_TTL", 2*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.OCREngine {
	case ocr.EngineTesseract, ocr.EngineAzure:
	default:
		return apperr.New(apperr.CodeConfigInvalid, fmt.Sprintf("OCR_ENGINE must be %s or %s, got %q", ocr.EngineTesseract, ocr.EngineAzure, c.OCREngine))
	}
	if c.OnUnmatched != merge.Append && c.OnUnmatched != merge.Ignore {
		return apperr.New(apperr.CodeConfigInvalid, fmt.Sprintf("invalid on_unmatched policy %q", c.OnUnmatched))
	}
	if c.MaxUploadBytes <= 0 {
		return apperr.New(apperr.CodeConfigInvalid, "MAX_UPLOAD_BYTES must be positive")
	}
	if c.PDFDPI <= 0 {
		return apperr.New(apperr.CodeConfigInvalid, "PDF_DPI must be positive")
	}
	if c.SessionTTL <= 0 {
		return apperr.New(apperr.CodeConfigInvalid, "SESSION_TTL must be positive")
	}
	return nil
}

// OCROptions returns the recognizer settings.
func (c *Config) OCROptions() ocr.Options {
	return ocr.Options{
		Engine:         c.OCREngine,
		Language:       c.OCRLanguage,
		TessdataPrefix: c.TessdataPrefix,
		AzureEndpoint:  c.AzureEndpoint,
		AzureKey:       c.AzureKey,
		Enhance:        c.OCREnhance,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
