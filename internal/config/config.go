package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string
	LogLevel  string
	HTTPAddr  string

	GeminiAPIKey       string
	GeminiBaseURL      string
	GeminiModels       []string
	GeminiTimeoutMs    int
	GeminiRateLimitRPS int
	GeminiCache        bool

	RecordsAPIBaseURL string
	RecordsTimeoutMs  int

	ReconcileWindowHrs int

	RoundsIntervalSec  int
	RoundsConcurrency  int
	RoundsAutoExport   bool
	RoundsWorkbookPath string

	MailFrom      string
	MailTo        string
	MailSubject   string
	ShareProvider string
	RawMailDir    string

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPDrafts   string
}

var defaultGeminiModels = []string{
	"gemini-2.5-flash",
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-flash-8b",
}

func DefaultGeminiModels() []string {
	return append([]string(nil), defaultGeminiModels...)
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "caremind.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		LogLevel:  getEnv("LOG_LEVEL", "INFO"),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", ""),
		GeminiModels:       getEnvList("GEMINI_MODELS", defaultGeminiModels),
		GeminiTimeoutMs:    getEnvInt("GEMINI_TIMEOUT_MS", 60000),
		GeminiRateLimitRPS: getEnvInt("GEMINI_RATE_LIMIT_RPS", 2),
		GeminiCache:        getEnvBool("GEMINI_CACHE", false),

		RecordsAPIBaseURL: getEnv("RECORDS_API_BASE_URL", "http://localhost/medihack_api"),
		RecordsTimeoutMs:  getEnvInt("RECORDS_TIMEOUT_MS", 15000),

		ReconcileWindowHrs: getEnvInt("RECONCILE_WINDOW_HOURS", 72),

		RoundsIntervalSec:  getEnvInt("ROUNDS_INTERVAL_SEC", 900),
		RoundsConcurrency:  getEnvInt("ROUNDS_CONCURRENCY", 3),
		RoundsAutoExport:   getEnvBool("ROUNDS_AUTO_EXPORT", true),
		RoundsWorkbookPath: getEnv("ROUNDS_WORKBOOK", ""),

		MailFrom:      getEnv("MAIL_FROM", ""),
		MailTo:        getEnv("MAIL_TO", ""),
		MailSubject:   getEnv("MAIL_SUBJECT", "CareMind update"),
		ShareProvider: getEnv("SHARE_PROVIDER", "file"),
		RawMailDir:    getEnv("RAW_MAIL_DIR", filepath.Join(cwd, "data", "mail")),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPDrafts:   getEnv("IMAP_DRAFTS_MAILBOX", "Drafts"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return append([]string(nil), fallback...)
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}
