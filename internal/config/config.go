package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string // dev|prod
	HTTPAddr string

	CSVBaseDir     string
	QuestionSource string // csv|sql

	DBDriver string // sqlite|postgres
	DBDSN    string

	QuestionCache string // none|memory|redis
	RedisAddr     string
	CacheTTL      time.Duration

	SessionSecret string
	CookieSecure  bool
	CORSOrigins   []string

	// External grading service. An empty key disables AI grading entirely.
	GraderAPIKey  string
	GraderBaseURL string
	GraderModel   string
	GraderTimeout time.Duration

	ExamDate             time.Time
	DefaultQuestionCount int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":" + envOr("PORT", "8080")
	}
	return Config{
		AppEnv:   envOr("APP_ENV", "dev"),
		HTTPAddr: addr,

		CSVBaseDir:     envOr("CSV_BASE_DIR", "./logic/csv_data"),
		QuestionSource: strings.ToLower(envOr("QUESTION_SOURCE", "csv")),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		QuestionCache: strings.ToLower(envOr("QUESTION_CACHE", "memory")),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		CacheTTL:      envDuration("QUESTION_CACHE_TTL", 24*time.Hour),

		SessionSecret: envOr("SESSION_SECRET", "denken-dev-session-secret"),
		CookieSecure:  envBool("COOKIE_SECURE", false),
		CORSOrigins:   csvOr("CORS_ORIGINS", "http://localhost:8080"),

		GraderAPIKey:  firstNonEmpty(os.Getenv("GRADER_API_KEY"), os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("OPENAI_API_KEY")),
		GraderBaseURL: graderBaseURL(),
		GraderModel:   graderModel(),
		GraderTimeout: envDuration("GRADER_TIMEOUT", 30*time.Second),

		ExamDate:             envDate("EXAM_DATE", time.Date(2026, 3, 22, 0, 0, 0, 0, time.UTC)),
		DefaultQuestionCount: envInt("DEFAULT_QUESTION_COUNT", 10),
	}
}

// AIGradingEnabled reports whether essay answers go to the external grader.
func (c Config) AIGradingEnabled() bool {
	return strings.TrimSpace(c.GraderAPIKey) != ""
}

func graderBaseURL() string {
	if v := os.Getenv("GRADER_BASE_URL"); v != "" {
		return v
	}
	if os.Getenv("GRADER_API_KEY") == "" && os.Getenv("ANTHROPIC_API_KEY") != "" {
		return "https://api.anthropic.com/v1/"
	}
	return "https://api.openai.com/v1"
}

func graderModel() string {
	if v := os.Getenv("GRADER_MODEL"); v != "" {
		return v
	}
	if os.Getenv("GRADER_API_KEY") == "" && os.Getenv("ANTHROPIC_API_KEY") != "" {
		return "claude-sonnet-4-20250514"
	}
	return "gpt-4o-mini"
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// bare integers are seconds
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
func envDate(k string, def time.Time) time.Time {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return def
	}
	return t
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
