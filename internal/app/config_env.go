package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with environment variables when they
// are set. Env takes precedence over a config file; flags stay highest
// because callers re-apply explicitly set flags afterwards.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	// OPENAI_API_KEY is the conventional name; LLM_API_KEY wins when both are set.
	if cfg.LLMAPIKey == "" {
		setString(&cfg.LLMAPIKey, "OPENAI_API_KEY")
	}
	setDuration(&cfg.LLMTimeout, "LLM_TIMEOUT")

	setString(&cfg.SummaryPrompt, "CLARITY_SUMMARY_PROMPT")
	setString(&cfg.QuestionPrompt, "CLARITY_QUESTION_PROMPT")
	setString(&cfg.ExtractStrategy, "CLARITY_EXTRACT_STRATEGY")
	setString(&cfg.UserAgent, "CLARITY_USER_AGENT")
	setDuration(&cfg.FetchTimeout, "CLARITY_FETCH_TIMEOUT")
	setInt(&cfg.FetchAttempts, "CLARITY_FETCH_ATTEMPTS")

	setString(&cfg.CacheDir, "CLARITY_CACHE_DIR")
	setDuration(&cfg.CacheMaxAge, "CLARITY_CACHE_MAX_AGE")
	setBool(&cfg.CacheClear, "CLARITY_CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "CLARITY_CACHE_STRICT_PERMS")
	setBool(&cfg.LLMCache, "CLARITY_LLM_CACHE")

	setString(&cfg.StoreBackend, "CLARITY_STORE")
	setString(&cfg.StoreDir, "CLARITY_STORE_DIR")
	setString(&cfg.SQLitePath, "CLARITY_SQLITE_PATH")
	setString(&cfg.RedisAddr, "CLARITY_REDIS_ADDR")
	setString(&cfg.RedisPassword, "CLARITY_REDIS_PASSWORD")
	setInt(&cfg.RedisDB, "CLARITY_REDIS_DB")
	setString(&cfg.RedisPrefix, "CLARITY_REDIS_PREFIX")

	if s := strings.TrimSpace(os.Getenv("CLARITY_CARD_SEED")); s != "" {
		if n, err := strconv.ParseUint(s, 10, 64); err == nil {
			cfg.CardSeed = n
		}
	}
	setString(&cfg.ListenAddr, "CLARITY_ADDR")
	setBool(&cfg.Verbose, "VERBOSE")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// setBool overrides when the env value is a recognised truthy or falsey word.
func setBool(dst *bool, key string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}
