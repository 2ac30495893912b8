package app

import "time"

// Config holds runtime configuration for the application.
type Config struct {
	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	LLMTimeout time.Duration

	// Prompt overrides; empty keeps the built-in prompts.
	SummaryPrompt  string
	QuestionPrompt string

	// Page loading and extraction
	ExtractStrategy string
	UserAgent       string
	FetchTimeout    time.Duration
	FetchAttempts   int
	MaxBodyBytes    int64

	// Cache
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	// LLMCache serves repeated identical prompts from CacheDir.
	LLMCache bool

	// Store
	StoreBackend  string
	StoreDir      string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Card
	CardSeed uint64

	// Server
	ListenAddr string

	Verbose bool
}

// Defaults used by flags and by ApplyFileConfig to detect untouched values.
const (
	DefaultCacheDir        = ".clarity-cache"
	DefaultStoreDir        = ".clarity"
	DefaultStoreBackend    = "file"
	DefaultListenAddr      = "127.0.0.1:8787"
	DefaultFetchAttempts   = 2
	DefaultFetchTimeout    = 15 * time.Second
	DefaultExtractStrategy = "selectors"
	DefaultRedisPrefix     = "clarity:"
)

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		LLMTimeout:      60 * time.Second,
		ExtractStrategy: DefaultExtractStrategy,
		FetchTimeout:    DefaultFetchTimeout,
		FetchAttempts:   DefaultFetchAttempts,
		CacheDir:        DefaultCacheDir,
		StoreBackend:    DefaultStoreBackend,
		StoreDir:        DefaultStoreDir,
		RedisPrefix:     DefaultRedisPrefix,
		ListenAddr:      DefaultListenAddr,
	}
}
