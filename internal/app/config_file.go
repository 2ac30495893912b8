package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/clarity/internal/extract"
	"github.com/hyperifyio/clarity/internal/kv"
)

// FileConfig is the single-file configuration schema.
type FileConfig struct {
	LLM struct {
		BaseURL string        `yaml:"base" json:"base"`
		Model   string        `yaml:"model" json:"model"`
		APIKey  string        `yaml:"key" json:"key"`
		Timeout time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"llm" json:"llm"`

	Prompts struct {
		Summary      string `yaml:"summary" json:"summary"`
		SummaryFile  string `yaml:"summaryFile" json:"summaryFile"`
		Question     string `yaml:"question" json:"question"`
		QuestionFile string `yaml:"questionFile" json:"questionFile"`
	} `yaml:"prompts" json:"prompts"`

	Extract struct {
		Strategy string `yaml:"strategy" json:"strategy"`
	} `yaml:"extract" json:"extract"`

	Fetch struct {
		UserAgent    string        `yaml:"ua" json:"ua"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		Attempts     int           `yaml:"attempts" json:"attempts"`
		MaxBodyBytes int64         `yaml:"maxBodyBytes" json:"maxBodyBytes"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		LLM         bool          `yaml:"llm" json:"llm"`
	} `yaml:"cache" json:"cache"`

	Store struct {
		Backend string `yaml:"backend" json:"backend"`
		Dir     string `yaml:"dir" json:"dir"`
		SQLite  string `yaml:"sqlite" json:"sqlite"`
		Redis   struct {
			Addr     string `yaml:"addr" json:"addr"`
			Password string `yaml:"password" json:"password"`
			DB       int    `yaml:"db" json:"db"`
			Prefix   string `yaml:"prefix" json:"prefix"`
		} `yaml:"redis" json:"redis"`
	} `yaml:"store" json:"store"`

	Card struct {
		Seed uint64 `yaml:"seed" json:"seed"`
	} `yaml:"card" json:"card"`

	Server struct {
		Addr string `yaml:"addr" json:"addr"`
	} `yaml:"server" json:"server"`

	Verbose bool `yaml:"verbose" json:"verbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays non-zero file values onto cfg. Callers apply it to
// a DefaultConfig before env and flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	str := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	str(&cfg.LLMBaseURL, fc.LLM.BaseURL)
	str(&cfg.LLMModel, fc.LLM.Model)
	str(&cfg.LLMAPIKey, fc.LLM.APIKey)
	if fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = fc.LLM.Timeout
	}

	str(&cfg.SummaryPrompt, fc.Prompts.Summary)
	str(&cfg.QuestionPrompt, fc.Prompts.Question)
	// Prompt files take precedence over inline strings.
	if p := strings.TrimSpace(fc.Prompts.SummaryFile); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read summary prompt file: %w", err)
		}
		cfg.SummaryPrompt = string(b)
	}
	if p := strings.TrimSpace(fc.Prompts.QuestionFile); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read question prompt file: %w", err)
		}
		cfg.QuestionPrompt = string(b)
	}

	str(&cfg.ExtractStrategy, fc.Extract.Strategy)
	str(&cfg.UserAgent, fc.Fetch.UserAgent)
	if fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if fc.Fetch.Attempts > 0 {
		cfg.FetchAttempts = fc.Fetch.Attempts
	}
	if fc.Fetch.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = fc.Fetch.MaxBodyBytes
	}

	str(&cfg.CacheDir, fc.Cache.Dir)
	if fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	cfg.CacheClear = cfg.CacheClear || fc.Cache.Clear
	cfg.CacheStrictPerms = cfg.CacheStrictPerms || fc.Cache.StrictPerms
	cfg.LLMCache = cfg.LLMCache || fc.Cache.LLM

	str(&cfg.StoreBackend, fc.Store.Backend)
	str(&cfg.StoreDir, fc.Store.Dir)
	str(&cfg.SQLitePath, fc.Store.SQLite)
	str(&cfg.RedisAddr, fc.Store.Redis.Addr)
	str(&cfg.RedisPassword, fc.Store.Redis.Password)
	if fc.Store.Redis.DB != 0 {
		cfg.RedisDB = fc.Store.Redis.DB
	}
	str(&cfg.RedisPrefix, fc.Store.Redis.Prefix)

	if fc.Card.Seed != 0 {
		cfg.CardSeed = fc.Card.Seed
	}
	str(&cfg.ListenAddr, fc.Server.Addr)
	cfg.Verbose = cfg.Verbose || fc.Verbose
	return nil
}

// ValidateConfig checks limits and names before anything is opened. The API
// key is not required here; it may come from stored settings.
func ValidateConfig(cfg Config) error {
	if cfg.LLMTimeout < 0 || cfg.FetchTimeout < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.FetchAttempts < 0 || cfg.MaxBodyBytes < 0 || cfg.RedisDB < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if _, err := extract.New(cfg.ExtractStrategy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if !kv.ValidBackend(cfg.StoreBackend) {
		return fmt.Errorf("config: unknown store backend %q (want file, sqlite, redis or memory)", cfg.StoreBackend)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.StoreBackend)) {
	case kv.BackendRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: store.redis.addr is required for the redis backend")
		}
	case "", kv.BackendFile:
		if strings.TrimSpace(cfg.StoreDir) == "" {
			return errors.New("config: store.dir is required for the file backend")
		}
	}
	return nil
}
