package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chris/researchhub/internal/llm"
)

const envPrefix = "RESEARCHHUB"

type Settings struct {
	LLM          LLMSettings         `mapstructure:"llm" yaml:"llm"`
	OpenAccess   OpenAccessSettings  `mapstructure:"open_access" yaml:"open_access"`
	Integrations IntegrationSettings `mapstructure:"integrations" yaml:"integrations"`
	Linter       LinterSettings      `mapstructure:"linter" yaml:"linter"`
	Search       SearchSettings      `mapstructure:"search" yaml:"search"`
	Schedule     ScheduleSettings    `mapstructure:"schedule" yaml:"schedule"`
	Discord      DiscordSettings     `mapstructure:"discord" yaml:"discord"`
	DatabasePath string              `mapstructure:"database_path" yaml:"database_path"`
	MetricsAddr  string              `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

type LLMSettings struct {
	Provider       string        `mapstructure:"provider" yaml:"provider"` // ollama, openai, anthropic, openrouter
	OllamaEndpoint string        `mapstructure:"ollama_endpoint" yaml:"ollama_endpoint"`
	OllamaModel    string        `mapstructure:"ollama_model" yaml:"ollama_model"`
	APIKey         string        `mapstructure:"api_key" yaml:"-"`
	CloudModel     string        `mapstructure:"cloud_model" yaml:"cloud_model"`
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint,omitempty"` // overrides the cloud default
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type OpenAccessSettings struct {
	Email        string `mapstructure:"email" yaml:"email"`
	CacheDays    int    `mapstructure:"cache_days" yaml:"cache_days"`
	UnpaywallURL string `mapstructure:"unpaywall_url" yaml:"unpaywall_url"`
}

type IntegrationSettings struct {
	Linter           bool `mapstructure:"linter" yaml:"linter"`
	Search           bool `mapstructure:"search" yaml:"search"`
	OpenAccess       bool `mapstructure:"open_access" yaml:"open_access"`
	AutoLintOnImport bool `mapstructure:"auto_lint_on_import" yaml:"auto_lint_on_import"`
	AutoSummarize    bool `mapstructure:"auto_summarize" yaml:"auto_summarize"`
}

type LinterSettings struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

type SearchSettings struct {
	QdrantHost      string `mapstructure:"qdrant_host" yaml:"qdrant_host"`
	QdrantPort      int    `mapstructure:"qdrant_port" yaml:"qdrant_port"`
	QdrantAPIKey    string `mapstructure:"qdrant_api_key" yaml:"-"`
	QdrantTLS       bool   `mapstructure:"qdrant_tls" yaml:"qdrant_tls"`
	Collection      string `mapstructure:"collection" yaml:"collection"`
	EmbeddingModel  string `mapstructure:"embedding_model" yaml:"embedding_model"`
	EmbeddingURL    string `mapstructure:"embedding_url" yaml:"embedding_url"`
	EmbeddingAPIKey string `mapstructure:"embedding_api_key" yaml:"-"`
}

type ScheduleSettings struct {
	Detect       string `mapstructure:"detect" yaml:"detect"`
	OARefresh    string `mapstructure:"oa_refresh" yaml:"oa_refresh"`
	OAPrune      string `mapstructure:"oa_prune" yaml:"oa_prune"`
	Digest       string `mapstructure:"digest" yaml:"digest"` // empty disables the digest
	RefreshCount int    `mapstructure:"refresh_count" yaml:"refresh_count"`
	DigestCount  int    `mapstructure:"digest_count" yaml:"digest_count"`
}

type DiscordSettings struct {
	Token      string `mapstructure:"token" yaml:"-"`
	OwnerID    string `mapstructure:"owner_id" yaml:"owner_id"`
	WebhookURL string `mapstructure:"webhook_url" yaml:"-"`
}

var defaults = map[string]any{
	"llm.provider":                     llm.ProviderOllama,
	"llm.ollama_endpoint":              "http://localhost:11434",
	"llm.ollama_model":                 "llama3.2",
	"llm.api_key":                      "",
	"llm.cloud_model":                  "gpt-4o-mini",
	"llm.endpoint":                     "",
	"llm.max_tokens":                   llm.DefaultMaxTokens,
	"llm.timeout":                      llm.DefaultTimeout,
	"open_access.email":                "",
	"open_access.cache_days":           30,
	"open_access.unpaywall_url":        "https://api.unpaywall.org",
	"integrations.linter":              true,
	"integrations.search":              true,
	"integrations.open_access":         true,
	"integrations.auto_lint_on_import": true,
	"integrations.auto_summarize":      false,
	"linter.endpoint":                  "",
	"search.qdrant_host":               "",
	"search.qdrant_port":               6334,
	"search.qdrant_api_key":            "",
	"search.qdrant_tls":                false,
	"search.collection":                "researchhub_items",
	"search.embedding_model":           "nomic-embed-text",
	"search.embedding_url":             "http://localhost:11434/v1",
	"search.embedding_api_key":         "",
	"schedule.detect":                  "@every 5m",
	"schedule.oa_refresh":              "0 3 * * *",
	"schedule.oa_prune":                "30 3 * * *",
	"schedule.digest":                  "",
	"schedule.refresh_count":           20,
	"schedule.digest_count":            10,
	"discord.token":                    "",
	"discord.owner_id":                 "",
	"discord.webhook_url":              "",
	"database_path":                    "./researchhub.db",
	"metrics_addr":                     ":9464",
}

// Store holds the current settings. Readers always get the latest snapshot;
// the snapshot is rebuilt when the config file changes.
type Store struct {
	v      *viper.Viper
	logger *zap.Logger

	mu  sync.RWMutex
	cur Settings
}

// Load reads .env, defaults, the config file and RESEARCHHUB_* variables.
// An empty path searches ./researchhub.yaml and ~/.config/researchhub/.
func Load(path string, logger *zap.Logger) (*Store, error) {
	_ = godotenv.Load() // ignore error if no .env

	if logger == nil {
		logger = zap.NewNop()
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("researchhub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "researchhub"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	s := &Store{v: v, logger: logger}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	var next Settings
	if err := s.v.Unmarshal(&next); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
	return nil
}

// Watch reloads settings whenever the config file changes. It is a no-op
// when no file was found.
func (s *Store) Watch() {
	if s.v.ConfigFileUsed() == "" {
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if err := s.reload(); err != nil {
			s.logger.Warn("config reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		s.logger.Info("config reloaded", zap.String("file", e.Name))
	})
	s.v.WatchConfig()
}

// Set overrides a single key at runtime.
func (s *Store) Set(key string, value any) error {
	s.v.Set(key, value)
	return s.reload()
}

func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) FileUsed() string {
	return s.v.ConfigFileUsed()
}

// ProviderConfig resolves the LLM settings in effect right now.
func (s *Store) ProviderConfig() llm.ProviderConfig {
	return s.Current().ProviderConfig()
}

func (st Settings) ProviderConfig() llm.ProviderConfig {
	l := st.LLM
	cfg := llm.ProviderConfig{
		Provider:  l.Provider,
		MaxTokens: l.MaxTokens,
		Timeout:   l.Timeout,
	}
	if l.Provider == llm.ProviderOllama {
		cfg.Endpoint = l.OllamaEndpoint
		cfg.Model = l.OllamaModel
		return cfg
	}
	cfg.Endpoint = l.Endpoint
	if cfg.Endpoint == "" {
		cfg.Endpoint = llm.DefaultEndpoint(l.Provider)
	}
	cfg.Model = l.CloudModel
	cfg.APIKey = l.APIKey
	return cfg
}

// OACacheTTL is the open-access cache lifetime.
func (st Settings) OACacheTTL() time.Duration {
	days := st.OpenAccess.CacheDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}
