package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  ProviderConfig
		want string
	}{
		{"openai default", ProviderConfig{Provider: ProviderOpenAI}, "https://api.openai.com/v1"},
		{"openrouter default", ProviderConfig{Provider: ProviderOpenRouter}, "https://openrouter.ai/api/v1"},
		{"anthropic default", ProviderConfig{Provider: ProviderAnthropic}, "https://api.anthropic.com/v1"},
		{"ollama appends v1", ProviderConfig{Provider: ProviderOllama, Endpoint: "http://localhost:11434/"}, "http://localhost:11434/v1"},
		{"ollama already v1", ProviderConfig{Provider: ProviderOllama, Endpoint: "http://box:11434/v1"}, "http://box:11434/v1"},
		{"unknown falls back to openai", ProviderConfig{Provider: "mystery"}, "https://api.openai.com/v1"},
		{"explicit endpoint wins", ProviderConfig{Provider: ProviderOpenAI, Endpoint: "http://proxy/v1"}, "http://proxy/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.baseURL(); got != tt.want {
				t.Errorf("baseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFamily(t *testing.T) {
	if (ProviderConfig{Provider: ProviderAnthropic}).Family() != FamilyAnthropic {
		t.Error("anthropic should use the anthropic family")
	}
	for _, p := range []string{ProviderOpenAI, ProviderOpenRouter, ProviderOllama, "mystery"} {
		if (ProviderConfig{Provider: p}).Family() != FamilyOpenAI {
			t.Errorf("%s should use the openai family", p)
		}
	}
}

func TestWithDefaults(t *testing.T) {
	cfg := ProviderConfig{}.withDefaults()
	if cfg.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", cfg.MaxTokens, DefaultMaxTokens)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
}

func TestDynamicClient_ReadsSettingsEveryCall(t *testing.T) {
	var openaiHits, anthropicHits atomic.Int32

	oa := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		openaiHits.Add(1)
		writeJSON(w, openAITextResponse("from openai"))
	}))
	defer oa.Close()
	an := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anthropicHits.Add(1)
		writeJSON(w, anthropicTextResponse("from anthropic"))
	}))
	defer an.Close()

	var calls atomic.Int32
	settings := func() ProviderConfig {
		if calls.Add(1) == 1 {
			return ProviderConfig{Provider: ProviderOpenAI, Endpoint: oa.URL + "/v1", Model: "gpt-4o-mini", APIKey: "k"}
		}
		return ProviderConfig{Provider: ProviderAnthropic, Endpoint: an.URL + "/v1", Model: "claude", APIKey: "k"}
	}

	client := NewDynamicClient(settings)
	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	turn, err := client.Chat(context.Background(), msgs, nil)
	if err != nil {
		t.Fatalf("first Chat: %v", err)
	}
	if f, ok := turn.(Final); !ok || f.Text != "from openai" {
		t.Errorf("first turn = %#v", turn)
	}

	turn, err = client.Chat(context.Background(), msgs, nil)
	if err != nil {
		t.Fatalf("second Chat: %v", err)
	}
	if f, ok := turn.(Final); !ok || f.Text != "from anthropic" {
		t.Errorf("second turn = %#v", turn)
	}

	if openaiHits.Load() != 1 || anthropicHits.Load() != 1 {
		t.Errorf("hits: openai=%d anthropic=%d, want 1 and 1", openaiHits.Load(), anthropicHits.Load())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
