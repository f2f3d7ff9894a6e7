package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "CORS_ALLOWED_ORIGINS",
	"AI_PROVIDER", "ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "Model", "ARK_BASE_URL", "ARK_REGION",
	"AI_TEMPERATURE", "AI_TOP_P", "AI_MAX_TOKENS", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"INTERVIEW_MAX_SESSIONS", "INTERVIEW_SESSION_TTL", "INTERVIEW_COMPLETION_TIMEOUT",
	"INTERVIEW_PROMPTS_FILE", "INTERVIEW_FILLER_WORDS", "LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderArk, cfg.AI.Provider)
	assert.False(t, cfg.AI.Enabled())
	assert.Nil(t, cfg.AI.Temperature)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.OpenAIModel)
	assert.Equal(t, 1000, cfg.Interview.MaxSessions)
	assert.Equal(t, 2*time.Hour, cfg.Interview.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.Interview.CompletionTimeout)
	assert.Nil(t, cfg.Interview.FillerWords)
	assert.Equal(t, LogConfig{Level: "info", Format: "text"}, cfg.Log)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:8080")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://coach.example")
	t.Setenv("AI_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_TEMPERATURE", "0.4")
	t.Setenv("AI_MAX_TOKENS", "512")
	t.Setenv("INTERVIEW_MAX_SESSIONS", "10")
	t.Setenv("INTERVIEW_SESSION_TTL", "15m")
	t.Setenv("INTERVIEW_COMPLETION_TIMEOUT", "5s")
	t.Setenv("INTERVIEW_FILLER_WORDS", "um, uh, , basically")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000", "https://coach.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.True(t, cfg.AI.Enabled())
	require.NotNil(t, cfg.AI.Temperature)
	assert.InDelta(t, 0.4, *cfg.AI.Temperature, 1e-9)
	require.NotNil(t, cfg.AI.MaxTokens)
	assert.Equal(t, 512, *cfg.AI.MaxTokens)
	assert.Equal(t, 10, cfg.Interview.MaxSessions)
	assert.Equal(t, 15*time.Minute, cfg.Interview.SessionTTL)
	assert.Equal(t, 5*time.Second, cfg.Interview.CompletionTimeout)
	assert.Equal(t, []string{"um", "uh", "basically"}, cfg.Interview.FillerWords)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string][2]string{
		"port with space":   {"PORT", "50 00"},
		"provider":          {"AI_PROVIDER", "bard"},
		"temperature":       {"AI_TEMPERATURE", "warm"},
		"max tokens":        {"AI_MAX_TOKENS", "many"},
		"negative sessions": {"INTERVIEW_MAX_SESSIONS", "-1"},
		"ttl":               {"INTERVIEW_SESSION_TTL", "forever"},
		"zero timeout":      {"INTERVIEW_COMPLETION_TIMEOUT", "0s"},
	}

	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestArkEnabled(t *testing.T) {
	assert.True(t, AIConfig{Provider: ProviderArk, Model: "ep-1", APIKey: "k"}.Enabled())
	assert.True(t, AIConfig{Provider: ProviderArk, Model: "ep-1", AccessKey: "ak", SecretKey: "sk"}.Enabled())
	assert.False(t, AIConfig{Provider: ProviderArk, Model: "ep-1", AccessKey: "ak"}.Enabled())
	assert.False(t, AIConfig{Provider: ProviderArk, APIKey: "k"}.Enabled())
}

func TestNewChatModelRequiresArkCredentials(t *testing.T) {
	_, err := AIConfig{Provider: ProviderArk}.NewChatModel(context.Background())
	assert.Error(t, err)

	_, err = AIConfig{Provider: ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "m"}.NewChatModel(context.Background())
	assert.Error(t, err)
}
