package assistant

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/log"
)

func TestNew_ValidationErrors(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	valid := func() Config {
		return Config{
			Genkit:     g,
			ModelName:  "mock/test-model",
			Searcher:   &mockSearcher{},
			Sessions:   newMockSessions(),
			Logger:     log.NewNop(),
			Collection: "recipes",
			TopK:       4,
		}
	}

	tests := []struct {
		name        string
		mutate      func(cfg *Config)
		errContains string
	}{
		{
			name:        "nil genkit",
			mutate:      func(cfg *Config) { cfg.Genkit = nil },
			errContains: "genkit instance is required",
		},
		{
			name:        "empty model name",
			mutate:      func(cfg *Config) { cfg.ModelName = "" },
			errContains: "model name is required",
		},
		{
			name:        "nil searcher",
			mutate:      func(cfg *Config) { cfg.Searcher = nil },
			errContains: "searcher is required",
		},
		{
			name:        "nil sessions",
			mutate:      func(cfg *Config) { cfg.Sessions = nil },
			errContains: "session store is required",
		},
		{
			name:        "nil logger",
			mutate:      func(cfg *Config) { cfg.Logger = nil },
			errContains: "logger is required",
		},
		{
			name:        "empty collection",
			mutate:      func(cfg *Config) { cfg.Collection = "" },
			errContains: "collection is required",
		},
		{
			name:        "zero top-k",
			mutate:      func(cfg *Config) { cfg.TopK = 0 },
			errContains: "top-k must be positive",
		},
		{
			name:        "unknown policy",
			mutate:      func(cfg *Config) { cfg.Policy = "newest-ish" },
			errContains: "resolution policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			_, err := New(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	g := genkit.Init(context.Background())
	require.NotNil(t, g)

	engine, err := New(Config{
		Genkit:     g,
		ModelName:  "mock/test-model",
		Searcher:   &mockSearcher{results: []knowledge.Result{}},
		Sessions:   newMockSessions(),
		Logger:     log.NewNop(),
		Collection: "recipes",
		TopK:       4,
	})
	require.NoError(t, err)

	assert.Equal(t, ResumeEarliest, engine.policy)
	assert.Equal(t, 100, engine.maxHistoryMessages)
	assert.Equal(t, DefaultRetryConfig(), engine.retryConfig)
	assert.Equal(t, DefaultTokenBudget().MaxHistoryTokens, engine.tokenBudget.MaxHistoryTokens)
	assert.NotNil(t, engine.rateLimiter)
	assert.NotNil(t, engine.locks)
}
