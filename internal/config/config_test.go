package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes Validate with the gemini
// provider, assuming GEMINI_API_KEY is set (tests set it via t.Setenv).
func validConfig() *Config {
	return &Config{
		Provider:           ProviderGemini,
		ModelName:          "gemini-2.5-flash",
		EmbedderModel:      DefaultEmbedderModel,
		Collection:         "recipes",
		SourceURIs:         []string{DefaultSourceURI},
		ChunkSize:          1500,
		ChunkOverlap:       200,
		RetrievalTopK:      4,
		MaxHistoryMessages: 100,
		MaxHistoryTokens:   8000,
		SessionResolution:  ResolveEarliest,
		PostgresHost:       "localhost",
		PostgresPort:       5532,
		PostgresUser:       "ai",
		PostgresPassword:   "ai",
		PostgresDBName:     "ai",
		PostgresSSLMode:    "disable",
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid gemini config", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "test-key")
		require.NoError(t, validConfig().Validate())
	})

	t.Run("gemini without api key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		assert.ErrorIs(t, validConfig().Validate(), ErrMissingAPIKey)
	})

	t.Run("ollama needs no api key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		cfg := validConfig()
		cfg.Provider = ProviderOllama
		cfg.OllamaHost = "http://localhost:11434"
		require.NoError(t, cfg.Validate())
	})

	t.Run("nil config", func(t *testing.T) {
		var cfg *Config
		assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
	})

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr error
	}{
		{
			name:    "unknown provider",
			mutate:  func(cfg *Config) { cfg.Provider = "claude" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(cfg *Config) { cfg.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty embedder model",
			mutate:  func(cfg *Config) { cfg.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "blank collection",
			mutate:  func(cfg *Config) { cfg.Collection = "  " },
			wantErr: ErrInvalidCollection,
		},
		{
			name:    "zero chunk size",
			mutate:  func(cfg *Config) { cfg.ChunkSize = 0 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "overlap not below chunk size",
			mutate:  func(cfg *Config) { cfg.ChunkOverlap = 1500 },
			wantErr: ErrInvalidChunking,
		},
		{
			name:    "zero top-k",
			mutate:  func(cfg *Config) { cfg.RetrievalTopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "top-k over limit",
			mutate:  func(cfg *Config) { cfg.RetrievalTopK = 51 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "zero history window",
			mutate:  func(cfg *Config) { cfg.MaxHistoryMessages = 0 },
			wantErr: ErrInvalidHistoryWindow,
		},
		{
			name:    "zero token budget",
			mutate:  func(cfg *Config) { cfg.MaxHistoryTokens = 0 },
			wantErr: ErrInvalidHistoryWindow,
		},
		{
			name:    "unknown resolution policy",
			mutate:  func(cfg *Config) { cfg.SessionResolution = "newest" },
			wantErr: ErrInvalidResolutionPolicy,
		},
		{
			name:    "empty postgres host",
			mutate:  func(cfg *Config) { cfg.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty database name",
			mutate:  func(cfg *Config) { cfg.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "bad ssl mode",
			mutate:  func(cfg *Config) { cfg.PostgresSSLMode = "maybe" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "test-key")
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestConfig_FullModelName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{name: "gemini gets googleai prefix", provider: ProviderGemini, model: "gemini-2.5-flash", want: "googleai/gemini-2.5-flash"},
		{name: "ollama gets ollama prefix", provider: ProviderOllama, model: "llama3.3", want: "ollama/llama3.3"},
		{name: "qualified name passes through", provider: ProviderGemini, model: "googleai/gemini-2.5-pro", want: "googleai/gemini-2.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			assert.Equal(t, tt.want, cfg.FullModelName())
		})
	}
}

func TestConfig_SecretMasking(t *testing.T) {
	t.Parallel()

	t.Run("short secrets fully masked", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, maskedValue, maskSecret("hunter2"))
		assert.Empty(t, maskSecret(""))
	})

	t.Run("long secrets keep edges", func(t *testing.T) {
		t.Parallel()
		masked := maskSecret("super-secret-password")
		assert.True(t, strings.HasPrefix(masked, "su"))
		assert.True(t, strings.HasSuffix(masked, "rd"))
		assert.NotContains(t, masked, "secret")
	})

	t.Run("marshal and string never leak the password", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.PostgresPassword = "very-secret-password"

		data, err := json.Marshal(cfg)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "very-secret-password")
		assert.NotContains(t, cfg.String(), "very-secret-password")
	})
}

func TestConfig_PostgresConnectionString(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	dsn := cfg.PostgresConnectionString()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "port=5532")
	assert.Contains(t, dsn, "dbname=ai")
	assert.Contains(t, dsn, "sslmode=disable")

	t.Run("password with special characters is quoted", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.PostgresPassword = `pa'ss\word`
		assert.Contains(t, cfg.PostgresConnectionString(), `password='pa\'ss\\word'`)
	})
}

func TestConfig_PostgresURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	url := cfg.PostgresURL()
	assert.Equal(t, "postgres://ai:ai@localhost:5532/ai?sslmode=disable", url)
}

func TestConfig_ParseDatabaseURL(t *testing.T) {
	t.Run("override from DATABASE_URL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://user:pw@db.example.com:6543/prod?sslmode=require")
		cfg := validConfig()
		require.NoError(t, cfg.parseDatabaseURL())

		assert.Equal(t, "db.example.com", cfg.PostgresHost)
		assert.Equal(t, 6543, cfg.PostgresPort)
		assert.Equal(t, "user", cfg.PostgresUser)
		assert.Equal(t, "pw", cfg.PostgresPassword)
		assert.Equal(t, "prod", cfg.PostgresDBName)
		assert.Equal(t, "require", cfg.PostgresSSLMode)
	})

	t.Run("unset DATABASE_URL leaves config alone", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		cfg := validConfig()
		require.NoError(t, cfg.parseDatabaseURL())
		assert.Equal(t, "localhost", cfg.PostgresHost)
	})

	t.Run("non-postgres scheme rejected", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "mysql://user:pw@host/db")
		cfg := validConfig()
		require.Error(t, cfg.parseDatabaseURL())
	})
}
