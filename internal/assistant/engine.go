// Package assistant implements the conversation engine: it resolves which
// run a user continues, grounds each query in retrieved knowledge, generates
// a response through the model, and records the exchange durably.
package assistant

import (
	"context"
	"errors"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/docsage/docsage/internal/knowledge"
	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/session"
)

// ResolutionPolicy selects which existing run a user resumes when they have
// more than one.
type ResolutionPolicy string

const (
	// ResumeEarliest resumes the user's oldest run. This is the default:
	// a returning user picks up their original conversation thread.
	ResumeEarliest ResolutionPolicy = "earliest"

	// ResumeLatest resumes the most recently created run.
	ResumeLatest ResolutionPolicy = "latest"
)

// Searcher retrieves knowledge chunks relevant to a query.
// knowledge.Store satisfies it; tests substitute a mock.
type Searcher interface {
	Search(ctx context.Context, collection, query string, k int) ([]knowledge.Result, error)
}

// SessionStore is the session persistence interface Engine needs.
// session.Store satisfies it; tests substitute a mock.
type SessionStore interface {
	CreateRun(ctx context.Context, userID string) (*session.Run, error)
	ListRuns(ctx context.Context, userID string) ([]*session.Run, error)
	GetTranscript(ctx context.Context, runID uuid.UUID) ([]*session.Turn, error)
	AppendTurns(ctx context.Context, runID uuid.UUID, turns ...*session.Turn) error
}

// Config contains all required parameters for the Engine.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string // Fully qualified model name, e.g. "googleai/gemini-2.5-flash"
	Searcher  Searcher
	Sessions  SessionStore
	Logger    log.Logger

	// Retrieval configuration
	Collection string // Knowledge collection to ground answers in
	TopK       int    // Number of chunks to retrieve per query

	// History windowing
	MaxHistoryMessages int         // Message-count window (0 = default)
	TokenBudget        TokenBudget // Token budget (zero-value uses defaults)

	// Session resolution
	Policy ResolutionPolicy // Empty = ResumeEarliest

	// Resilience configuration
	RetryConfig RetryConfig   // Model retry settings (zero-value uses defaults)
	RateLimiter *rate.Limiter // Optional: proactive rate limiting (nil = use default)
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	if cfg.Searcher == nil {
		return errors.New("searcher is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Collection == "" {
		return errors.New("collection is required")
	}
	if cfg.TopK <= 0 {
		return errors.New("top-k must be positive")
	}
	switch cfg.Policy {
	case "", ResumeEarliest, ResumeLatest:
	default:
		return errors.New("resolution policy must be earliest or latest")
	}
	return nil
}

// Engine is the conversational core. It is stateless apart from the per-run
// lock table; all configuration is captured immutably at construction so
// concurrent asks are safe.
type Engine struct {
	// Immutable configuration (captured at construction)
	modelName          string
	collection         string
	topK               int
	maxHistoryMessages int
	policy             ResolutionPolicy

	// Resilience (captured at construction)
	retryConfig RetryConfig
	rateLimiter *rate.Limiter

	// Token management (captured at construction)
	tokenBudget TokenBudget

	// Dependencies (read-only after construction)
	g        *genkit.Genkit
	searcher Searcher
	sessions SessionStore
	logger   log.Logger

	// Per-run serialization of asks
	locks *runLocks
}

// New creates an Engine with required configuration.
//
// Example:
//
//	engine, err := assistant.New(assistant.Config{
//	    Genkit:     g,
//	    ModelName:  cfg.FullModelName(),
//	    Searcher:   knowledgeStore,
//	    Sessions:   sessionStore,
//	    Logger:     logger,
//	    Collection: cfg.Knowledge.Collection,
//	    TopK:       cfg.Knowledge.TopK,
//	})
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxHistory := cfg.MaxHistoryMessages
	if maxHistory <= 0 {
		maxHistory = 100
	}

	policy := cfg.Policy
	if policy == "" {
		policy = ResumeEarliest
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	tokenBudget := cfg.TokenBudget
	if tokenBudget.MaxHistoryTokens == 0 {
		tokenBudget = DefaultTokenBudget()
	}

	// Default: 10 requests/sec sustained, burst of 30
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	e := &Engine{
		modelName:          cfg.ModelName,
		collection:         cfg.Collection,
		topK:               cfg.TopK,
		maxHistoryMessages: maxHistory,
		policy:             policy,

		retryConfig: retryConfig,
		rateLimiter: rl,
		tokenBudget: tokenBudget,

		g:        cfg.Genkit,
		searcher: cfg.Searcher,
		sessions: cfg.Sessions,
		logger:   cfg.Logger,

		locks: newRunLocks(),
	}

	e.logger.Info("conversation engine initialized",
		"model", e.modelName,
		"collection", e.collection,
		"top_k", e.topK,
		"policy", e.policy,
	)

	return e, nil
}
