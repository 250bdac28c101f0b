package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store manages run and transcript persistence with a PostgreSQL backend.
//
// Store is safe for concurrent use by multiple goroutines. Appends to the
// same run are serialized by a row lock inside a transaction, so concurrent
// appends cannot interleave or lose turns.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool // transaction support; nil in unit tests with mocks
	logger  *slog.Logger
}

// New creates a Store.
//
// Example (production):
//
//	store := session.New(session.NewPgxQuerier(pool), pool, logger)
//
// Example (testing):
//
//	store := session.New(mockQuerier, nil, log.NewNop())
func New(querier Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		querier: querier,
		pool:    pool,
		logger:  logger,
	}
}

// CreateRun registers a new empty run for a user and returns it.
// Run IDs are random UUIDs, so collisions with existing runs are not a
// practical concern.
func (s *Store) CreateRun(ctx context.Context, userID string) (*Run, error) {
	id := uuid.New()
	row, err := s.querier.CreateRun(ctx, CreateRunParams{
		ID:     uuidToPg(id),
		UserID: userID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating run for user %q: %w", userID, err)
	}

	run := rowToRun(row)
	s.logger.Debug("created run", "run_id", run.ID, "user_id", userID)
	return run, nil
}

// ListRuns returns a user's runs oldest-first. An unknown user yields an
// empty slice, not an error.
func (s *Store) ListRuns(ctx context.Context, userID string) ([]*Run, error) {
	rows, err := s.querier.ListRunsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing runs for user %q: %w", userID, err)
	}

	runs := make([]*Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, rowToRun(row))
	}
	return runs, nil
}

// GetRun fetches a run by ID. Returns ErrRunNotFound when absent.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	row, err := s.querier.GetRun(ctx, uuidToPg(runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return nil, fmt.Errorf("fetching run %s: %w", runID, err)
	}
	return rowToRun(row), nil
}

// GetTranscript returns a run's turns in append order.
// Returns ErrRunNotFound when the run does not exist.
func (s *Store) GetTranscript(ctx context.Context, runID uuid.UUID) ([]*Turn, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.querier.ListTurns(ctx, uuidToPg(runID))
	if err != nil {
		return nil, fmt.Errorf("listing turns for run %s: %w", runID, err)
	}

	turns := make([]*Turn, 0, len(rows))
	for _, row := range rows {
		turn, err := rowToTurn(row)
		if err != nil {
			s.logger.Warn("skipping malformed turn",
				"turn_id", pgToUUID(row.ID),
				"error", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// AppendTurns atomically appends turns to a run in the given order.
// The run row is locked for the duration of the transaction, so concurrent
// appends to the same run serialize and sequence numbers never collide.
// Returns ErrRunNotFound when the run does not exist; on any error no turn
// is persisted.
func (s *Store) AppendTurns(ctx context.Context, runID uuid.UUID, turns ...*Turn) error {
	if len(turns) == 0 {
		return nil
	}
	for _, turn := range turns {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			return fmt.Errorf("%w: %q", ErrInvalidRole, turn.Role)
		}
	}

	// Unit tests with mock queriers have no pool; external synchronization
	// is assumed there.
	if s.pool == nil {
		return s.appendTurnsWith(ctx, s.querier, runID, turns)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	if err := s.appendTurnsWith(ctx, NewPgxQuerier(tx), runID, turns); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("appended turns", "run_id", runID, "count", len(turns))
	return nil
}

// appendTurnsWith locks the run, reads the current max sequence number, and
// inserts the turns with consecutive sequence numbers.
func (s *Store) appendTurnsWith(ctx context.Context, q Querier, runID uuid.UUID, turns []*Turn) error {
	pgID := uuidToPg(runID)

	if err := q.LockRun(ctx, pgID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
		}
		return err
	}

	maxSeq, err := q.MaxSeq(ctx, pgID)
	if err != nil {
		return err
	}

	for i, turn := range turns {
		contextIDs, err := marshalContextIDs(turn.ContextIDs)
		if err != nil {
			return err
		}
		seq := maxSeq + int32(i) + 1 // #nosec G115 -- i bounded by slice length
		if err := q.InsertTurn(ctx, InsertTurnParams{
			RunID:      pgID,
			Seq:        seq,
			Role:       turn.Role,
			Content:    turn.Content,
			ContextIDs: contextIDs,
		}); err != nil {
			return fmt.Errorf("inserting turn %d: %w", i, err)
		}
	}
	return nil
}

// rowToRun converts a RunRow to the application-level Run.
func rowToRun(row RunRow) *Run {
	return &Run{
		ID:        pgToUUID(row.ID),
		UserID:    row.UserID,
		CreatedAt: row.CreatedAt.Time,
	}
}

// rowToTurn converts a TurnRow to the application-level Turn.
func rowToTurn(row TurnRow) (*Turn, error) {
	var contextIDs []string
	if len(row.ContextIDs) > 0 {
		if err := json.Unmarshal(row.ContextIDs, &contextIDs); err != nil {
			return nil, fmt.Errorf("unmarshaling context ids: %w", err)
		}
	}

	return &Turn{
		ID:         pgToUUID(row.ID),
		RunID:      pgToUUID(row.RunID),
		Role:       row.Role,
		Content:    row.Content,
		ContextIDs: contextIDs,
		Seq:        int(row.Seq),
		CreatedAt:  row.CreatedAt.Time,
	}, nil
}

// uuidToPg converts uuid.UUID to pgtype.UUID.
func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// pgToUUID converts pgtype.UUID to uuid.UUID.
func pgToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}
