package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx operations the querier needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same queries run inside and outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Querier defines the database operations Store needs on runs and turns.
// Interfaces are defined by the consumer so Store can be unit-tested against
// a mock.
type Querier interface {
	// CreateRun inserts a run row.
	CreateRun(ctx context.Context, arg CreateRunParams) (RunRow, error)

	// GetRun fetches a run by ID. Returns pgx.ErrNoRows when absent.
	GetRun(ctx context.Context, id pgtype.UUID) (RunRow, error)

	// ListRunsByUser returns a user's runs in creation order, oldest first.
	ListRunsByUser(ctx context.Context, userID string) ([]RunRow, error)

	// LockRun acquires a row lock on a run (SELECT ... FOR UPDATE).
	// Returns pgx.ErrNoRows when the run does not exist.
	LockRun(ctx context.Context, id pgtype.UUID) error

	// MaxSeq returns the highest turn sequence number in a run, 0 if none.
	MaxSeq(ctx context.Context, runID pgtype.UUID) (int32, error)

	// InsertTurn appends one turn row.
	InsertTurn(ctx context.Context, arg InsertTurnParams) error

	// ListTurns returns a run's turns ordered by sequence number.
	ListTurns(ctx context.Context, runID pgtype.UUID) ([]TurnRow, error)
}

// CreateRunParams are the parameters for Querier.CreateRun.
type CreateRunParams struct {
	ID     pgtype.UUID
	UserID string
}

// InsertTurnParams are the parameters for Querier.InsertTurn.
type InsertTurnParams struct {
	RunID      pgtype.UUID
	Seq        int32
	Role       string
	Content    string
	ContextIDs []byte // JSONB array of chunk IDs
}

// RunRow is a row from the runs table.
type RunRow struct {
	ID        pgtype.UUID
	UserID    string
	CreatedAt pgtype.Timestamptz
}

// TurnRow is a row from the turns table.
type TurnRow struct {
	ID         pgtype.UUID
	RunID      pgtype.UUID
	Seq        int32
	Role       string
	Content    string
	ContextIDs []byte
	CreatedAt  pgtype.Timestamptz
}

// PgxQuerier implements Querier with hand-written SQL over any DBTX.
type PgxQuerier struct {
	db DBTX
}

// NewPgxQuerier creates a PgxQuerier over a pool or transaction.
func NewPgxQuerier(db DBTX) *PgxQuerier {
	return &PgxQuerier{db: db}
}

func (q *PgxQuerier) CreateRun(ctx context.Context, arg CreateRunParams) (RunRow, error) {
	var row RunRow
	err := q.db.QueryRow(ctx, `
		INSERT INTO runs (id, user_id)
		VALUES ($1, $2)
		RETURNING id, user_id, created_at`,
		arg.ID, arg.UserID,
	).Scan(&row.ID, &row.UserID, &row.CreatedAt)
	if err != nil {
		return RunRow{}, fmt.Errorf("inserting run: %w", err)
	}
	return row, nil
}

func (q *PgxQuerier) GetRun(ctx context.Context, id pgtype.UUID) (RunRow, error) {
	var row RunRow
	err := q.db.QueryRow(ctx, `
		SELECT id, user_id, created_at FROM runs WHERE id = $1`, id,
	).Scan(&row.ID, &row.UserID, &row.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RunRow{}, pgx.ErrNoRows
		}
		return RunRow{}, fmt.Errorf("fetching run: %w", err)
	}
	return row, nil
}

func (q *PgxQuerier) ListRunsByUser(ctx context.Context, userID string) ([]RunRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, created_at
		FROM runs
		WHERE user_id = $1
		ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var row RunRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading run rows: %w", err)
	}
	return result, nil
}

func (q *PgxQuerier) LockRun(ctx context.Context, id pgtype.UUID) error {
	var locked pgtype.UUID
	err := q.db.QueryRow(ctx,
		`SELECT id FROM runs WHERE id = $1 FOR UPDATE`, id,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("locking run: %w", err)
	}
	return nil
}

func (q *PgxQuerier) MaxSeq(ctx context.Context, runID pgtype.UUID) (int32, error) {
	var maxSeq int32
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM turns WHERE run_id = $1`, runID,
	).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("reading max sequence: %w", err)
	}
	return maxSeq, nil
}

func (q *PgxQuerier) InsertTurn(ctx context.Context, arg InsertTurnParams) error {
	contextIDs := arg.ContextIDs
	if contextIDs == nil {
		contextIDs = []byte("[]")
	}
	_, err := q.db.Exec(ctx, `
		INSERT INTO turns (run_id, seq, role, content, context_ids)
		VALUES ($1, $2, $3, $4, $5)`,
		arg.RunID, arg.Seq, arg.Role, arg.Content, contextIDs,
	)
	if err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}
	return nil
}

func (q *PgxQuerier) ListTurns(ctx context.Context, runID pgtype.UUID) ([]TurnRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, run_id, seq, role, content, context_ids, created_at
		FROM turns
		WHERE run_id = $1
		ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	var result []TurnRow
	for rows.Next() {
		var row TurnRow
		if err := rows.Scan(&row.ID, &row.RunID, &row.Seq, &row.Role, &row.Content, &row.ContextIDs, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading turn rows: %w", err)
	}
	return result, nil
}

// marshalContextIDs encodes chunk IDs as a JSONB array, never nil.
func marshalContextIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshaling context ids: %w", err)
	}
	return data, nil
}
