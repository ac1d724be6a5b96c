package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowponder/ponderd/internal/domain"
)

// OperationStore implements domain.OperationStore using PostgreSQL. The
// journal is diagnostics only: writes are best-effort from the caller's
// point of view and reads never feed back into orchestration decisions.
type OperationStore struct {
	pool *pgxpool.Pool
}

// NewOperationStore creates a new OperationStore backed by the given pool.
func NewOperationStore(pool *pgxpool.Pool) *OperationStore {
	return &OperationStore{pool: pool}
}

// Create inserts a new operation record. The detail map is stored as JSONB.
func (s *OperationStore) Create(ctx context.Context, rec domain.OperationRecord) error {
	detailJSON, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("postgres: marshal operation detail: %w", err)
	}

	const query = `
		INSERT INTO operations (id, kind, actor, ponder_id, tx_id, phase, error, detail, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err = s.pool.Exec(ctx, query,
		rec.ID, string(rec.Kind), string(rec.Actor), uint64(rec.PonderID),
		rec.TxID, string(rec.Phase), rec.Error, detailJSON,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create operation %s: %w", rec.ID, err)
	}
	return nil
}

// UpdatePhase advances an operation to a new phase. The transaction ID is
// only written once it is known; an empty txID leaves the stored one alone.
func (s *OperationStore) UpdatePhase(ctx context.Context, id string, phase domain.OperationPhase, txID, errMsg string) error {
	const query = `
		UPDATE operations
		SET phase = $2,
		    tx_id = CASE WHEN $3 = '' THEN tx_id ELSE $3 END,
		    error = $4,
		    updated_at = NOW()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, string(phase), txID, errMsg)
	if err != nil {
		return fmt.Errorf("postgres: update operation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: operation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns operation records, newest first, with pagination and optional
// time filtering.
func (s *OperationStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.OperationRecord, error) {
	query := `SELECT id, kind, actor, ponder_id, tx_id, phase, error, detail, created_at, updated_at
		FROM operations WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list operations: %w", err)
	}
	defer rows.Close()

	var recs []domain.OperationRecord
	for rows.Next() {
		rec, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list operations rows: %w", err)
	}
	return recs, nil
}

// Get returns one operation record by ID.
func (s *OperationStore) Get(ctx context.Context, id string) (domain.OperationRecord, error) {
	const query = `SELECT id, kind, actor, ponder_id, tx_id, phase, error, detail, created_at, updated_at
		FROM operations WHERE id = $1`
	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return domain.OperationRecord{}, fmt.Errorf("postgres: get operation %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return domain.OperationRecord{}, fmt.Errorf("postgres: get operation %s: %w", id, err)
		}
		return domain.OperationRecord{}, fmt.Errorf("postgres: operation %s: %w", id, domain.ErrNotFound)
	}
	return scanOperation(rows)
}

func scanOperation(rows pgx.Rows) (domain.OperationRecord, error) {
	var (
		rec        domain.OperationRecord
		kind       string
		actor      string
		ponderID   uint64
		phase      string
		detailJSON []byte
	)
	if err := rows.Scan(&rec.ID, &kind, &actor, &ponderID, &rec.TxID, &phase,
		&rec.Error, &detailJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return domain.OperationRecord{}, fmt.Errorf("postgres: scan operation: %w", err)
	}
	rec.Kind = domain.OperationKind(kind)
	rec.Actor = domain.Address(actor)
	rec.PonderID = domain.PonderID(ponderID)
	rec.Phase = domain.OperationPhase(phase)

	if detailJSON != nil {
		if err := json.Unmarshal(detailJSON, &rec.Detail); err != nil {
			return domain.OperationRecord{}, fmt.Errorf("postgres: unmarshal operation detail: %w", err)
		}
	}
	return rec, nil
}

// Compile-time interface check.
var _ domain.OperationStore = (*OperationStore)(nil)
