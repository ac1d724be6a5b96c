package domain

import (
	"context"
	"time"
)

// OperationKind names a mutating client workflow.
type OperationKind string

const (
	OpCreatePonder OperationKind = "create_ponder"
	OpPlaceVote    OperationKind = "place_vote"
	OpFreeVote     OperationKind = "free_vote"
	OpWithdraw     OperationKind = "withdraw_winnings"
)

// OperationPhase tracks a workflow through validate → submit → confirm.
type OperationPhase string

const (
	PhaseValidated OperationPhase = "validated"
	PhaseSubmitted OperationPhase = "submitted"
	PhaseSealed    OperationPhase = "sealed"
	PhaseFailed    OperationPhase = "failed"
	// PhaseTimeout means the seal wait expired with the outcome unknown.
	// The record stays in this phase until a reconciling query settles it.
	PhaseTimeout OperationPhase = "timeout"
)

// OperationRecord is one row of the client-side operation journal: what was
// attempted, by whom, and how it ended. The journal is diagnostics only; it
// is never consulted to answer queries, the ledger stays authoritative.
type OperationRecord struct {
	ID        string // uuid assigned by the orchestrator
	Kind      OperationKind
	Actor     Address
	PonderID  PonderID // 0 for create_ponder until the ledger assigns one
	TxID      string
	Phase     OperationPhase
	Error     string
	Detail    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// OperationStore persists the operation journal.
type OperationStore interface {
	Create(ctx context.Context, rec OperationRecord) error
	UpdatePhase(ctx context.Context, id string, phase OperationPhase, txID, errMsg string) error
	List(ctx context.Context, opts ListOpts) ([]OperationRecord, error)
}
