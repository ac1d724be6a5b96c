// Package market orchestrates the mutating workflows against the ledger:
// create-ponder, place-vote (free or staked), and withdraw-winnings. Every
// operation runs the same three phases: validate locally, submit through the
// gateway, confirm by waiting for the seal and reconciling local state.
// Nothing is ever optimistically applied; the ledger's answer is the only
// state the client trusts.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flowponder/ponderd/internal/domain"
	"github.com/flowponder/ponderd/internal/ledger"
)

// CreationFee is withdrawn from the creator's vault by the creation
// transaction.
var CreationFee = domain.MustAmount("1.0")

// MinAllowedBet is the global floor for a ponder's minimum bet.
var MinAllowedBet = domain.MustAmount("0.10")

const (
	minQuestionLen    = 10
	maxQuestionLen    = 500
	maxDescriptionLen = 1000
	minOptions        = 2
	maxOptions        = 10
)

// LedgerGateway is the slice of the ledger client the orchestrator uses.
type LedgerGateway interface {
	SendCreatePonder(ctx context.Context, signer ledger.Authorizer, p ledger.CreatePonderParams) (string, error)
	SendVote(ctx context.Context, signer ledger.Authorizer, id domain.PonderID, option int, amount domain.Amount) (string, error)
	SendFreeVote(ctx context.Context, signer ledger.Authorizer, id domain.PonderID, option int) (string, error)
	SendWithdraw(ctx context.Context, signer ledger.Authorizer, id domain.PonderID) (string, error)
	AwaitSeal(ctx context.Context, txID string) (ledger.SealResult, error)

	GetPonder(ctx context.Context, id domain.PonderID) (domain.Ponder, error)
	ListActivePonders(ctx context.Context) ([]domain.Ponder, error)
	GetUserStats(ctx context.Context, addr domain.Address) (domain.UserStats, error)
	GetUserVotes(ctx context.Context, addr domain.Address) ([]domain.Vote, error)
	GetLeaderboard(ctx context.Context) ([]domain.Address, error)
	GetBalance(ctx context.Context, addr domain.Address) (domain.Amount, error)
}

// SessionSource is the slice of the auth service the orchestrator uses.
type SessionSource interface {
	Session() domain.Session
	Authorizer() ledger.Authorizer
	RefreshBalance(ctx context.Context) (domain.Amount, error)
}

// Notifier receives operation outcome notifications.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Result reports a confirmed mutating operation.
type Result struct {
	OperationID string          `json:"operationId"`
	TxID        string          `json:"txId"`
	PonderID    domain.PonderID `json:"ponderId"`
}

// Service is the market orchestrator.
type Service struct {
	gw      LedgerGateway
	session SessionSource
	logger  *slog.Logger

	inflight *inflightRegistry

	// Optional collaborators; each is nil-safe.
	journal  domain.OperationStore
	ponders  domain.PonderCache
	board    domain.LeaderboardCache
	balances domain.BalanceCache
	bus      domain.EventBus
	notifier Notifier
}

// NewService creates the orchestrator with its two required dependencies.
func NewService(gw LedgerGateway, session SessionSource, logger *slog.Logger) *Service {
	return &Service{
		gw:       gw,
		session:  session,
		logger:   logger.With(slog.String("component", "market")),
		inflight: newInflightRegistry(),
	}
}

// WithJournal attaches the client-side operation journal.
func (s *Service) WithJournal(store domain.OperationStore) *Service {
	s.journal = store
	return s
}

// WithCaches attaches the ponder, leaderboard, and balance caches.
func (s *Service) WithCaches(ponders domain.PonderCache, board domain.LeaderboardCache, balances domain.BalanceCache) *Service {
	s.ponders = ponders
	s.board = board
	s.balances = balances
	return s
}

// WithEventBus attaches the operation event bus.
func (s *Service) WithEventBus(bus domain.EventBus) *Service {
	s.bus = bus
	return s
}

// WithNotifier attaches an outcome notifier.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// CreatePonderRequest carries user input for a creation workflow.
type CreatePonderRequest struct {
	Question      string
	Description   string
	Options       []string
	DurationHours domain.Amount
	MinBet        domain.Amount
	MaxBet        domain.Amount
	Category      domain.Category
}

// CreatePonder validates the request, submits the creation transaction, and
// waits for the seal. On success the returned Result carries the ledger-
// assigned ponder ID. An ExecutionReverted reason is surfaced verbatim.
func (s *Service) CreatePonder(ctx context.Context, req CreatePonderRequest) (Result, error) {
	session := s.session.Session()
	if !session.Authenticated {
		return Result{}, domain.ErrNotAuthenticated
	}

	req.Options = discardBlankOptions(req.Options)
	if err := validateCreate(req, session.Balance); err != nil {
		return Result{}, err
	}

	// Creations serialize per user under ponder key 0: one in-flight
	// mutating transaction per user action.
	release, err := s.inflight.begin(session.Address, 0)
	if err != nil {
		return Result{}, err
	}
	defer release()

	opID := uuid.NewString()
	s.journalCreate(ctx, opID, domain.OpCreatePonder, session.Address, 0, map[string]any{
		"question": req.Question,
		"category": string(req.Category),
	})

	txID, err := s.gw.SendCreatePonder(ctx, s.session.Authorizer(), ledger.CreatePonderParams{
		Question:      req.Question,
		Description:   req.Description,
		Options:       req.Options,
		DurationHours: req.DurationHours,
		MinBet:        req.MinBet,
		MaxBet:        req.MaxBet,
		Category:      req.Category,
	})
	if err != nil {
		s.journalUpdate(ctx, opID, domain.PhaseFailed, "", err)
		return Result{}, err
	}
	s.journalUpdate(ctx, opID, domain.PhaseSubmitted, txID, nil)
	s.publishOp(ctx, opID, domain.OpCreatePonder, domain.PhaseSubmitted, 0, txID)

	seal, err := s.gw.AwaitSeal(ctx, txID)
	if err != nil {
		return Result{}, s.confirmFailed(ctx, opID, domain.OpCreatePonder, 0, txID, err)
	}

	result := Result{OperationID: opID, TxID: txID}
	if id, ok := seal.PonderCreatedID(); ok {
		result.PonderID = id
	}

	s.journalUpdate(ctx, opID, domain.PhaseSealed, txID, nil)
	s.publishOp(ctx, opID, domain.OpCreatePonder, domain.PhaseSealed, result.PonderID, txID)
	s.notify(ctx, "operation_sealed", "Ponder created",
		fmt.Sprintf("%q is live as ponder %d", req.Question, result.PonderID))

	s.reconcile(ctx, result.PonderID)
	return result, nil
}

// PlaceVote validates and submits a staked vote. The stake must be inside
// the ponder's bet range and covered by the session balance, and the
// ponder's betting window must still be open; violations never reach the
// gateway.
func (s *Service) PlaceVote(ctx context.Context, id domain.PonderID, option int, amount domain.Amount) (Result, error) {
	return s.vote(ctx, id, option, amount, false)
}

// PlaceFreeVote validates and submits a zero-stake vote.
func (s *Service) PlaceFreeVote(ctx context.Context, id domain.PonderID, option int) (Result, error) {
	return s.vote(ctx, id, option, 0, true)
}

func (s *Service) vote(ctx context.Context, id domain.PonderID, option int, amount domain.Amount, free bool) (Result, error) {
	session := s.session.Session()
	if !session.Authenticated {
		return Result{}, domain.ErrNotAuthenticated
	}

	ponder, err := s.Ponder(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if err := validateVote(ponder, option, amount, free, session.Balance, time.Now()); err != nil {
		return Result{}, err
	}

	release, err := s.inflight.begin(session.Address, id)
	if err != nil {
		return Result{}, err
	}
	defer release()

	kind := domain.OpPlaceVote
	if free {
		kind = domain.OpFreeVote
	}
	opID := uuid.NewString()
	s.journalCreate(ctx, opID, kind, session.Address, id, map[string]any{
		"option": option,
		"amount": amount.String(),
	})

	var txID string
	if free {
		txID, err = s.gw.SendFreeVote(ctx, s.session.Authorizer(), id, option)
	} else {
		txID, err = s.gw.SendVote(ctx, s.session.Authorizer(), id, option, amount)
	}
	if err != nil {
		s.journalUpdate(ctx, opID, domain.PhaseFailed, "", err)
		return Result{}, err
	}
	s.journalUpdate(ctx, opID, domain.PhaseSubmitted, txID, nil)
	s.publishOp(ctx, opID, kind, domain.PhaseSubmitted, id, txID)

	if _, err := s.gw.AwaitSeal(ctx, txID); err != nil {
		return Result{}, s.confirmFailed(ctx, opID, kind, id, txID, err)
	}

	s.journalUpdate(ctx, opID, domain.PhaseSealed, txID, nil)
	s.publishOp(ctx, opID, kind, domain.PhaseSealed, id, txID)
	s.notify(ctx, "operation_sealed", "Vote placed",
		fmt.Sprintf("vote on ponder %d option %d confirmed", id, option))

	s.reconcile(ctx, id)
	return Result{OperationID: opID, TxID: txID, PonderID: id}, nil
}

// WithdrawWinnings submits a withdrawal for a resolved ponder. Resolution is
// the ledger's call; the client only checks the ledger-reported flag.
func (s *Service) WithdrawWinnings(ctx context.Context, id domain.PonderID) (Result, error) {
	session := s.session.Session()
	if !session.Authenticated {
		return Result{}, domain.ErrNotAuthenticated
	}

	ponder, err := s.Ponder(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !ponder.Resolved {
		return Result{}, domain.NewValidationError("ponder", "ponder %d is not resolved yet", id)
	}

	release, err := s.inflight.begin(session.Address, id)
	if err != nil {
		return Result{}, err
	}
	defer release()

	opID := uuid.NewString()
	s.journalCreate(ctx, opID, domain.OpWithdraw, session.Address, id, nil)

	txID, err := s.gw.SendWithdraw(ctx, s.session.Authorizer(), id)
	if err != nil {
		s.journalUpdate(ctx, opID, domain.PhaseFailed, "", err)
		return Result{}, err
	}
	s.journalUpdate(ctx, opID, domain.PhaseSubmitted, txID, nil)
	s.publishOp(ctx, opID, domain.OpWithdraw, domain.PhaseSubmitted, id, txID)

	if _, err := s.gw.AwaitSeal(ctx, txID); err != nil {
		return Result{}, s.confirmFailed(ctx, opID, domain.OpWithdraw, id, txID, err)
	}

	s.journalUpdate(ctx, opID, domain.PhaseSealed, txID, nil)
	s.publishOp(ctx, opID, domain.OpWithdraw, domain.PhaseSealed, id, txID)
	s.notify(ctx, "operation_sealed", "Winnings withdrawn",
		fmt.Sprintf("winnings for ponder %d deposited", id))

	s.reconcile(ctx, id)
	return Result{OperationID: opID, TxID: txID, PonderID: id}, nil
}

// confirmFailed records a seal failure. A Timeout leaves the outcome
// unknown: the journal keeps the timeout phase and reconciliation re-queries
// instead of retrying the mutation.
func (s *Service) confirmFailed(ctx context.Context, opID string, kind domain.OperationKind, id domain.PonderID, txID string, err error) error {
	phase := domain.PhaseFailed
	if domain.LedgerCode(err) == domain.LedgerTimeout {
		phase = domain.PhaseTimeout
		s.reconcile(ctx, id)
	}
	s.journalUpdate(ctx, opID, phase, txID, err)
	s.publishOp(ctx, opID, kind, phase, id, txID)
	s.notify(ctx, "operation_failed", "Operation failed",
		fmt.Sprintf("%s on ponder %d: %v", kind, id, err))
	return err
}

// reconcile refreshes the session balance and re-queries the ponder after a
// confirmed (or outcome-unknown) mutation. The two refreshes are independent
// and may complete out of order; consistency is eventual within one round
// trip.
func (s *Service) reconcile(ctx context.Context, id domain.PonderID) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fresh, err := s.session.RefreshBalance(gctx)
		if err != nil {
			s.logger.WarnContext(gctx, "balance refresh after operation failed",
				slog.String("error", err.Error()))
			return nil
		}
		if s.balances != nil {
			if err := s.balances.Set(gctx, s.session.Session().Address, fresh); err != nil {
				s.logger.WarnContext(gctx, "balance cache update failed",
					slog.String("error", err.Error()))
			}
		}
		return nil
	})

	g.Go(func() error {
		if s.ponders != nil {
			if err := s.ponders.Invalidate(gctx, id); err != nil {
				s.logger.WarnContext(gctx, "ponder cache invalidate failed",
					slog.String("error", err.Error()))
			}
		}
		if id == 0 {
			return nil
		}
		fresh, err := s.gw.GetPonder(gctx, id)
		if err != nil {
			s.logger.WarnContext(gctx, "ponder re-query after operation failed",
				slog.Uint64("ponder_id", uint64(id)),
				slog.String("error", err.Error()))
			return nil
		}
		if s.ponders != nil {
			if err := s.ponders.Set(gctx, fresh); err != nil {
				s.logger.WarnContext(gctx, "ponder cache update failed",
					slog.String("error", err.Error()))
			}
		}
		return nil
	})

	_ = g.Wait()

	if s.board != nil {
		if err := s.board.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "leaderboard cache invalidate failed",
				slog.String("error", err.Error()))
		}
	}
}

// --- validation ---

func discardBlankOptions(options []string) []string {
	kept := make([]string, 0, len(options))
	for _, o := range options {
		if strings.TrimSpace(o) != "" {
			kept = append(kept, o)
		}
	}
	return kept
}

func validateCreate(req CreatePonderRequest, balance domain.Amount) error {
	if n := len(req.Question); n < minQuestionLen || n > maxQuestionLen {
		return domain.NewValidationError("question",
			"must be %d-%d characters, got %d", minQuestionLen, maxQuestionLen, n)
	}
	if n := len(req.Description); n > maxDescriptionLen {
		return domain.NewValidationError("description",
			"must be at most %d characters, got %d", maxDescriptionLen, n)
	}
	if n := len(req.Options); n < minOptions {
		return domain.NewValidationError("options",
			"need at least %d non-empty options, got %d", minOptions, n)
	}
	if n := len(req.Options); n > maxOptions {
		return domain.NewValidationError("options",
			"at most %d options allowed, got %d", maxOptions, n)
	}
	if req.DurationHours == 0 {
		return domain.NewValidationError("durationHours", "must be positive")
	}
	if req.MinBet < MinAllowedBet {
		return domain.NewValidationError("minBet",
			"must be at least %s", MinAllowedBet)
	}
	if req.MaxBet < req.MinBet {
		return domain.NewValidationError("maxBet",
			"must be at least the minimum bet %s", req.MinBet)
	}
	if req.Category == "" {
		return domain.NewValidationError("category", "must not be empty")
	}
	if !domain.ValidCategory(req.Category) {
		return domain.NewValidationError("category", "unknown category %q", req.Category)
	}
	if balance < CreationFee {
		return domain.NewValidationError("balance",
			"creation costs %s, balance is %s", CreationFee, balance)
	}
	return nil
}

func validateVote(p domain.Ponder, option int, amount domain.Amount, free bool, balance domain.Amount, now time.Time) error {
	if option < 0 || option >= len(p.Options) {
		return domain.NewValidationError("option",
			"index %d out of range for %d options", option, len(p.Options))
	}
	if p.Ended(now) {
		return domain.NewValidationError("endTime", "ponder %d has ended", p.ID)
	}
	if free {
		return nil
	}
	if amount < p.MinBet {
		return domain.NewValidationError("amount",
			"stake %s below minimum bet %s", amount, p.MinBet)
	}
	if amount > p.MaxBet {
		return domain.NewValidationError("amount",
			"stake %s above maximum bet %s", amount, p.MaxBet)
	}
	if amount > balance {
		return domain.NewValidationError("amount",
			"stake %s exceeds balance %s", amount, balance)
	}
	return nil
}

// --- journal / events / notifications (nil-safe) ---

func (s *Service) journalCreate(ctx context.Context, opID string, kind domain.OperationKind, actor domain.Address, id domain.PonderID, detail map[string]any) {
	if s.journal == nil {
		return
	}
	now := time.Now().UTC()
	err := s.journal.Create(ctx, domain.OperationRecord{
		ID:        opID,
		Kind:      kind,
		Actor:     actor,
		PonderID:  id,
		Phase:     domain.PhaseValidated,
		Detail:    detail,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "journal write failed",
			slog.String("op_id", opID),
			slog.String("error", err.Error()))
	}
}

func (s *Service) journalUpdate(ctx context.Context, opID string, phase domain.OperationPhase, txID string, opErr error) {
	if s.journal == nil {
		return
	}
	msg := ""
	if opErr != nil {
		msg = opErr.Error()
	}
	if err := s.journal.UpdatePhase(ctx, opID, phase, txID, msg); err != nil {
		s.logger.WarnContext(ctx, "journal update failed",
			slog.String("op_id", opID),
			slog.String("error", err.Error()))
	}
}

func (s *Service) publishOp(ctx context.Context, opID string, kind domain.OperationKind, phase domain.OperationPhase, id domain.PonderID, txID string) {
	if s.bus == nil {
		return
	}
	payload := fmt.Sprintf(
		`{"operationId":%q,"kind":%q,"phase":%q,"ponderId":%d,"txId":%q}`,
		opID, kind, phase, id, txID)
	if err := s.bus.Publish(ctx, "operations", []byte(payload)); err != nil {
		s.logger.WarnContext(ctx, "operation event publish failed",
			slog.String("error", err.Error()))
	}
}

func (s *Service) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.String("error", err.Error()))
	}
}
