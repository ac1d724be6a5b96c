package market

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowponder/ponderd/internal/domain"
	"github.com/flowponder/ponderd/internal/ledger"
)

const testAddr = domain.Address("0x1234567890abcdef")

type stubSigner struct{ addr domain.Address }

func (s stubSigner) Address() domain.Address               { return s.addr }
func (s stubSigner) SignEnvelope(p []byte) ([]byte, error) { return []byte("sig"), nil }

type fakeSession struct {
	mu         sync.Mutex
	session    domain.Session
	refreshes  int
	refreshErr error
}

func (f *fakeSession) Session() domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

func (f *fakeSession) Authorizer() ledger.Authorizer { return stubSigner{addr: f.session.Address} }

func (f *fakeSession) RefreshBalance(ctx context.Context) (domain.Amount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return 0, f.refreshErr
	}
	return f.session.Balance, nil
}

func signedIn(balance string) *fakeSession {
	return &fakeSession{session: domain.Session{
		Address:       testAddr,
		Authenticated: true,
		Balance:       domain.MustAmount(balance),
	}}
}

// fakeGateway counts submissions so tests can assert that validation
// failures never reach the network.
type fakeGateway struct {
	mu          sync.Mutex
	submissions int
	ponderGets  int32

	submitErr error
	sealErr   error
	sealRes   ledger.SealResult

	ponder    domain.Ponder
	ponderErr error

	lastCreate ledger.CreatePonderParams
	lastVote   struct {
		id     domain.PonderID
		option int
		amount domain.Amount
		free   bool
	}

	// blockSeal, when non-nil, is closed by the test to let AwaitSeal return.
	blockSeal chan struct{}
}

func (f *fakeGateway) submit() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "tx-1", nil
}

func (f *fakeGateway) SendCreatePonder(ctx context.Context, signer ledger.Authorizer, p ledger.CreatePonderParams) (string, error) {
	f.mu.Lock()
	f.lastCreate = p
	f.mu.Unlock()
	return f.submit()
}

func (f *fakeGateway) SendVote(ctx context.Context, signer ledger.Authorizer, id domain.PonderID, option int, amount domain.Amount) (string, error) {
	f.mu.Lock()
	f.lastVote.id, f.lastVote.option, f.lastVote.amount, f.lastVote.free = id, option, amount, false
	f.mu.Unlock()
	return f.submit()
}

func (f *fakeGateway) SendFreeVote(ctx context.Context, signer ledger.Authorizer, id domain.PonderID, option int) (string, error) {
	f.mu.Lock()
	f.lastVote.id, f.lastVote.option, f.lastVote.free = id, option, true
	f.mu.Unlock()
	return f.submit()
}

func (f *fakeGateway) SendWithdraw(ctx context.Context, signer ledger.Authorizer, id domain.PonderID) (string, error) {
	return f.submit()
}

func (f *fakeGateway) AwaitSeal(ctx context.Context, txID string) (ledger.SealResult, error) {
	if f.blockSeal != nil {
		<-f.blockSeal
	}
	if f.sealErr != nil {
		return ledger.SealResult{}, f.sealErr
	}
	res := f.sealRes
	if res.TxID == "" {
		res.TxID = txID
	}
	return res, nil
}

func (f *fakeGateway) GetPonder(ctx context.Context, id domain.PonderID) (domain.Ponder, error) {
	atomic.AddInt32(&f.ponderGets, 1)
	if f.ponderErr != nil {
		return domain.Ponder{}, f.ponderErr
	}
	return f.ponder, nil
}

func (f *fakeGateway) ListActivePonders(ctx context.Context) ([]domain.Ponder, error) {
	return []domain.Ponder{f.ponder}, nil
}

func (f *fakeGateway) GetUserStats(ctx context.Context, addr domain.Address) (domain.UserStats, error) {
	return domain.UserStats{}, domain.ErrNotFound
}

func (f *fakeGateway) GetUserVotes(ctx context.Context, addr domain.Address) ([]domain.Vote, error) {
	return nil, nil
}

func (f *fakeGateway) GetLeaderboard(ctx context.Context) ([]domain.Address, error) {
	return nil, nil
}

func (f *fakeGateway) GetBalance(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	return 0, nil
}

func (f *fakeGateway) submissionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func openPonder(id domain.PonderID) domain.Ponder {
	return domain.Ponder{
		ID:       id,
		Question: "Will it rain tomorrow?",
		Options:  []string{"Yes", "No"},
		Category: "Science",
		EndTime:  time.Now().Add(24 * time.Hour).Unix(),
		MinBet:   domain.MustAmount("0.10"),
		MaxBet:   domain.MustAmount("100"),
	}
}

func validCreate() CreatePonderRequest {
	return CreatePonderRequest{
		Question:      "Will BTC close above 100k this year?",
		Options:       []string{"Yes", "No"},
		DurationHours: domain.MustAmount("48"),
		MinBet:        domain.MustAmount("0.10"),
		MaxBet:        domain.MustAmount("50"),
		Category:      "Crypto",
	}
}

func TestCreatePonderHappyPath(t *testing.T) {
	gw := &fakeGateway{sealRes: ledger.SealResult{
		Status: "SEALED",
		Events: []ledger.TxEvent{{
			Type:   "A.0102030405060708.PonderMarket.PonderCreated",
			Values: map[string]string{"id": "42"},
		}},
	}}
	sess := signedIn("10")
	svc := NewService(gw, sess, testLogger())

	res, err := svc.CreatePonder(context.Background(), validCreate())
	require.NoError(t, err)
	assert.Equal(t, "tx-1", res.TxID)
	assert.Equal(t, domain.PonderID(42), res.PonderID)
	assert.NotEmpty(t, res.OperationID)
	assert.Equal(t, 1, gw.submissionCount())
	assert.Equal(t, 1, sess.refreshes, "balance refreshed after seal")
}

func TestCreatePonderValidationNeverSubmits(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreatePonderRequest)
		field  string
	}{
		{"short question", func(r *CreatePonderRequest) { r.Question = "too short" }, "question"},
		{"one option", func(r *CreatePonderRequest) { r.Options = []string{"Yes", "  "} }, "options"},
		{"min bet below floor", func(r *CreatePonderRequest) { r.MinBet = domain.MustAmount("0.05") }, "minBet"},
		{"max below min", func(r *CreatePonderRequest) { r.MaxBet = domain.MustAmount("0.05") }, "maxBet"},
		{"unknown category", func(r *CreatePonderRequest) { r.Category = "Astrology" }, "category"},
		{"zero duration", func(r *CreatePonderRequest) { r.DurationHours = 0 }, "durationHours"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{}
			svc := NewService(gw, signedIn("10"), testLogger())

			req := validCreate()
			tc.mutate(&req)
			_, err := svc.CreatePonder(context.Background(), req)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Zero(t, gw.submissionCount(), "validation failure must not submit")
		})
	}
}

func TestCreatePonderInsufficientBalanceForFee(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, signedIn("0.5"), testLogger())

	_, err := svc.CreatePonder(context.Background(), validCreate())

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "balance", verr.Field)
	assert.Zero(t, gw.submissionCount())
}

func TestCreatePonderRequiresSignIn(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewService(gw, &fakeSession{}, testLogger())

	_, err := svc.CreatePonder(context.Background(), validCreate())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Zero(t, gw.submissionCount())
}

func TestPlaceVoteHappyPath(t *testing.T) {
	gw := &fakeGateway{ponder: openPonder(7), sealRes: ledger.SealResult{Status: "SEALED"}}
	sess := signedIn("10")
	svc := NewService(gw, sess, testLogger())

	res, err := svc.PlaceVote(context.Background(), 7, 1, domain.MustAmount("2.5"))
	require.NoError(t, err)
	assert.Equal(t, domain.PonderID(7), res.PonderID)
	assert.Equal(t, 1, gw.lastVote.option)
	assert.Equal(t, domain.MustAmount("2.5"), gw.lastVote.amount)
	assert.Equal(t, 1, sess.refreshes)
	// Reconcile re-reads the ponder on top of the pre-vote read.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&gw.ponderGets), int32(2))
}

func TestPlaceVoteValidationNeverSubmits(t *testing.T) {
	ended := openPonder(7)
	ended.EndTime = time.Now().Add(-time.Minute).Unix()

	cases := []struct {
		name   string
		ponder domain.Ponder
		option int
		amount string
		field  string
	}{
		{"option out of range", openPonder(7), 5, "1", "option"},
		{"negative option", openPonder(7), -1, "1", "option"},
		{"ended ponder", ended, 0, "1", "endTime"},
		{"below min bet", openPonder(7), 0, "0.05", "amount"},
		{"above max bet", openPonder(7), 0, "500", "amount"},
		{"exceeds balance", openPonder(7), 0, "50", "amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{ponder: tc.ponder}
			svc := NewService(gw, signedIn("10"), testLogger())

			_, err := svc.PlaceVote(context.Background(), 7, tc.option, domain.MustAmount(tc.amount))

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Zero(t, gw.submissionCount())
		})
	}
}

func TestPlaceFreeVoteSkipsStakeChecks(t *testing.T) {
	// Balance below the ponder's min bet: a staked vote would be rejected,
	// a free vote must go through.
	gw := &fakeGateway{ponder: openPonder(7), sealRes: ledger.SealResult{Status: "SEALED"}}
	svc := NewService(gw, signedIn("0"), testLogger())

	res, err := svc.PlaceFreeVote(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.True(t, gw.lastVote.free)
	assert.Equal(t, domain.PonderID(7), res.PonderID)
}

func TestConcurrentVoteOnSamePonderRejected(t *testing.T) {
	gw := &fakeGateway{
		ponder:    openPonder(7),
		sealRes:   ledger.SealResult{Status: "SEALED"},
		blockSeal: make(chan struct{}),
	}
	svc := NewService(gw, signedIn("10"), testLogger())

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.PlaceVote(context.Background(), 7, 0, domain.MustAmount("1"))
		firstDone <- err
	}()

	// Wait until the first vote is past validation and parked in AwaitSeal.
	require.Eventually(t, func() bool {
		return gw.submissionCount() == 1
	}, time.Second, 5*time.Millisecond)

	_, err := svc.PlaceVote(context.Background(), 7, 1, domain.MustAmount("1"))
	var cerr *domain.ConcurrentOperationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.PonderID(7), cerr.PonderID)

	close(gw.blockSeal)
	require.NoError(t, <-firstDone)

	// Slot released after settle: a third vote goes through.
	_, err = svc.PlaceVote(context.Background(), 7, 1, domain.MustAmount("1"))
	require.NoError(t, err)
}

func TestVoteOnDifferentPondersNotSerialized(t *testing.T) {
	reg := newInflightRegistry()

	release7, err := reg.begin(testAddr, 7)
	require.NoError(t, err)
	defer release7()

	release8, err := reg.begin(testAddr, 8)
	require.NoError(t, err)
	release8()

	// Same ponder, different user is also independent.
	other, err := reg.begin("0xfedcba9876543210", 7)
	require.NoError(t, err)
	other()
}

func TestSealRevertSurfacedVerbatim(t *testing.T) {
	revert := domain.NewLedgerError(domain.LedgerExecutionReverted, nil,
		"panic: Betting amount below minimum")
	gw := &fakeGateway{ponder: openPonder(7), sealErr: revert}
	svc := NewService(gw, signedIn("10"), testLogger())

	_, err := svc.PlaceVote(context.Background(), 7, 0, domain.MustAmount("1"))
	require.Error(t, err)
	assert.Equal(t, domain.LedgerExecutionReverted, domain.LedgerCode(err))
	assert.Contains(t, err.Error(), "Betting amount below minimum")
}

func TestSealTimeoutReconcileNotRetry(t *testing.T) {
	timeout := domain.NewLedgerError(domain.LedgerTimeout, nil, "seal wait expired")
	gw := &fakeGateway{ponder: openPonder(7), sealErr: timeout}
	journal := &memJournal{}
	svc := NewService(gw, signedIn("10"), testLogger()).WithJournal(journal)

	_, err := svc.PlaceVote(context.Background(), 7, 0, domain.MustAmount("1"))
	require.Error(t, err)
	assert.Equal(t, domain.LedgerTimeout, domain.LedgerCode(err))
	assert.Equal(t, 1, gw.submissionCount(), "timeout must not trigger a resubmit")
	assert.Equal(t, domain.PhaseTimeout, journal.lastPhase())
	// Outcome is unknown; reconcile re-queries the ponder.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&gw.ponderGets), int32(2))
}

func TestWithdrawRequiresResolved(t *testing.T) {
	gw := &fakeGateway{ponder: openPonder(7)}
	svc := NewService(gw, signedIn("10"), testLogger())

	_, err := svc.WithdrawWinnings(context.Background(), 7)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, gw.submissionCount())
}

func TestWithdrawHappyPath(t *testing.T) {
	resolved := openPonder(7)
	resolved.Resolved = true
	resolved.WinningOption = 1
	gw := &fakeGateway{ponder: resolved, sealRes: ledger.SealResult{Status: "SEALED"}}
	svc := NewService(gw, signedIn("10"), testLogger())

	res, err := svc.WithdrawWinnings(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "tx-1", res.TxID)
}

func TestSubmitErrorRecordedAsFailed(t *testing.T) {
	submitErr := domain.NewLedgerError(domain.LedgerNetworkUnavailable, errors.New("dial tcp"), "access node unreachable")
	gw := &fakeGateway{ponder: openPonder(7), submitErr: submitErr}
	journal := &memJournal{}
	svc := NewService(gw, signedIn("10"), testLogger()).WithJournal(journal)

	_, err := svc.PlaceVote(context.Background(), 7, 0, domain.MustAmount("1"))
	require.Error(t, err)
	assert.Equal(t, domain.PhaseFailed, journal.lastPhase())
}

func TestJournalFailureDoesNotFailOperation(t *testing.T) {
	gw := &fakeGateway{ponder: openPonder(7), sealRes: ledger.SealResult{Status: "SEALED"}}
	svc := NewService(gw, signedIn("10"), testLogger()).
		WithJournal(&memJournal{err: errors.New("pg down")})

	_, err := svc.PlaceVote(context.Background(), 7, 0, domain.MustAmount("1"))
	assert.NoError(t, err, "journal is diagnostics only")
}

func TestRefreshFailureAfterSealDoesNotFailOperation(t *testing.T) {
	gw := &fakeGateway{ponder: openPonder(7), sealRes: ledger.SealResult{Status: "SEALED"}}
	sess := signedIn("10")
	sess.refreshErr = errors.New("balance query failed")
	svc := NewService(gw, sess, testLogger())

	_, err := svc.PlaceVote(context.Background(), 7, 0, domain.MustAmount("1"))
	assert.NoError(t, err)
}

// memJournal is an in-memory OperationStore for orchestrator tests.
type memJournal struct {
	mu     sync.Mutex
	recs   []domain.OperationRecord
	phases []domain.OperationPhase
	err    error
}

func (m *memJournal) Create(ctx context.Context, rec domain.OperationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	m.phases = append(m.phases, rec.Phase)
	return nil
}

func (m *memJournal) UpdatePhase(ctx context.Context, id string, phase domain.OperationPhase, txID, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.phases = append(m.phases, phase)
	return nil
}

func (m *memJournal) List(ctx context.Context, opts domain.ListOpts) ([]domain.OperationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OperationRecord(nil), m.recs...), nil
}

func (m *memJournal) lastPhase() domain.OperationPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.phases) == 0 {
		return ""
	}
	return m.phases[len(m.phases)-1]
}
