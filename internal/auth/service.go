// Package auth owns the client session: who is signed in and what their
// last-confirmed balance is. It is the only component allowed to mutate the
// session; everyone else reads copies or subscribes to transitions.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/flowponder/ponderd/internal/domain"
	"github.com/flowponder/ponderd/internal/ledger"
)

// State is the authentication state machine position.
type State string

const (
	StateSignedOut      State = "signed_out"
	StateAuthenticating State = "authenticating"
	StateSignedIn       State = "signed_in"
	StateSigningOut     State = "signing_out"
)

// WalletProvider is the external wallet-approval flow. Approve blocks until
// the user approves or rejects; the returned authorizer co-signs future
// transactions without ever exposing key material to this process.
type WalletProvider interface {
	Approve(ctx context.Context) (domain.Address, ledger.Authorizer, error)
	Revoke(ctx context.Context) error
}

// BalanceQuerier is the slice of the ledger gateway that auth needs.
type BalanceQuerier interface {
	GetBalance(ctx context.Context, addr domain.Address) (domain.Amount, error)
}

// Event is one published session transition.
type Event struct {
	State   State          `json:"state"`
	Session domain.Session `json:"session"`
}

// Service implements the authentication state machine:
// SignedOut → Authenticating → SignedIn and SignedIn → SigningOut → SignedOut.
type Service struct {
	wallet   WalletProvider
	balances BalanceQuerier
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	session domain.Session
	signer  ledger.Authorizer

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New creates a Service in the SignedOut state.
func New(wallet WalletProvider, balances BalanceQuerier, logger *slog.Logger) *Service {
	return &Service{
		wallet:   wallet,
		balances: balances,
		logger:   logger.With(slog.String("component", "auth")),
		state:    StateSignedOut,
		subs:     make(map[int]chan Event),
	}
}

// SignIn runs the wallet-approval flow. On approval it stores the returned
// address and signing capability and flips to SignedIn. On rejection or
// timeout the machine returns to SignedOut and the caller gets an AuthError.
func (s *Service) SignIn(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	if s.state != StateSignedOut {
		state := s.state
		s.mu.Unlock()
		return domain.Session{}, domain.NewAuthError(domain.AuthUserRejected,
			errors.New("sign-in attempted while "+string(state)))
	}
	s.state = StateAuthenticating
	s.mu.Unlock()
	s.publish(StateAuthenticating, domain.Session{})

	addr, signer, err := s.wallet.Approve(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateSignedOut
		s.mu.Unlock()
		s.publish(StateSignedOut, domain.Session{})

		code := domain.AuthUserRejected
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			code = domain.AuthTimeout
		}
		return domain.Session{}, domain.NewAuthError(code, err)
	}

	s.mu.Lock()
	s.state = StateSignedIn
	s.signer = signer
	s.session = domain.Session{Address: addr, Authenticated: true}
	session := s.session
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "signed in", slog.String("address", string(addr)))
	s.publish(StateSignedIn, session)

	// Best-effort initial balance; a failure here leaves balance at zero
	// until the next explicit refresh.
	if _, err := s.RefreshBalance(ctx); err != nil {
		s.logger.WarnContext(ctx, "initial balance refresh failed",
			slog.String("error", err.Error()))
	}

	s.mu.Lock()
	session = s.session
	s.mu.Unlock()
	return session, nil
}

// SignOut clears the session unconditionally. The client must always be able
// to locally forget credentials, so a failing revoke call is logged and not
// propagated.
func (s *Service) SignOut(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateSignedOut {
		s.mu.Unlock()
		return
	}
	s.state = StateSigningOut
	session := s.session
	s.mu.Unlock()
	s.publish(StateSigningOut, session)

	if err := s.wallet.Revoke(ctx); err != nil {
		s.logger.WarnContext(ctx, "wallet revoke failed; clearing session anyway",
			slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.state = StateSignedOut
	s.signer = nil
	s.session = domain.Session{}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "signed out")
	s.publish(StateSignedOut, domain.Session{})
}

// RefreshBalance replaces Session.balance with the ledger's current value.
// On query failure the stored balance is left unchanged and the failure is
// returned to the caller.
func (s *Service) RefreshBalance(ctx context.Context) (domain.Amount, error) {
	s.mu.Lock()
	if s.state != StateSignedIn {
		s.mu.Unlock()
		return 0, domain.ErrNotAuthenticated
	}
	addr := s.session.Address
	s.mu.Unlock()

	balance, err := s.balances.GetBalance(ctx, addr)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	// A sign-out may have raced the query; never resurrect a cleared session.
	if s.state != StateSignedIn || s.session.Address != addr {
		s.mu.Unlock()
		return 0, domain.ErrNotAuthenticated
	}
	s.session.Balance = balance
	session := s.session
	s.mu.Unlock()

	s.publish(StateSignedIn, session)
	return balance, nil
}

// Session returns a copy of the current session.
func (s *Service) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// State returns the current state machine position.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authorizer returns the signing capability for the signed-in account, or
// nil when signed out. The ledger client rejects nil authorizers with
// AuthorizationMissing.
func (s *Service) Authorizer() ledger.Authorizer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signer
}

// Subscribe registers for session transitions. The returned cancel function
// must be called to release the subscription. Slow subscribers drop events
// rather than block the state machine; every event carries the full session
// so a dropped event is recovered by the next one.
func (s *Service) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 16)
	s.subs[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Service) publish(state State, session domain.Session) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- Event{State: state, Session: session}:
		default:
		}
	}
}
