package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowponder/ponderd/internal/domain"
	"github.com/flowponder/ponderd/internal/ledger"
)

type fakeSigner struct{ addr domain.Address }

func (f fakeSigner) Address() domain.Address               { return f.addr }
func (f fakeSigner) SignEnvelope(p []byte) ([]byte, error) { return []byte("sig"), nil }

type fakeWallet struct {
	addr       domain.Address
	approveErr error
	revokeErr  error
	revoked    int
}

func (w *fakeWallet) Approve(ctx context.Context) (domain.Address, ledger.Authorizer, error) {
	if w.approveErr != nil {
		return "", nil, w.approveErr
	}
	return w.addr, fakeSigner{addr: w.addr}, nil
}

func (w *fakeWallet) Revoke(ctx context.Context) error {
	w.revoked++
	return w.revokeErr
}

type fakeBalances struct {
	balance domain.Amount
	err     error
	calls   int
}

func (b *fakeBalances) GetBalance(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	b.calls++
	if b.err != nil {
		return 0, b.err
	}
	return b.balance, nil
}

func newService(w *fakeWallet, b *fakeBalances) *Service {
	return New(w, b, slog.Default())
}

func TestSignInHappyPath(t *testing.T) {
	w := &fakeWallet{addr: "0xf8d6e0586b0a20c7"}
	b := &fakeBalances{balance: domain.MustAmount("5")}
	s := newService(w, b)

	session, err := s.SignIn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSignedIn, s.State())
	assert.True(t, session.Authenticated)
	assert.Equal(t, domain.Address("0xf8d6e0586b0a20c7"), session.Address)
	assert.Equal(t, domain.MustAmount("5"), session.Balance)
	assert.NotNil(t, s.Authorizer())
}

func TestSignInRejectedReturnsToSignedOut(t *testing.T) {
	w := &fakeWallet{approveErr: errors.New("user declined")}
	s := newService(w, &fakeBalances{})

	_, err := s.SignIn(context.Background())
	require.Error(t, err)

	var ae *domain.AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, domain.AuthUserRejected, ae.Code)
	assert.Equal(t, StateSignedOut, s.State())
	assert.Nil(t, s.Authorizer())
}

func TestSignInTimeoutMapsToAuthTimeout(t *testing.T) {
	w := &fakeWallet{approveErr: context.DeadlineExceeded}
	s := newService(w, &fakeBalances{})

	_, err := s.SignIn(context.Background())
	var ae *domain.AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, domain.AuthTimeout, ae.Code)
}

func TestSignOutClearsSessionEvenWhenRevokeFails(t *testing.T) {
	w := &fakeWallet{addr: "0xf8d6e0586b0a20c7", revokeErr: errors.New("network down")}
	s := newService(w, &fakeBalances{balance: 1})

	_, err := s.SignIn(context.Background())
	require.NoError(t, err)

	// SignOut never fails observably.
	s.SignOut(context.Background())

	assert.Equal(t, StateSignedOut, s.State())
	assert.Equal(t, domain.Session{}, s.Session())
	assert.Nil(t, s.Authorizer())
	assert.Equal(t, 1, w.revoked)
}

func TestRefreshBalanceFailureLeavesBalanceUnchanged(t *testing.T) {
	w := &fakeWallet{addr: "0xf8d6e0586b0a20c7"}
	b := &fakeBalances{balance: domain.MustAmount("5")}
	s := newService(w, b)

	_, err := s.SignIn(context.Background())
	require.NoError(t, err)

	b.err = domain.NewLedgerError(domain.LedgerQueryFailed, nil, "boom")
	_, err = s.RefreshBalance(context.Background())
	require.Error(t, err)

	// Last-confirmed balance survives the failed refresh.
	assert.Equal(t, domain.MustAmount("5"), s.Session().Balance)
}

func TestRefreshBalanceRequiresSignIn(t *testing.T) {
	s := newService(&fakeWallet{}, &fakeBalances{})
	_, err := s.RefreshBalance(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestSubscribeSeesTransitions(t *testing.T) {
	w := &fakeWallet{addr: "0xf8d6e0586b0a20c7"}
	s := newService(w, &fakeBalances{balance: 1})

	events, cancel := s.Subscribe()
	defer cancel()

	_, err := s.SignIn(context.Background())
	require.NoError(t, err)
	s.SignOut(context.Background())

	var states []State
	for len(events) > 0 {
		states = append(states, (<-events).State)
	}

	require.GreaterOrEqual(t, len(states), 4)
	assert.Equal(t, StateAuthenticating, states[0])
	assert.Equal(t, StateSignedOut, states[len(states)-1])
	assert.Contains(t, states, StateSignedIn)
	assert.Contains(t, states, StateSigningOut)
}

func TestSecondSignInWhileSignedInFails(t *testing.T) {
	w := &fakeWallet{addr: "0xf8d6e0586b0a20c7"}
	s := newService(w, &fakeBalances{})

	_, err := s.SignIn(context.Background())
	require.NoError(t, err)

	_, err = s.SignIn(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateSignedIn, s.State())
}
