package crypto

import (
	"context"

	"github.com/flowponder/ponderd/internal/domain"
	"github.com/flowponder/ponderd/internal/ledger"
)

// LocalWallet satisfies the auth wallet-provider contract with a locally
// held key. It stands in for an interactive wallet in headless deployments;
// approval is immediate and revocation releases the in-memory signer.
type LocalWallet struct {
	cfg KeyConfig
}

// NewLocalWallet creates a LocalWallet. The key is not loaded until Approve
// so a misconfigured key surfaces at sign-in, not at startup.
func NewLocalWallet(cfg KeyConfig) *LocalWallet {
	return &LocalWallet{cfg: cfg}
}

// Approve resolves the configured key and returns the account address with
// its signing capability.
func (w *LocalWallet) Approve(ctx context.Context) (domain.Address, ledger.Authorizer, error) {
	keyHex, err := LoadKey(w.cfg)
	if err != nil {
		return "", nil, err
	}
	signer, err := NewSigner(keyHex)
	if err != nil {
		return "", nil, err
	}
	return signer.Address(), signer, nil
}

// Revoke releases nothing for a local key; it exists to satisfy the wallet
// contract.
func (w *LocalWallet) Revoke(ctx context.Context) error {
	return nil
}
