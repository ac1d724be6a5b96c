package crypto

import (
	"crypto/ecdsa"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/flowponder/ponderd/internal/domain"
)

// Signer holds a secp256k1 account key and co-signs transaction envelopes.
// It implements ledger.Authorizer.
type Signer struct {
	key  *ecdsa.PrivateKey
	addr domain.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	key, err := ethcrypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse account key: %w", err)
	}
	return &Signer{key: key, addr: deriveAddress(&key.PublicKey)}, nil
}

// Address returns the ledger account address derived from the public key.
func (s *Signer) Address() domain.Address {
	return s.addr
}

// SignEnvelope signs a keccak256 digest of the transaction envelope.
func (s *Signer) SignEnvelope(payload []byte) ([]byte, error) {
	sig, err := ethcrypto.Sign(ethcrypto.Keccak256(payload), s.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: sign envelope: %w", err)
	}
	return sig, nil
}

// deriveAddress maps a public key to the ledger's 8-byte account format:
// the trailing 8 bytes of the keccak256 hash of the uncompressed key.
func deriveAddress(pub *ecdsa.PublicKey) domain.Address {
	hash := ethcrypto.Keccak256(ethcrypto.FromECDSAPub(pub)[1:])
	return domain.Address(fmt.Sprintf("0x%x", hash[len(hash)-8:]))
}
