package signing

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/finalex-labs/orderbook-client/internal/limitorder/model"
)

// Signer produces a signature over an order's typed-data payload. Production
// deployments back this with a wallet or remote signer; refusal or failure
// surfaces as ErrSigningDeclined.
type Signer interface {
	Address() common.Address
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
}

// LocalSigner signs with an in-memory ECDSA key. Intended for the runner and
// tests; keys for real funds belong in external custody.
type LocalSigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

// NewLocalSigner wraps an existing private key.
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// GenerateLocalSigner creates a signer with a fresh random key.
func GenerateLocalSigner() (*LocalSigner, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewLocalSigner(key), nil
}

// Address returns the signer's account address.
func (s *LocalSigner) Address() common.Address { return s.addr }

// Key exposes the underlying key for transaction signing.
func (s *LocalSigner) Key() *ecdsa.PrivateKey { return s.key }

// SignTypedData signs the EIP-712 digest of typedData. The recovery id is
// shifted to 27/28 as contracts expect.
func (s *LocalSigner) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSigningDeclined, err)
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrSigningDeclined, err)
	}
	sig[64] += 27
	return sig, nil
}
