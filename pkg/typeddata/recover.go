package typeddata

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidSignature = errors.New("typeddata: invalid signature")
)

// Signature is a raw secp256k1 signature over a digest.
type Signature struct {
	V uint8       `json:"v"`
	R common.Hash `json:"r"`
	S common.Hash `json:"s"`
}

// Bytes65 returns the r||s||v wire form with v normalized to {0,1}.
func (s Signature) Bytes65() []byte {
	out := make([]byte, 65)
	copy(out[:32], s.R.Bytes())
	copy(out[32:64], s.S.Bytes())
	v := s.V
	if v >= 27 {
		v -= 27
	}
	out[64] = v
	return out
}

// Recover returns the address whose key produced sig over digest. Contract
// signers have no recoverable key; callers fall back to a SignatureChecker
// for those.
func Recover(digest common.Hash, sig Signature) (common.Address, error) {
	raw := sig.Bytes65()
	if raw[64] > 1 {
		return common.Address{}, ErrInvalidSignature
	}
	if sig.R == (common.Hash{}) || sig.S == (common.Hash{}) {
		return common.Address{}, ErrInvalidSignature
	}
	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, ErrInvalidSignature
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignatureChecker verifies a digest on behalf of a signer that is itself a
// policy-controlled account (multisig or similar) rather than a raw key.
type SignatureChecker interface {
	IsValidSignature(ctx context.Context, signer common.Address, digest common.Hash, sig []byte) (bool, error)
}
