package typeddata

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Domain binds every digest to one protocol deployment. Signatures produced
// against one domain never verify against another (different name, version,
// chain or verifying address).
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract common.Address
}

var domainTypeHash = crypto.Keccak256Hash(
	[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
)

var tokenTermsTypeHash = crypto.Keccak256Hash(
	[]byte("LoanTerms(uint32 durationSecs,uint64 deadline,uint64 interestRateBps,uint256 principal,address collateralAddress,uint256 collateralId,address payableCurrency,bytes32 affiliateCode,uint256 nonce,uint96 maxUses,uint8 side)"),
)

var itemsTermsTypeHash = crypto.Keccak256Hash(
	[]byte("LoanTermsWithItems(uint32 durationSecs,uint64 deadline,uint64 interestRateBps,uint256 principal,address collateralAddress,bytes32 itemsHash,address payableCurrency,bytes32 affiliateCode,uint256 nonce,uint96 maxUses,uint8 side)"),
)

var predicateTypeHash = crypto.Keccak256Hash(
	[]byte("Predicate(address verifier,bytes data)"),
)

// Separator returns the domain separator hash.
func (d Domain) Separator() common.Hash {
	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		encUint(d.ChainID),
		encAddr(d.VerifyingContract),
	)
}

// TermsInput carries the digest inputs shared by both message schemas. The
// token schema commits to CollateralID; the items schema replaces it with a
// hash over the predicate array.
type TermsInput struct {
	DurationSeconds   uint32
	Deadline          uint64
	InterestRateBps   uint64
	Principal         *big.Int
	CollateralAddress common.Address
	CollateralID      *big.Int
	PayableCurrency   common.Address
	AffiliateCode     common.Hash
}

// SigProperties scopes a signature to a replay nonce and an allowed number
// of uses.
type SigProperties struct {
	Nonce   uint64
	MaxUses uint64
}

// TokenDigest hashes the token-anchored schema: the signature authorizes one
// fixed collateral asset.
func TokenDigest(d Domain, t TermsInput, p SigProperties, side uint8) common.Hash {
	structHash := crypto.Keccak256Hash(
		tokenTermsTypeHash.Bytes(),
		encUint(uint64(t.DurationSeconds)),
		encUint(t.Deadline),
		encUint(t.InterestRateBps),
		encBig(t.Principal),
		encAddr(t.CollateralAddress),
		encBig(t.CollateralID),
		encAddr(t.PayableCurrency),
		t.AffiliateCode.Bytes(),
		encUint(p.Nonce),
		encUint(p.MaxUses),
		encUint(uint64(side)),
	)
	return finalDigest(d, structHash)
}

// ItemsDigest hashes the item-predicate-anchored schema: the signature
// authorizes any collateral satisfying the committed predicate rules rather
// than one fixed asset id.
func ItemsDigest(d Domain, t TermsInput, p SigProperties, side uint8, itemsHash common.Hash) common.Hash {
	structHash := crypto.Keccak256Hash(
		itemsTermsTypeHash.Bytes(),
		encUint(uint64(t.DurationSeconds)),
		encUint(t.Deadline),
		encUint(t.InterestRateBps),
		encBig(t.Principal),
		encAddr(t.CollateralAddress),
		itemsHash.Bytes(),
		encAddr(t.PayableCurrency),
		t.AffiliateCode.Bytes(),
		encUint(p.Nonce),
		encUint(p.MaxUses),
		encUint(uint64(side)),
	)
	return finalDigest(d, structHash)
}

// HashPredicate hashes one predicate element.
func HashPredicate(verifier common.Address, data []byte) common.Hash {
	return crypto.Keccak256Hash(
		predicateTypeHash.Bytes(),
		encAddr(verifier),
		crypto.Keccak256(data),
	)
}

// CombinePredicateHashes folds the per-element hashes into the single
// itemsHash the items schema commits to.
func CombinePredicateHashes(hashes []common.Hash) common.Hash {
	buf := make([]byte, 0, len(hashes)*common.HashLength)
	for _, h := range hashes {
		buf = append(buf, h.Bytes()...)
	}
	return crypto.Keccak256Hash(buf)
}

func finalDigest(d Domain, structHash common.Hash) common.Hash {
	sep := d.Separator()
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, sep.Bytes(), structHash.Bytes())
}

func encUint(v uint64) []byte {
	return encBig(new(big.Int).SetUint64(v))
}

func encBig(b *big.Int) []byte {
	out := make([]byte, 32)
	if b != nil && b.Sign() > 0 {
		b.FillBytes(out)
	}
	return out
}

func encAddr(a common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], a.Bytes())
	return out
}
