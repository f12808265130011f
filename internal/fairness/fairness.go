// Package fairness implements the deterministic pseudo-random weight chain
// and the win/lose resolver for the flip engine.
//
// The next weight is derived from the previous persisted weight, the call
// timestamp and the caller identity. This is deliberately not secure against
// a party who controls block-production timing: timestamp-dependent inputs
// mean such a party can influence the outcome. That trade-off is part of the
// design and must not be "fixed" here.
//
// All weights use shopspring/decimal — never float64 for money or odds.
package fairness

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"golang.org/x/crypto/argon2"

	"github.com/omflip/flip-engine/internal/model"
)

// WeightScale is the number of fractional digits kept in a weight.
const WeightScale = 18

// Argon2 parameters for the default digest. Low time cost keeps the
// derivation cheap enough for per-call use.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	digestLen    = 32
)

// Hasher produces the 32-byte digest the weight chain is built on.
// It is an interface so tests can substitute a deterministic double.
type Hasher interface {
	Sum(password, salt string) [32]byte
}

// Argon2Hasher is the default Hasher, using the argon2id KDF.
type Argon2Hasher struct{}

func (Argon2Hasher) Sum(password, salt string) [32]byte {
	var out [32]byte
	key := argon2.IDKey([]byte(password), []byte(salt), argonTime, argonMemory, argonThreads, digestLen)
	copy(out[:], key)
	return out
}

// Source yields the next weight in the fairness chain. The orchestrator
// depends on this interface rather than on a concrete digest so tests can
// inject fixed weights.
type Source interface {
	Next(prev decimal.Decimal, timestampNanos int64, caller string) decimal.Decimal
}

// HashSource derives weights from a Hasher digest.
type HashSource struct {
	hasher Hasher
}

// NewHashSource creates a Source backed by the given Hasher. A nil hasher
// falls back to Argon2Hasher.
func NewHashSource(h Hasher) *HashSource {
	if h == nil {
		h = Argon2Hasher{}
	}
	return &HashSource{hasher: h}
}

// Next derives the weight that follows prev in the chain.
//
// The password is the decimal string of the previous weight concatenated
// with the timestamp in nanoseconds; the salt is the caller identity
// repeated twice, which guarantees a minimum salt length for any plausible
// address.
func (s *HashSource) Next(prev decimal.Decimal, timestampNanos int64, caller string) decimal.Decimal {
	password := prev.String() + strconv.FormatInt(timestampNanos, 10)
	salt := strings.Repeat(caller, 2)
	digest := s.hasher.Sum(password, salt)
	return Normalize(digest)
}

// digestDomain is 2^256, one past the largest value a 32-byte digest
// encodes. Dividing by the domain rather than the maximum keeps the
// normalized weight strictly below 1 for every possible digest.
var digestDomain = new(big.Int).Lsh(big.NewInt(1), 8*digestLen)

// weightUnit is 10^WeightScale, used for fixed-point floor division.
var weightUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(WeightScale), nil)

// Normalize maps a 32-byte digest onto a decimal weight in [0, 1).
//
// The digest is read little-endian as an unsigned integer and divided by
// the representable domain of that width, flooring at WeightScale
// fractional digits.
func Normalize(digest [32]byte) decimal.Decimal {
	be := make([]byte, len(digest))
	for i, b := range digest {
		be[len(digest)-1-i] = b
	}

	n := new(big.Int).SetBytes(be)
	n.Mul(n, weightUnit)
	n.Quo(n, digestDomain)

	return decimal.NewFromBigInt(n, -WeightScale)
}

var (
	half = decimal.New(5, -1)
	two  = decimal.NewFromInt(2)
)

// IsWinner resolves a wager: pure function of the chosen side, the drawn
// weight and the platform fee.
//
// With offset = fee/2, side head wins iff weight ≤ 0.5−offset and side tail
// wins iff weight ≥ 0.5+offset. The open band between the thresholds has
// width exactly fee and loses for both sides; it is the structural house
// edge. For fee = 0 the weight domain splits cleanly at 0.5.
func IsWinner(side model.Side, weight, fee decimal.Decimal) bool {
	offset := fee.Div(two)
	lower := half.Sub(offset)
	upper := half.Add(offset)

	switch side {
	case model.SideHead:
		return weight.LessThanOrEqual(lower)
	case model.SideTail:
		return weight.GreaterThanOrEqual(upper)
	default:
		return false
	}
}
