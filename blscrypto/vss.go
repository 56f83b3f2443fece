package blscrypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// groupOrder is the order of the BLS12-381 scalar field, the modulus every
// Pedersen-VSS polynomial coefficient and evaluation is reduced under.
var groupOrder, _ = new(big.Int).SetString(
	"52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)

// Polynomial is a secret polynomial over the BLS12-381 scalar field, used
// to produce Shamir/Pedersen shares: f(x) = a0 + a1*x + ... + at*x^t, with
// a0 the shared secret.
type Polynomial struct {
	coeffs []*big.Int
}

// NewRandomPolynomial builds a degree-t polynomial with the given secret as
// its constant term and uniformly random higher coefficients, as required
// by the DKG's per-participant "Parts" round.
func NewRandomPolynomial(secret *big.Int, degree int) (*Polynomial, error) {
	if degree < 0 {
		return nil, fmt.Errorf("blscrypto: polynomial degree must be >= 0, got %d", degree)
	}
	coeffs := make([]*big.Int, degree+1)
	coeffs[0] = new(big.Int).Mod(secret, groupOrder)
	for i := 1; i <= degree; i++ {
		c, err := rand.Int(rand.Reader, groupOrder)
		if err != nil {
			return nil, fmt.Errorf("blscrypto: sampling coefficient %d: %w", i, err)
		}
		coeffs[i] = c
	}
	return &Polynomial{coeffs: coeffs}, nil
}

// Degree returns the polynomial's degree (threshold t, for a (t+1)-of-n scheme).
func (p *Polynomial) Degree() int { return len(p.coeffs) - 1 }

// Secret returns the polynomial's constant term, f(0).
func (p *Polynomial) Secret() *big.Int {
	return new(big.Int).Set(p.coeffs[0])
}

// Eval evaluates f(x) mod the group order, for x the 1-based index of a
// participant. x=0 is never used as a share (it would reveal the secret).
func (p *Polynomial) Eval(x int) *big.Int {
	if x == 0 {
		panic("blscrypto: evaluating a VSS polynomial at x=0 would reveal the secret")
	}
	bx := big.NewInt(int64(x))
	acc := new(big.Int)
	pow := big.NewInt(1)
	for _, c := range p.coeffs {
		term := new(big.Int).Mul(c, pow)
		acc.Add(acc, term)
		acc.Mod(acc, groupOrder)
		pow.Mul(pow, bx)
		pow.Mod(pow, groupOrder)
	}
	return acc
}

// CommitmentKeys returns the public keys committing to every coefficient of
// p, the "Parts" message's verifiable commitment: other participants check
// a received share against these without learning the secret.
func (p *Polynomial) CommitmentKeys() ([]PublicKey, error) {
	keys := make([]PublicKey, len(p.coeffs))
	for i, c := range p.coeffs {
		share, err := SecretKeyShareFromScalar(scalarBytes(c))
		if err != nil {
			return nil, fmt.Errorf("blscrypto: committing coefficient %d: %w", i, err)
		}
		keys[i] = share.PublicKey()
	}
	return keys, nil
}

// VerifyShare checks that share is consistent with the sender's published
// commitment keys, i.e. that PublicKey(share) == sum(commitment[i] * x^i)
// for the recipient's index x, without learning the polynomial itself.
func VerifyShare(commitments []PublicKey, x int, share *big.Int) (bool, error) {
	if x == 0 {
		return false, fmt.Errorf("blscrypto: share index must be >= 1")
	}
	got, err := SecretKeyShareFromScalar(scalarBytes(share))
	if err != nil {
		return false, err
	}
	gotPK := got.PublicKey()

	bx := big.NewInt(int64(x))
	pow := big.NewInt(1)
	var scaledTerms []PublicKey
	for _, commit := range commitments {
		scaledTerms = append(scaledTerms, commit.Scale(pow))
		pow.Mul(pow, bx)
		pow.Mod(pow, groupOrder)
	}
	acc, err := AggregatePublicKeys(scaledTerms)
	if err != nil {
		return false, err
	}
	return acc.Equal(gotPK), nil
}

// RandomFieldElement draws a uniformly random scalar in [0, groupOrder),
// used to seed a participant's DKG polynomial without exposing any BLS
// secret key material directly.
func RandomFieldElement() (*big.Int, error) {
	v, err := rand.Int(rand.Reader, groupOrder)
	if err != nil {
		return nil, fmt.Errorf("blscrypto: sampling random field element: %w", err)
	}
	return v, nil
}

func scalarBytes(v *big.Int) [32]byte {
	var out [32]byte
	b := new(big.Int).Mod(v, groupOrder).Bytes()
	copy(out[32-len(b):], b)
	return out
}
