// Package blscrypto wraps github.com/supranational/blst for the BLS12-381
// (min-pk) threshold signatures section authorities sign under: 48-byte
// compressed public keys in G1, 96-byte compressed signatures in G2,
// matching the wire sizes fixed by the external interface.
package blscrypto

import (
	"fmt"
	"math/big"

	blst "github.com/supranational/blst/bindings/go"
)

// domainSeparationTag binds signatures to this protocol so they cannot be
// replayed against an unrelated BLS12-381 application.
var domainSeparationTag = []byte("CORENET-SECTION-SIG-BLS12381G2-SHA256-")

// PublicKeySize and SignatureSize are the compressed wire sizes fixed by
// the external interface (section 6).
const (
	PublicKeySize = 48
	SignatureSize = 96
)

// PublicKey is a compressed G1 point.
type PublicKey struct {
	p blst.P1Affine
}

// Signature is a compressed G2 point.
type Signature struct {
	p blst.P2Affine
}

// SecretKeyShare is one party's share of a threshold secret key.
type SecretKeyShare struct {
	sk blst.SecretKey
}

// KeyGenFromSeed deterministically derives a SecretKeyShare from a seed of
// at least 32 bytes. Used by tests; the DKG builds its shares with
// SecretKeyShareFromScalar instead.
func KeyGenFromSeed(seed []byte) (SecretKeyShare, error) {
	if len(seed) < 32 {
		return SecretKeyShare{}, fmt.Errorf("blscrypto: seed must be at least 32 bytes, got %d", len(seed))
	}
	sk := blst.KeyGen(seed)
	if sk == nil {
		return SecretKeyShare{}, fmt.Errorf("blscrypto: key generation failed")
	}
	return SecretKeyShare{sk: *sk}, nil
}

// SecretKeyShareFromScalar loads a 32-byte big-endian scalar, already
// reduced modulo the BLS12-381 group order, as a SecretKeyShare. Used by
// the DKG's Pedersen-VSS polynomial evaluation, which performs its own
// modular arithmetic and only needs BLS key material at the boundary.
func SecretKeyShareFromScalar(scalar [32]byte) (SecretKeyShare, error) {
	sk := new(blst.SecretKey).Deserialize(scalar[:])
	if sk == nil {
		return SecretKeyShare{}, fmt.Errorf("blscrypto: scalar does not deserialize to a valid secret key")
	}
	return SecretKeyShare{sk: *sk}, nil
}

// PublicKey returns the public key corresponding to a secret share.
func (s SecretKeyShare) PublicKey() PublicKey {
	return PublicKey{p: *new(blst.P1Affine).From(&s.sk)}
}

// Sign produces a signature share over msg under s.
func (s SecretKeyShare) Sign(msg []byte) Signature {
	sig := new(blst.P2Affine).Sign(&s.sk, msg, domainSeparationTag)
	return Signature{p: *sig}
}

// Verify checks sig against msg under pk.
func (pk PublicKey) Verify(msg []byte, sig Signature) bool {
	return sig.p.Verify(true, &pk.p, true, msg, domainSeparationTag)
}

// Aggregate combines multiple signatures over (possibly distinct) messages
// into one, used both for threshold-signature combination (same message)
// and for batch verification setups.
func Aggregate(sigs []Signature) (Signature, error) {
	if len(sigs) == 0 {
		return Signature{}, fmt.Errorf("blscrypto: cannot aggregate zero signatures")
	}
	agg := new(blst.P2Aggregate)
	for i := range sigs {
		if !agg.Aggregate(&sigs[i].p, true) {
			return Signature{}, fmt.Errorf("blscrypto: invalid signature at index %d", i)
		}
	}
	return Signature{p: *agg.ToAffine()}, nil
}

// AggregatePublicKeys sums public keys, used to derive a section's combined
// authority key as the sum of its elders' commitment constants in DKG.
func AggregatePublicKeys(keys []PublicKey) (PublicKey, error) {
	if len(keys) == 0 {
		return PublicKey{}, fmt.Errorf("blscrypto: cannot aggregate zero public keys")
	}
	agg := new(blst.P1Aggregate)
	for i := range keys {
		if !agg.Aggregate(&keys[i].p, true) {
			return PublicKey{}, fmt.Errorf("blscrypto: invalid public key at index %d", i)
		}
	}
	return PublicKey{p: *agg.ToAffine()}, nil
}

// Bytes returns the 48-byte compressed encoding of pk.
func (pk PublicKey) Bytes() [PublicKeySize]byte {
	var out [PublicKeySize]byte
	copy(out[:], pk.p.Compress())
	return out
}

// PublicKeyFromBytes decompresses a 48-byte public key.
func PublicKeyFromBytes(b [PublicKeySize]byte) (PublicKey, error) {
	p := new(blst.P1Affine).Uncompress(b[:])
	if p == nil {
		return PublicKey{}, fmt.Errorf("blscrypto: malformed public key bytes")
	}
	if !p.KeyValidate() {
		return PublicKey{}, fmt.Errorf("blscrypto: public key fails subgroup/identity check")
	}
	return PublicKey{p: *p}, nil
}

// Bytes returns the 96-byte compressed encoding of sig.
func (sig Signature) Bytes() [SignatureSize]byte {
	var out [SignatureSize]byte
	copy(out[:], sig.p.Compress())
	return out
}

// SignatureFromBytes decompresses a 96-byte signature.
func SignatureFromBytes(b [SignatureSize]byte) (Signature, error) {
	p := new(blst.P2Affine).Uncompress(b[:])
	if p == nil {
		return Signature{}, fmt.Errorf("blscrypto: malformed signature bytes")
	}
	return Signature{p: *p}, nil
}

// Scale returns scalar*pk, used by the DKG's Feldman commitment check to
// raise a polynomial coefficient's commitment to x^i without ever learning
// the coefficient itself.
func (pk PublicKey) Scale(scalar *big.Int) PublicKey {
	if scalar.Sign() == 0 {
		return PublicKey{}
	}
	scaled := new(blst.P1).FromAffine(&pk.p).Mult(littleEndianScalar(scalar), scalar.BitLen())
	return PublicKey{p: *scaled.ToAffine()}
}

// Scale returns scalar*sig, the building block for reconstructing a full
// threshold signature from Lagrange-weighted shares without ever combining
// the underlying secret shares.
func (sig Signature) Scale(scalar *big.Int) Signature {
	if scalar.Sign() == 0 {
		return Signature{}
	}
	scaled := new(blst.P2).FromAffine(&sig.p).Mult(littleEndianScalar(scalar), scalar.BitLen())
	return Signature{p: *scaled.ToAffine()}
}

// littleEndianScalar returns scalar's magnitude as little-endian bytes, the
// byte order blst's point multiplication reads its scalar in.
func littleEndianScalar(scalar *big.Int) []byte {
	b := scalar.Bytes()
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func (pk PublicKey) Equal(other PublicKey) bool {
	b1, b2 := pk.Bytes(), other.Bytes()
	return b1 == b2
}

func (pk PublicKey) String() string {
	b := pk.Bytes()
	return fmt.Sprintf("%x", b[:8])
}
