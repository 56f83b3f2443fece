package sectionauth

import "github.com/elderlink/corenet/blscrypto"

// Encodable is any value type SectionSigned can carry: it must produce a
// deterministic byte encoding to sign and verify over.
type Encodable interface {
	CanonicalBytes() []byte
}

// Signed is any value with an attached BLS signature proving agreement by
// a section, generic over the value type T.
type Signed[T Encodable] struct {
	Value      T
	SectionKey blscrypto.PublicKey
	Signature  blscrypto.Signature
}

// Sign produces a Signed[T] by signing value's canonical bytes with share,
// recording key as the claimed section authority key.
func Sign[T Encodable](value T, key blscrypto.PublicKey, share blscrypto.SecretKeyShare) Signed[T] {
	sig := share.Sign(value.CanonicalBytes())
	return Signed[T]{Value: value, SectionKey: key, Signature: sig}
}

// Verify checks the BLS signature of value's canonical bytes under
// SectionKey.
func (s Signed[T]) Verify() bool {
	return s.SectionKey.Verify(s.Value.CanonicalBytes(), s.Signature)
}
