package sectionauth

import (
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/wire"
)

// EncodeTo appends s's wire encoding to w.
func (s SectionAuthority) EncodeTo(w *wire.Writer) {
	w.WritePrefix(s.Prefix)
	w.WritePublicKey(s.SectionKey)
	w.WriteUint64(uint64(len(s.Elders)))
	for _, e := range s.Elders {
		e.EncodeTo(w)
	}
	w.WriteUint64(s.MembershipGeneration)
}

// DecodeSectionAuthority reads a SectionAuthority written by EncodeTo.
func DecodeSectionAuthority(r *wire.Reader) (SectionAuthority, error) {
	prefix, err := r.ReadPrefix()
	if err != nil {
		return SectionAuthority{}, err
	}
	key, err := r.ReadPublicKey()
	if err != nil {
		return SectionAuthority{}, err
	}
	n, err := r.ReadUint64()
	if err != nil {
		return SectionAuthority{}, err
	}
	elders := make([]identity.PeerIdentity, 0, n)
	for i := uint64(0); i < n; i++ {
		e, err := identity.DecodePeerIdentity(r)
		if err != nil {
			return SectionAuthority{}, err
		}
		elders = append(elders, e)
	}
	generation, err := r.ReadUint64()
	if err != nil {
		return SectionAuthority{}, err
	}
	return SectionAuthority{Prefix: prefix, SectionKey: key, Elders: elders, MembershipGeneration: generation}, nil
}

// EncodeSigned appends a Signed[T] to w, delegating T's own encoding to
// encodeValue so this stays generic over whatever Encodable a caller signs.
func EncodeSigned[T Encodable](w *wire.Writer, s Signed[T], encodeValue func(*wire.Writer, T)) {
	encodeValue(w, s.Value)
	w.WritePublicKey(s.SectionKey)
	w.WriteSignature(s.Signature)
}

// DecodeSigned reads a Signed[T] written by EncodeSigned.
func DecodeSigned[T Encodable](r *wire.Reader, decodeValue func(*wire.Reader) (T, error)) (Signed[T], error) {
	value, err := decodeValue(r)
	if err != nil {
		return Signed[T]{}, err
	}
	key, err := r.ReadPublicKey()
	if err != nil {
		return Signed[T]{}, err
	}
	sig, err := r.ReadSignature()
	if err != nil {
		return Signed[T]{}, err
	}
	return Signed[T]{Value: value, SectionKey: key, Signature: sig}, nil
}

// EncodeSectionAuthorityValue and DecodeSectionAuthorityValue adapt
// SectionAuthority's EncodeTo/DecodeSectionAuthority to the function shape
// EncodeSigned/DecodeSigned expect, for the common case of a
// Signed[SectionAuthority].
func EncodeSectionAuthorityValue(w *wire.Writer, v SectionAuthority) { v.EncodeTo(w) }

func DecodeSectionAuthorityValue(r *wire.Reader) (SectionAuthority, error) {
	return DecodeSectionAuthority(r)
}
