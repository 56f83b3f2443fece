package identity

import (
	"crypto/ed25519"
	"net/netip"

	"github.com/elderlink/corenet/wire"
)

// EncodeTo appends p's canonical encoding to w: address, Ed25519 public
// key, derived name. Name is redundant with PublicKey but kept explicit
// so a decoder never needs to re-hash to validate prefix membership.
func (p PeerIdentity) EncodeTo(w *wire.Writer) {
	addrBytes, _ := p.Addr.MarshalBinary()
	w.WriteBytes(addrBytes)
	w.WriteBytes(p.PublicKey)
	w.WriteName(p.Name)
}

// DecodePeerIdentity reads a PeerIdentity written by EncodeTo.
func DecodePeerIdentity(r *wire.Reader) (PeerIdentity, error) {
	addrBytes, err := r.ReadBytes()
	if err != nil {
		return PeerIdentity{}, err
	}
	var addr netip.AddrPort
	if err := addr.UnmarshalBinary(addrBytes); err != nil {
		return PeerIdentity{}, err
	}
	pubBytes, err := r.ReadBytes()
	if err != nil {
		return PeerIdentity{}, err
	}
	name, err := r.ReadName()
	if err != nil {
		return PeerIdentity{}, err
	}
	return PeerIdentity{Addr: addr, PublicKey: ed25519.PublicKey(pubBytes), Name: name}, nil
}
