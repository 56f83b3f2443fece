// Package identity implements PeerIdentity: a node's network address and
// long-lived signing key, and the XOR name derived from it. It is an inert
// value type exclusively owned by a running node; every other component
// holds only read-only references, breaking the peer/section reference
// cycle per DESIGN NOTES.
package identity

import (
	"crypto/ed25519"
	"fmt"
	"net/netip"

	"github.com/elderlink/corenet/xorname"
)

// PeerIdentity is a node's network address, its long-lived Ed25519 signing
// key, and the XOR name derived from hashing that key.
type PeerIdentity struct {
	Addr      netip.AddrPort
	PublicKey ed25519.PublicKey
	Name      xorname.Name
}

// New derives a PeerIdentity's Name from pub and validates key length.
func New(addr netip.AddrPort, pub ed25519.PublicKey) (PeerIdentity, error) {
	if len(pub) != ed25519.PublicKeySize {
		return PeerIdentity{}, fmt.Errorf("identity: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	return PeerIdentity{
		Addr:      addr,
		PublicKey: append(ed25519.PublicKey(nil), pub...),
		Name:      xorname.FromPublicKey(pub),
	}, nil
}

// VerifySignature checks that sig is a valid Ed25519 signature of msg made
// by this peer's long-lived key (used for join requests, section 4.3).
func (p PeerIdentity) VerifySignature(msg, sig []byte) bool {
	return ed25519.Verify(p.PublicKey, msg, sig)
}

func (p PeerIdentity) String() string {
	return fmt.Sprintf("%s@%s", p.Name, p.Addr)
}

// Equal compares identities by name, address and public key; two peers with
// the same name but different addresses or signing keys are never equal.
func (p PeerIdentity) Equal(other PeerIdentity) bool {
	return p.Name == other.Name && p.Addr == other.Addr && p.PublicKey.Equal(other.PublicKey)
}
