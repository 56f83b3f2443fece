// Package sectionauth implements SectionAuthority (SAP), a section's
// current elder set, prefix, and BLS public key, and SectionSigned[T], a
// generic wrapper proving section agreement over any value.
package sectionauth

import (
	"fmt"
	"sort"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/xorname"
)

// MinElders and MaxElders bound |elders|, per the SAP invariant.
const (
	MinElders = 3
	MaxElders = 7
)

// SectionAuthority is a section's current elder set, prefix, and the BLS
// public key the section signs under.
type SectionAuthority struct {
	Prefix               xorname.Prefix
	SectionKey           blscrypto.PublicKey
	Elders               []identity.PeerIdentity // ordered, by name
	MembershipGeneration uint64
}

// New builds a SectionAuthority, validating the elder-count and
// name-matches-prefix invariants, and normalizing elder order.
func New(prefix xorname.Prefix, key blscrypto.PublicKey, elders []identity.PeerIdentity, generation uint64) (SectionAuthority, error) {
	if len(elders) < MinElders || len(elders) > MaxElders {
		return SectionAuthority{}, fmt.Errorf("sectionauth: elder count %d outside [%d, %d]", len(elders), MinElders, MaxElders)
	}
	ordered := append([]identity.PeerIdentity(nil), elders...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name.Less(ordered[j].Name) })
	for _, e := range ordered {
		if !prefix.Matches(e.Name) {
			return SectionAuthority{}, fmt.Errorf("sectionauth: elder %s does not match prefix %s", e.Name, prefix)
		}
	}
	return SectionAuthority{
		Prefix:               prefix,
		SectionKey:           key,
		Elders:               ordered,
		MembershipGeneration: generation,
	}, nil
}

// ElderSize returns |elders|, used by Handover's split threshold.
func (s SectionAuthority) ElderSize() int { return len(s.Elders) }

// ContainsElder reports whether name is one of s's elders.
func (s SectionAuthority) ContainsElder(name xorname.Name) bool {
	for _, e := range s.Elders {
		if e.Name == name {
			return true
		}
	}
	return false
}

// SucceedsGeneration reports whether s is a valid successor of prev within
// the same lineage: same prefix lineage, strictly increasing generation.
func (s SectionAuthority) SucceedsGeneration(prev SectionAuthority) bool {
	return s.MembershipGeneration > prev.MembershipGeneration
}

// CanonicalBytes returns a deterministic byte encoding of s suitable for
// signing and verification, independent of slice ordering beyond the
// already-sorted elder order enforced by New.
func (s SectionAuthority) CanonicalBytes() []byte {
	out := make([]byte, 0, 64+len(s.Elders)*64)
	out = append(out, byte(s.Prefix.Len))
	out = append(out, s.Prefix.Bits[:]...)
	keyBytes := s.SectionKey.Bytes()
	out = append(out, keyBytes[:]...)
	for i := 0; i < 8; i++ {
		out = append(out, byte(s.MembershipGeneration>>(56-8*i)))
	}
	for _, e := range s.Elders {
		out = append(out, e.Name[:]...)
	}
	return out
}
