// Package handover implements the second consensus step that runs once DKG
// has produced a fresh section key for a candidate elder set: the outgoing
// elders vote, under total participation, on which candidate SAP (or pair
// of split SAPs) becomes the edge in SectionsDag from the parent key.
package handover

import (
	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/wire"
	"github.com/elderlink/corenet/xorname"
)

// Decision is the value outgoing elders vote over: either a single
// successor SAP, or two when the decided membership crosses split_threshold
// and must be partitioned along the next prefix bit.
type Decision struct {
	NewElders  sectionauth.SectionAuthority
	NewSection *sectionauth.SectionAuthority // nil unless this is a split
}

// IsSplit reports whether this decision produces two child sections.
func (d Decision) IsSplit() bool { return d.NewSection != nil }

func (d Decision) canonical() []byte {
	w := wire.NewWriter()
	w.WriteBytes(d.NewElders.CanonicalBytes())
	if d.NewSection != nil {
		w.WriteUint8(1)
		w.WriteBytes(d.NewSection.CanonicalBytes())
	} else {
		w.WriteUint8(0)
	}
	return w.Bytes()
}

func voteCanonicalBytes(generation uint64, round uint64, decision Decision) []byte {
	w := wire.NewWriter()
	w.WriteUint64(generation)
	w.WriteUint64(round)
	w.WriteBytes(decision.canonical())
	return w.Bytes()
}

// Vote is one outgoing elder's threshold-signature share over a Decision.
type Vote struct {
	Generation uint64
	Round      uint64
	Decision   Decision
	VoterIndex int
	VoterName  xorname.Name
	ShareSig   blscrypto.Signature
}

// SignVote builds and signs a Vote with the voting elder's permanent
// (pre-handover, outgoing-section) threshold key share.
func SignVote(generation, round uint64, decision Decision, voterIndex int, voterName xorname.Name, share blscrypto.SecretKeyShare) Vote {
	msg := voteCanonicalBytes(generation, round, decision)
	return Vote{
		Generation: generation,
		Round:      round,
		Decision:   decision,
		VoterIndex: voterIndex,
		VoterName:  voterName,
		ShareSig:   share.Sign(msg),
	}
}

// Verify checks v's share signature under the voter's published share key.
func (v Vote) Verify(shareKey blscrypto.PublicKey) bool {
	msg := voteCanonicalBytes(v.Generation, v.Round, v.Decision)
	return shareKey.Verify(msg, v.ShareSig)
}

// Decided is the handover's committed output, signed under the outgoing
// section's key: it becomes SectionsDag's edge from the outgoing key to the
// new child key(s).
type Decided struct {
	Generation uint64
	Decision   Decision
}

func (d Decided) CanonicalBytes() []byte {
	w := wire.NewWriter()
	w.WriteUint64(d.Generation)
	w.WriteBytes(d.Decision.canonical())
	return w.Bytes()
}

var _ sectionauth.Encodable = Decided{}
