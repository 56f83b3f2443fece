// Package membership implements the per-section BFT consensus over ordered
// join/leave/relocate decisions: the Idle -> Proposing -> Voting -> Decided
// state machine of one Elder, voting on proposed NodeState transitions.
package membership

import (
	"sort"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/nodestate"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/wire"
	"github.com/elderlink/corenet/xorname"
)

// Proposal is an unordered set of NodeState transitions voted on together
// for one generation.
type Proposal []nodestate.NodeState

// canonical returns proposal's deterministic byte encoding, sorted by peer
// name so two votes proposing the same set compare equal regardless of the
// order transitions arrived in.
func (p Proposal) canonical() []byte {
	sorted := append(Proposal(nil), p...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Peer.Name.Less(sorted[j].Peer.Name) })
	w := wire.NewWriter()
	w.WriteUint64(uint64(len(sorted)))
	for _, ns := range sorted {
		w.WriteBytes(ns.CanonicalBytes())
	}
	return w.Bytes()
}

// voteCanonicalBytes is what a voter's threshold-signature share signs:
// (generation, round, proposal).
func voteCanonicalBytes(generation, round uint64, proposal Proposal) []byte {
	w := wire.NewWriter()
	w.WriteUint64(generation)
	w.WriteUint64(round)
	w.WriteBytes(proposal.canonical())
	return w.Bytes()
}

// Vote is one elder's ballot: (generation, round, super_majority_set_so_far)
// plus the voter's threshold-signature share over those canonical bytes.
type Vote struct {
	Generation uint64
	Round      uint64
	Proposal   Proposal
	VoterIndex int // 1-based index into the elder set, for Lagrange reconstruction
	VoterName  xorname.Name
	ShareSig   blscrypto.Signature
}

// SignVote produces a Vote signed by share under the given voter identity.
func SignVote(generation, round uint64, proposal Proposal, voterIndex int, voterName xorname.Name, share blscrypto.SecretKeyShare) Vote {
	sig := share.Sign(voteCanonicalBytes(generation, round, proposal))
	return Vote{
		Generation: generation,
		Round:      round,
		Proposal:   proposal,
		VoterIndex: voterIndex,
		VoterName:  voterName,
		ShareSig:   sig,
	}
}

// Verify checks v's share signature under the per-elder verification key
// supplied by Dkg's Result round.
func (v Vote) Verify(shareKey blscrypto.PublicKey) bool {
	return shareKey.Verify(voteCanonicalBytes(v.Generation, v.Round, v.Proposal), v.ShareSig)
}

// Decided is the committed value of a generation: the agreed proposal set,
// made an Encodable so it can travel inside sectionauth.Signed.
type Decided struct {
	Generation uint64
	Proposal   Proposal
}

// CanonicalBytes implements sectionauth.Encodable.
func (d Decided) CanonicalBytes() []byte {
	w := wire.NewWriter()
	w.WriteUint64(d.Generation)
	w.WriteBytes(d.Proposal.canonical())
	return w.Bytes()
}

var _ sectionauth.Encodable = Decided{}
