package membership

import (
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/nodestate"
	"github.com/elderlink/corenet/wire"
)

func encodeNodeState(w *wire.Writer, n nodestate.NodeState) {
	n.Peer.EncodeTo(w)
	w.WriteUint8(n.Age)
	w.WriteUint8(uint8(n.State))
	w.WriteName(n.ToName)
}

func decodeNodeState(r *wire.Reader) (nodestate.NodeState, error) {
	peer, err := identity.DecodePeerIdentity(r)
	if err != nil {
		return nodestate.NodeState{}, err
	}
	age, err := r.ReadUint8()
	if err != nil {
		return nodestate.NodeState{}, err
	}
	state, err := r.ReadUint8()
	if err != nil {
		return nodestate.NodeState{}, err
	}
	toName, err := r.ReadName()
	if err != nil {
		return nodestate.NodeState{}, err
	}
	return nodestate.NodeState{Peer: peer, Age: age, State: nodestate.Lifecycle(state), ToName: toName}, nil
}

// EncodeVote serializes v as a KindMembershipVote frame body.
func EncodeVote(v Vote) []byte {
	w := wire.NewWriter()
	w.WriteUint64(v.Generation)
	w.WriteUint64(v.Round)
	w.WriteUint64(uint64(len(v.Proposal)))
	for _, ns := range v.Proposal {
		encodeNodeState(w, ns)
	}
	w.WriteUint64(uint64(v.VoterIndex))
	w.WriteName(v.VoterName)
	w.WriteSignature(v.ShareSig)
	return w.Bytes()
}

// DecodeVote parses a KindMembershipVote frame body written by EncodeVote.
func DecodeVote(body []byte) (Vote, error) {
	r := wire.NewReader(body)
	generation, err := r.ReadUint64()
	if err != nil {
		return Vote{}, err
	}
	round, err := r.ReadUint64()
	if err != nil {
		return Vote{}, err
	}
	n, err := r.ReadUint64()
	if err != nil {
		return Vote{}, err
	}
	proposal := make(Proposal, 0, n)
	for i := uint64(0); i < n; i++ {
		ns, err := decodeNodeState(r)
		if err != nil {
			return Vote{}, err
		}
		proposal = append(proposal, ns)
	}
	voterIndex, err := r.ReadUint64()
	if err != nil {
		return Vote{}, err
	}
	voterName, err := r.ReadName()
	if err != nil {
		return Vote{}, err
	}
	sig, err := r.ReadSignature()
	if err != nil {
		return Vote{}, err
	}
	return Vote{
		Generation: generation,
		Round:      round,
		Proposal:   proposal,
		VoterIndex: int(voterIndex),
		VoterName:  voterName,
		ShareSig:   sig,
	}, nil
}
