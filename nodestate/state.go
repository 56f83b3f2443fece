// Package nodestate implements NodeState: a node's membership lifecycle
// record, one of Joined, Left, or Relocated.
package nodestate

import (
	"fmt"

	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/xorname"
)

// MinAdultAge is the age a freshly joined node starts at, named here per
// the SPEC_FULL.md resolution of the data model's "age 4" rule.
const MinAdultAge = 4

// Lifecycle is the state a node currently occupies.
type Lifecycle int

const (
	Joined Lifecycle = iota
	Left
	Relocated
)

func (l Lifecycle) String() string {
	switch l {
	case Joined:
		return "Joined"
	case Left:
		return "Left"
	case Relocated:
		return "Relocated"
	default:
		return "Unknown"
	}
}

// NodeState is one node's membership lifecycle record at a given
// generation: { peer, age, state }, where state Relocated additionally
// carries the destination name.
type NodeState struct {
	Peer      identity.PeerIdentity
	Age       uint8
	State     Lifecycle
	ToName    xorname.Name // meaningful only when State == Relocated
}

// NewJoined builds the initial NodeState for a freshly joined peer.
func NewJoined(peer identity.PeerIdentity) NodeState {
	return NodeState{Peer: peer, Age: MinAdultAge, State: Joined}
}

// WithLeft returns a copy of n transitioned to Left.
func (n NodeState) WithLeft() (NodeState, error) {
	if n.State != Joined {
		return NodeState{}, fmt.Errorf("nodestate: cannot transition %s -> Left", n.State)
	}
	out := n
	out.State = Left
	return out, nil
}

// WithRelocated returns a copy of n transitioned to Relocated{toName}, with
// age incremented by one, per the relocation invariant in the data model.
func (n NodeState) WithRelocated(toName xorname.Name) (NodeState, error) {
	if n.State != Joined {
		return NodeState{}, fmt.Errorf("nodestate: cannot transition %s -> Relocated", n.State)
	}
	out := n
	out.State = Relocated
	out.ToName = toName
	out.Age++
	return out, nil
}

// IsTerminal reports whether n has reached Left or Relocated, after which
// it may never transition again at the same generation (data model
// invariant).
func (n NodeState) IsTerminal() bool {
	return n.State == Left || n.State == Relocated
}

// CanonicalBytes implements sectionauth.Encodable so a NodeState can be
// carried inside a SectionSigned[NodeState], e.g. for our_members entries.
func (n NodeState) CanonicalBytes() []byte {
	out := make([]byte, 0, 64)
	out = append(out, n.Peer.Name[:]...)
	out = append(out, n.Age, byte(n.State))
	out = append(out, n.ToName[:]...)
	return out
}

// IsRelocationDue reports whether age is a power of two strictly beyond
// MinAdultAge, the trigger Membership uses to mark a node Relocated in a
// decided generation. A freshly joined node sits at MinAdultAge itself
// (also a power of two) and must not be relocated on arrival; the trigger
// only fires once age has since advanced past it.
func IsRelocationDue(age uint8) bool {
	return age > MinAdultAge && age&(age-1) == 0
}
