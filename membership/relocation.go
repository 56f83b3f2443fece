package membership

import (
	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/nodestate"
	"github.com/elderlink/corenet/xorname"
)

// ApplyRelocations returns members with every node whose age is currently
// due for relocation (a power of two above nodestate.MinAdultAge; see
// nodestate.IsRelocationDue) transitioned to Relocated, with
// to_name derived deterministically from hash(section_key || peer_name ||
// generation), per spec.md 4.3. Members already terminal are left as-is.
func ApplyRelocations(sectionKey blscrypto.PublicKey, generation uint64, members []nodestate.NodeState) ([]nodestate.NodeState, error) {
	out := make([]nodestate.NodeState, len(members))
	keyBytes := sectionKey.Bytes()
	genBytes := generationBytes(generation)

	for i, m := range members {
		if m.IsTerminal() || !nodestate.IsRelocationDue(m.Age) {
			out[i] = m
			continue
		}
		toName := xorname.FromBytes(keyBytes[:], m.Peer.Name[:], genBytes[:])
		relocated, err := m.WithRelocated(toName)
		if err != nil {
			return nil, err
		}
		out[i] = relocated
	}
	return out, nil
}

func generationBytes(g uint64) [8]byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(g >> (56 - 8*i))
	}
	return b
}
