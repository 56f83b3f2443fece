package membership

import (
	"crypto/ed25519"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/nodestate"
)

func twoJoins(t *testing.T) (nodestate.NodeState, nodestate.NodeState) {
	t.Helper()
	mk := func(port string) nodestate.NodeState {
		edPub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		peer, err := identity.New(netip.MustParseAddrPort(port), edPub)
		require.NoError(t, err)
		return nodestate.NewJoined(peer)
	}
	return mk("127.0.0.1:9001"), mk("127.0.0.1:9002")
}

func TestProposalCanonicalIsOrderIndependent(t *testing.T) {
	a, b := twoJoins(t)
	p1 := Proposal{a, b}
	p2 := Proposal{b, a}
	assert.Equal(t, p1.canonical(), p2.canonical())
}

func TestProposalCanonicalDiffersOnDifferentContent(t *testing.T) {
	a, b := twoJoins(t)
	p1 := Proposal{a}
	p2 := Proposal{b}
	assert.NotEqual(t, p1.canonical(), p2.canonical())
}

func TestDecidedCanonicalBytesIsDeterministic(t *testing.T) {
	a, b := twoJoins(t)
	d1 := Decided{Generation: 3, Proposal: Proposal{a, b}}
	d2 := Decided{Generation: 3, Proposal: Proposal{b, a}}
	assert.Equal(t, d1.CanonicalBytes(), d2.CanonicalBytes())
}
