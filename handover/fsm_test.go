package handover

import (
	"crypto/ed25519"
	"math/big"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/xorname"
)

type testOutgoing struct {
	elders      []identity.PeerIdentity
	shares      map[int]blscrypto.SecretKeyShare
	shareVerify map[int]blscrypto.PublicKey
	sectionKey  blscrypto.PublicKey
}

func buildTestOutgoing(t *testing.T, n int) testOutgoing {
	t.Helper()
	secret := big.NewInt(98765)
	degree := n - 3
	if degree < 1 {
		degree = 1
	}
	poly, err := blscrypto.NewRandomPolynomial(secret, degree)
	require.NoError(t, err)

	fullShare, err := blscrypto.SecretKeyShareFromScalar(scalarBytesFor(secret))
	require.NoError(t, err)

	var elders []identity.PeerIdentity
	shares := map[int]blscrypto.SecretKeyShare{}
	verify := map[int]blscrypto.PublicKey{}
	for i := 1; i <= n; i++ {
		edPub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		peer, err := identity.New(netip.MustParseAddrPort("127.0.0.1:9400"), edPub)
		require.NoError(t, err)
		elders = append(elders, peer)

		share, err := blscrypto.SecretKeyShareFromScalar(scalarBytesFor(poly.Eval(i)))
		require.NoError(t, err)
		shares[i] = share
		verify[i] = share.PublicKey()
	}
	return testOutgoing{elders: elders, shares: shares, shareVerify: verify, sectionKey: fullShare.PublicKey()}
}

func scalarBytesFor(v *big.Int) [32]byte {
	order, _ := new(big.Int).SetString("52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)
	var out [32]byte
	b := new(big.Int).Mod(v, order).Bytes()
	copy(out[32-len(b):], b)
	return out
}

func newDecision(t *testing.T, elders []identity.PeerIdentity) Decision {
	t.Helper()
	sap, err := sectionauth.New(xorname.EmptyPrefix, blscrypto.PublicKey{}, elders, 1)
	require.NoError(t, err)
	return Decision{NewElders: sap}
}

func TestHandoverCommitsOnlyWithTotalParticipation(t *testing.T) {
	out := buildTestOutgoing(t, 5)
	decision := newDecision(t, out.elders)

	var fsms []*FSM
	for i := 1; i <= 5; i++ {
		fsms = append(fsms, New(Config{
			OutgoingElders:     out.elders,
			ShareVerifyKeys:    out.shareVerify,
			OutgoingSectionKey: out.sectionKey,
			MyIndex:            i,
			MyShare:            out.shares[i],
			MyName:             out.elders[i-1].Name,
		}))
	}

	votes := make([]Vote, 5)
	for i, f := range fsms {
		v, err := f.Propose(1, decision)
		require.NoError(t, err)
		votes[i] = v
	}

	target := fsms[0]
	var decided *sectionauth.Signed[Decided]
	// Withhold the last vote: four of five outgoing elders is not enough.
	for i := 1; i < 4; i++ {
		res, err := target.ReceiveVote(votes[i])
		require.NoError(t, err)
		if res.Decided != nil {
			decided = res.Decided
		}
	}
	assert.Nil(t, decided, "handover must not commit without every outgoing elder's vote")

	res, err := target.ReceiveVote(votes[4])
	require.NoError(t, err)
	require.NotNil(t, res.Decided)
	assert.True(t, res.Decided.Verify())
}

func TestHandoverRejectsObsoleteGeneration(t *testing.T) {
	out := buildTestOutgoing(t, 3)
	decision := newDecision(t, out.elders)
	f := New(Config{
		OutgoingElders:     out.elders,
		ShareVerifyKeys:    out.shareVerify,
		OutgoingSectionKey: out.sectionKey,
		MyIndex:            1,
		MyShare:            out.shares[1],
		MyName:             out.elders[0].Name,
	})
	_, err := f.Propose(5, decision)
	require.NoError(t, err)
	obsolete := SignVote(3, 0, decision, 2, out.elders[1].Name, out.shares[2])
	_, err = f.ReceiveVote(obsolete)
	assert.Error(t, err)
}

func TestShouldSplitRequiresBothChildPrefixesPopulated(t *testing.T) {
	addr := netip.MustParseAddrPort("127.0.0.1:9500")
	var zeroName, oneName xorname.Name
	zeroName[0] = 0x00 // leading bit 0
	oneName[0] = 0x80  // leading bit 1

	zeroMember := identity.PeerIdentity{Addr: addr, Name: zeroName}
	oneMember := identity.PeerIdentity{Addr: addr, Name: oneName}

	onlyZero := []identity.PeerIdentity{zeroMember, zeroMember, zeroMember}
	assert.False(t, ShouldSplit(xorname.EmptyPrefix, onlyZero, 2, 1))

	both := []identity.PeerIdentity{zeroMember, zeroMember, oneMember}
	assert.True(t, ShouldSplit(xorname.EmptyPrefix, both, 2, 1))
}

func TestSplitPrefixesAreComplementaryChildren(t *testing.T) {
	zero, one := SplitPrefixes(xorname.EmptyPrefix)
	assert.Equal(t, 1, zero.Len)
	assert.Equal(t, 1, one.Len)
	assert.NotEqual(t, zero, one)
}
