package antientropy

import (
	"crypto/ed25519"
	"math/big"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/sectionsdag"
	"github.com/elderlink/corenet/sectiontree"
	"github.com/elderlink/corenet/xorname"
)

var testAddr = netip.MustParseAddrPort("127.0.0.1:9600")

func scalarBuf(t *testing.T, seed int64) [32]byte {
	t.Helper()
	order, ok := new(big.Int).SetString("52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)
	require.True(t, ok)
	var buf [32]byte
	b := new(big.Int).Mod(big.NewInt(seed), order).Bytes()
	copy(buf[32-len(b):], b)
	return buf
}

func shareFromSeed(t *testing.T, seed int64) blscrypto.SecretKeyShare {
	t.Helper()
	sk, err := blscrypto.SecretKeyShareFromScalar(scalarBuf(t, seed))
	require.NoError(t, err)
	return sk
}

func makeElders(t *testing.T, n int) []identity.PeerIdentity {
	t.Helper()
	var out []identity.PeerIdentity
	for i := 0; i < n; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		peer, err := identity.New(testAddr, pub)
		require.NoError(t, err)
		out = append(out, peer)
	}
	return out
}

func signedGenesis(t *testing.T, seed int64) (sectionauth.Signed[sectionauth.SectionAuthority], blscrypto.SecretKeyShare) {
	t.Helper()
	share := shareFromSeed(t, seed)
	key := share.PublicKey()
	sap, err := sectionauth.New(xorname.EmptyPrefix, key, makeElders(t, 3), 0)
	require.NoError(t, err)
	return sectionauth.Sign[sectionauth.SectionAuthority](sap, key, share), share
}

func TestHandleProbeRespondsWithNewerChain(t *testing.T) {
	genesis, genesisShare := signedGenesis(t, 111)
	tree, err := sectiontree.NewWithGenesis(genesis)
	require.NoError(t, err)

	childShare := shareFromSeed(t, 222)
	childKey := childShare.PublicKey()
	childKeyBytes := childKey.Bytes()
	signature := genesisShare.Sign(childKeyBytes[:])
	require.NoError(t, tree.Dag().Insert(genesis.Value.SectionKey, childKey, signature))

	childSAP, err := sectionauth.New(xorname.EmptyPrefix, childKey, makeElders(t, 3), 1)
	require.NoError(t, err)
	signedChild := sectionauth.Sign[sectionauth.SectionAuthority](childSAP, childKey, childShare)

	proof := mustPartial(t, tree.Dag(), genesis.Value.SectionKey, childKey)
	require.NoError(t, tree.Update(sectiontree.Update{ProofChain: proof, SignedSAP: signedChild}))

	h := NewHandler(tree)
	probe := NewProbe(genesis.Value.SectionKey, xorname.EmptyPrefix, genesis.Value.SectionKey)
	resp, ok := h.HandleProbe(probe, genesis.Value.SectionKey, xorname.EmptyPrefix)
	require.True(t, ok)
	assert.Equal(t, PayloadUpdate, resp.Kind)
	assert.True(t, resp.UpdatePayload.SignedSAP.Value.SectionKey.Equal(childKey))
}

func TestHandleProbeReturnsNothingWhenNoNewerKeyKnown(t *testing.T) {
	genesis, _ := signedGenesis(t, 333)
	tree, err := sectiontree.NewWithGenesis(genesis)
	require.NoError(t, err)

	h := NewHandler(tree)
	probe := NewProbe(genesis.Value.SectionKey, xorname.EmptyPrefix, genesis.Value.SectionKey)
	_, ok := h.HandleProbe(probe, genesis.Value.SectionKey, xorname.EmptyPrefix)
	assert.False(t, ok)
}

func mustPartial(t *testing.T, dag *sectionsdag.Dag, from, to blscrypto.PublicKey) *sectionsdag.Dag {
	t.Helper()
	p, err := dag.PartialDag(from, to)
	require.NoError(t, err)
	return p
}

func TestProberDedupesWithinInterval(t *testing.T) {
	p := NewProber(xorname.Name{}, 2*time.Second, 120*time.Second)
	target := xorname.Name{9}
	now := time.Now()
	assert.True(t, p.ShouldProbe(target, now))
	assert.False(t, p.ShouldProbe(target, now.Add(time.Second)))
	assert.True(t, p.ShouldProbe(target, now.Add(3*time.Second)))
}

func TestProberBackgroundSweepRespectsInterval(t *testing.T) {
	p := NewProber(xorname.Name{}, 2*time.Second, 120*time.Second)
	now := time.Now()
	assert.True(t, p.ShouldRunBackgroundProbe(now))
	assert.False(t, p.ShouldRunBackgroundProbe(now.Add(time.Second)))
	assert.True(t, p.ShouldRunBackgroundProbe(now.Add(121*time.Second)))
}

func TestPickBackgroundTargetReturnsOneOfCandidates(t *testing.T) {
	candidates := makeElders(t, 4)
	chosen, ok := PickBackgroundTarget(xorname.Name{}, candidates, nil)
	require.True(t, ok)
	found := false
	for _, c := range candidates {
		if c.Name == chosen.Name {
			found = true
		}
	}
	assert.True(t, found)
}

func TestResolveAddressedSectionRedirectsOnMismatch(t *testing.T) {
	genesis, _ := signedGenesis(t, 444)
	tree, err := sectiontree.NewWithGenesis(genesis)
	require.NoError(t, err)
	h := NewHandler(tree)

	wrongPrefix := xorname.NewPrefix(xorname.Name{0x80}, 1)
	var someName xorname.Name
	resp, redirected := h.ResolveAddressedSection(someName, wrongPrefix, genesis.Value.SectionKey, xorname.EmptyPrefix)
	require.True(t, redirected)
	assert.Equal(t, PayloadRedirect, resp.Kind)
	assert.True(t, resp.RedirectSAP.Value.SectionKey.Equal(genesis.Value.SectionKey))
}
