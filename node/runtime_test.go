package node

import (
	"context"
	"crypto/ed25519"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elderlink/corenet/antientropy"
	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/coreconfig"
	"github.com/elderlink/corenet/corelog"
	"github.com/elderlink/corenet/corestore"
	"github.com/elderlink/corenet/dkg"
	"github.com/elderlink/corenet/faultsink"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/networkknowledge"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/sectiontree"
	"github.com/elderlink/corenet/wire"
	"github.com/elderlink/corenet/xorname"
	"github.com/spf13/afero"
)

var testAddr = netip.MustParseAddrPort("127.0.0.1:9700")

func testPeer(t *testing.T) identity.PeerIdentity {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	peer, err := identity.New(testAddr, pub)
	require.NoError(t, err)
	return peer
}

func testShare(t *testing.T, seed byte) blscrypto.SecretKeyShare {
	t.Helper()
	s := make([]byte, 32)
	for i := range s {
		s[i] = seed
	}
	share, err := blscrypto.KeyGenFromSeed(s)
	require.NoError(t, err)
	return share
}

func genesisKnowledge(t *testing.T) (*networkknowledge.Knowledge, blscrypto.SecretKeyShare) {
	t.Helper()
	share := testShare(t, 1)
	key := share.PublicKey()
	elders := []identity.PeerIdentity{testPeer(t), testPeer(t), testPeer(t)}
	sap, err := sectionauth.New(xorname.EmptyPrefix, key, elders, 0)
	require.NoError(t, err)
	signed := sectionauth.Sign[sectionauth.SectionAuthority](sap, key, share)
	tree, err := sectiontree.NewWithGenesis(signed)
	require.NoError(t, err)
	return networkknowledge.New(tree, xorname.EmptyPrefix), share
}

// recordingTransport captures every Frame handed to Send instead of
// actually delivering it anywhere, so Dispatch's routing can be asserted
// on without a real network.
type recordingTransport struct {
	mu   sync.Mutex
	sent []wire.Frame
}

func (rt *recordingTransport) Send(_ context.Context, _ identity.PeerIdentity, frame wire.Frame) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.sent = append(rt.sent, frame)
	return nil
}

func (rt *recordingTransport) Recv(_ context.Context) (wire.Frame, identity.PeerIdentity, error) {
	panic("not used in these tests")
}

func newTestRuntime(t *testing.T) (*Runtime, *recordingTransport) {
	t.Helper()
	knowledge, _ := genesisKnowledge(t)
	store, err := corestore.New(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	transport := &recordingTransport{}
	r := New(testPeer(t), knowledge, store, coreconfig.Default(), corelog.Nop(), faultsink.NoopSink{}, transport)
	return r, transport
}

func TestDispatchAEProbeWithNothingNewerSendsNoResponse(t *testing.T) {
	r, transport := newTestRuntime(t)
	ourKey, err := r.ourSectionKey()
	require.NoError(t, err)

	probe := antientropy.NewProbe(ourKey, xorname.EmptyPrefix, ourKey)
	frame := wire.NewFrame(wire.KindAntiEntropy, ourKey, antientropy.EncodeMessage(probe))

	err = r.Dispatch(context.Background(), frame, testPeer(t))
	require.NoError(t, err)
	assert.Empty(t, transport.sent) // nothing newer than what the prober already has
}

func TestDispatchAEAppliesUpdateAndRefreshesHandler(t *testing.T) {
	r, _ := newTestRuntime(t)
	genesisSAP, ok := r.Knowledge.OurSAP()
	require.True(t, ok)

	childShare := testShare(t, 2)
	childKey := childShare.PublicKey()
	childKeyBytes := childKey.Bytes()
	genesisShare := testShare(t, 1)
	sig := genesisShare.Sign(childKeyBytes[:])

	childElders := []identity.PeerIdentity{testPeer(t), testPeer(t), testPeer(t)}
	childSAP, err := sectionauth.New(xorname.EmptyPrefix, childKey, childElders, 1)
	require.NoError(t, err)
	signedChild := sectionauth.Sign[sectionauth.SectionAuthority](childSAP, childKey, childShare)

	tree := r.Knowledge.Snapshot()
	require.NoError(t, tree.Dag().Insert(genesisSAP.Value.SectionKey, childKey, sig))
	proof, err := tree.Dag().PartialDag(genesisSAP.Value.SectionKey, childKey)
	require.NoError(t, err)

	update := antientropy.NewUpdate(genesisSAP.Value.SectionKey, xorname.EmptyPrefix, sectiontree.Update{ProofChain: proof, SignedSAP: signedChild})
	frame := wire.NewFrame(wire.KindAntiEntropy, genesisSAP.Value.SectionKey, antientropy.EncodeMessage(update))

	require.NoError(t, r.Dispatch(context.Background(), frame, testPeer(t)))

	refreshed, ok := r.Knowledge.OurSAP()
	require.True(t, ok)
	assert.True(t, refreshed.Value.SectionKey.Equal(childKey))
}

func TestDispatchUnknownFrameKindErrors(t *testing.T) {
	r, _ := newTestRuntime(t)
	frame := wire.Frame{Kind: wire.Kind(200)}
	err := r.Dispatch(context.Background(), frame, testPeer(t))
	assert.Error(t, err)
}

func TestStartDkgBroadcastsPartToEveryOtherParticipant(t *testing.T) {
	r, transport := newTestRuntime(t)
	self := r.Self
	others := []identity.PeerIdentity{testPeer(t), testPeer(t)}
	participants := append([]identity.PeerIdentity{self}, others...)

	require.NoError(t, r.StartDkg(context.Background(), "session-a", participants, 1))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.sent, len(others))
	for _, f := range transport.sent {
		assert.Equal(t, wire.KindDkgMessage, f.Kind)
		msg, err := dkg.DecodeMessage(f.Body)
		require.NoError(t, err)
		assert.Equal(t, dkg.MessagePart, msg.Kind)
	}
}

func TestDispatchDkgMessageRoutesPartToSession(t *testing.T) {
	r, transport := newTestRuntime(t)
	self := r.Self
	peerB := testPeer(t)
	participants := []identity.PeerIdentity{self, peerB}

	require.NoError(t, r.StartDkg(context.Background(), "session-b", participants, 1))
	sessionID := r.dkg["session-b"].Current().SessionID()

	// Build peerB's own session to produce a real Part addressed to us.
	otherMgr, otherPart, err := dkg.NewManager("session-b", []identity.PeerIdentity{self, peerB}, 2, peerB.Name, 3, faultsink.NoopSink{}, corelog.Nop())
	require.NoError(t, err)
	require.Equal(t, sessionID, otherMgr.Current().SessionID())

	frame := wire.NewFrame(wire.KindDkgMessage, blscrypto.PublicKey{}, dkg.EncodeMessage(dkg.NewPartMessage(sessionID, otherPart)))
	require.NoError(t, r.Dispatch(context.Background(), frame, peerB))

	transport.mu.Lock()
	defer transport.mu.Unlock()
	found := false
	for _, f := range transport.sent {
		if f.Kind != wire.KindDkgMessage {
			continue
		}
		msg, err := dkg.DecodeMessage(f.Body)
		require.NoError(t, err)
		if msg.Kind == dkg.MessageAck {
			found = true
		}
	}
	assert.True(t, found, "expected an Ack to be broadcast after receiving a valid Part")
}

func TestDispatchDkgMessageFinalizesAndBroadcastsResultAfterAllAcks(t *testing.T) {
	ctx := context.Background()
	r, transport := newTestRuntime(t)
	self := r.Self
	peerB := testPeer(t)
	peerC := testPeer(t)
	participants := []identity.PeerIdentity{self, peerB, peerC}

	require.NoError(t, r.StartDkg(ctx, "session-finalize", participants, 1))
	sessionID := r.dkg["session-finalize"].Current().SessionID()

	transport.mu.Lock()
	require.Len(t, transport.sent, 2) // our round-one Part sent to B and C
	selfPartMsg, err := dkg.DecodeMessage(transport.sent[0].Body)
	transport.mu.Unlock()
	require.NoError(t, err)
	partSelf := selfPartMsg.PartPayload

	mgrB, partB, err := dkg.NewManager("session-finalize", participants, 2, peerB.Name, 3, faultsink.NoopSink{}, corelog.Nop())
	require.NoError(t, err)
	mgrC, partC, err := dkg.NewManager("session-finalize", participants, 3, peerC.Name, 3, faultsink.NoopSink{}, corelog.Nop())
	require.NoError(t, err)
	require.Equal(t, sessionID, mgrB.Current().SessionID())
	require.Equal(t, sessionID, mgrC.Current().SessionID())

	// Deliver B's and C's round-one Parts to us; each reply is an Ack this
	// node both self-records and broadcasts.
	require.NoError(t, r.Dispatch(ctx, wire.NewFrame(wire.KindDkgMessage, blscrypto.PublicKey{}, dkg.EncodeMessage(dkg.NewPartMessage(sessionID, partB))), peerB))
	require.NoError(t, r.Dispatch(ctx, wire.NewFrame(wire.KindDkgMessage, blscrypto.PublicKey{}, dkg.EncodeMessage(dkg.NewPartMessage(sessionID, partC))), peerC))

	// Drive B's and C's own sessions far enough to produce the Acks this
	// node is still missing: each about our Part and about each other's.
	ackB1, err := mgrB.Current().ReceivePart(partSelf)
	require.NoError(t, err)
	ackB3, err := mgrB.Current().ReceivePart(partC)
	require.NoError(t, err)
	ackC1, err := mgrC.Current().ReceivePart(partSelf)
	require.NoError(t, err)
	ackC2, err := mgrC.Current().ReceivePart(partB)
	require.NoError(t, err)

	for _, ack := range []struct {
		from identity.PeerIdentity
		a    dkg.Ack
	}{
		{peerB, ackB1},
		{peerC, ackC1},
		{peerB, ackB3},
		{peerC, ackC2},
	} {
		require.NoError(t, r.Dispatch(ctx, wire.NewFrame(wire.KindDkgMessage, blscrypto.PublicKey{}, dkg.EncodeMessage(dkg.NewAckMessage(sessionID, ack.a))), ack.from))
	}

	assert.Equal(t, dkg.PhaseAwaitingResults, r.dkg["session-finalize"].Current().Phase())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	foundResult := false
	for _, f := range transport.sent {
		if f.Kind != wire.KindDkgMessage {
			continue
		}
		msg, err := dkg.DecodeMessage(f.Body)
		require.NoError(t, err)
		if msg.Kind == dkg.MessageResult && msg.SessionID == sessionID {
			foundResult = true
		}
	}
	assert.True(t, foundResult, "expected a Result to be broadcast once every part was fully acked")
}
