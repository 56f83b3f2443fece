package identity

import (
	"crypto/ed25519"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elderlink/corenet/wire"
)

func TestPeerIdentityEncodeDecodeRoundTrips(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := netip.MustParseAddrPort("127.0.0.1:12000")
	peer, err := New(addr, pub)
	require.NoError(t, err)

	w := wire.NewWriter()
	peer.EncodeTo(w)
	decoded, err := DecodePeerIdentity(wire.NewReader(w.Bytes()))
	require.NoError(t, err)

	assert.True(t, peer.Equal(decoded))
	assert.Equal(t, peer.PublicKey, decoded.PublicKey)
}
