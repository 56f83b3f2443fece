package dkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartEncodeDecodeRoundTrips(t *testing.T) {
	participants := testParticipants(t, 4)
	sess, part, err := New("session-wire-test", participants, 1)
	require.NoError(t, err)
	_ = sess

	decoded, err := DecodePart(EncodePart(part))
	require.NoError(t, err)

	assert.Equal(t, part.SenderIndex, decoded.SenderIndex)
	require.Len(t, decoded.Commitments, len(part.Commitments))
	for i := range part.Commitments {
		assert.True(t, part.Commitments[i].Equal(decoded.Commitments[i]))
	}
	require.Len(t, decoded.Shares, len(part.Shares))
	for idx, v := range part.Shares {
		got, ok := decoded.Shares[idx]
		require.True(t, ok)
		assert.Equal(t, 0, v.Cmp(got))
	}
}

func TestAckEncodeDecodeRoundTrips(t *testing.T) {
	a := Ack{SenderIndex: 2, AboutIndex: 3, Valid: true}
	decoded, err := DecodeAck(EncodeAck(a))
	require.NoError(t, err)
	assert.Equal(t, a, decoded)
}

func TestResultEncodeDecodeRoundTrips(t *testing.T) {
	participants := testParticipants(t, 3)
	_, part, err := New("session-wire-result", participants, 1)
	require.NoError(t, err)

	res := Result{SenderIndex: 1, PublicKeyShare: part.Commitments[0]}
	decoded, err := DecodeResult(EncodeResult(res))
	require.NoError(t, err)
	assert.Equal(t, res.SenderIndex, decoded.SenderIndex)
	assert.True(t, res.PublicKeyShare.Equal(decoded.PublicKeyShare))
}
