package dkg

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/faultsink"
	"github.com/elderlink/corenet/xorname"
)

func TestManagerRestartsOnFailureUntilRetryLimit(t *testing.T) {
	participants := testParticipants(t, 3)
	m, _, err := NewManager("round-1", participants, 1, xorname.Name{}, 2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Attempt())

	_, retried, err := m.NoteFailure()
	require.NoError(t, err)
	assert.True(t, retried)
	assert.Equal(t, 2, m.Attempt())

	_, retried, err = m.NoteFailure()
	require.NoError(t, err)
	assert.False(t, retried)
	assert.Equal(t, PhaseFailed, m.Current().Phase())
}

func TestManagerReportsPersistentFailureToSink(t *testing.T) {
	participants := testParticipants(t, 3)
	sink := &recordingSink{}
	m, _, err := NewManager("round-2", participants, 1, xorname.Name{}, 1, sink, nil)
	require.NoError(t, err)

	_, retried, err := m.NoteFailure()
	require.NoError(t, err)
	assert.False(t, retried)
	require.Len(t, sink.reports, 1)
}

func TestDeriveSessionIDIsOrderIndependentOverNames(t *testing.T) {
	a := xorname.Name{1}
	b := xorname.Name{2}
	key := participantKeyStub(t)
	id1 := DeriveSessionID(key, 7, []xorname.Name{a, b})
	id2 := DeriveSessionID(key, 7, []xorname.Name{b, a})
	assert.Equal(t, id1, id2)
}

func TestDeriveSessionIDDiffersOnGeneration(t *testing.T) {
	a := xorname.Name{1}
	key := participantKeyStub(t)
	id1 := DeriveSessionID(key, 1, []xorname.Name{a})
	id2 := DeriveSessionID(key, 2, []xorname.Name{a})
	assert.NotEqual(t, id1, id2)
}

type recordingSink struct {
	reports []string
}

func (s *recordingSink) Report(_ xorname.Name, _ faultsink.FaultClass, detail string) {
	s.reports = append(s.reports, detail)
}

func participantKeyStub(t *testing.T) blscrypto.PublicKey {
	t.Helper()
	share, err := blscrypto.SecretKeyShareFromScalar(scalarBytesForTest(big.NewInt(42)))
	require.NoError(t, err)
	return share.PublicKey()
}

func scalarBytesForTest(v *big.Int) [32]byte {
	order, _ := new(big.Int).SetString("52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)
	var out [32]byte
	b := new(big.Int).Mod(v, order).Bytes()
	copy(out[32-len(b):], b)
	return out
}
