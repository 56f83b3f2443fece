package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/xorname"
)

func TestWriterReaderRoundTripsEveryField(t *testing.T) {
	key := testKey(t, 5)
	sig := blscrypto.Signature{}

	w := NewWriter()
	w.WriteUint8(7)
	w.WriteUint64(123456789)
	w.WriteBytes([]byte("payload"))
	name := xorname.FromBytes([]byte("peer"))
	w.WriteName(name)
	prefix := xorname.NewPrefix(name, 5)
	w.WritePrefix(prefix)
	w.WritePublicKey(key)
	w.WriteSignature(sig)

	r := NewReader(w.Bytes())
	gotU8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), gotU8)

	gotU64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), gotU64)

	gotBytes, err := r.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), gotBytes)

	gotName, err := r.ReadName()
	require.NoError(t, err)
	assert.Equal(t, name, gotName)

	gotPrefix, err := r.ReadPrefix()
	require.NoError(t, err)
	assert.True(t, gotPrefix.Equal(prefix))

	gotKey, err := r.ReadPublicKey()
	require.NoError(t, err)
	assert.True(t, gotKey.Equal(key))

	gotSig, err := r.ReadSignature()
	require.NoError(t, err)
	assert.Equal(t, sig.Bytes(), gotSig.Bytes())

	assert.Equal(t, 0, r.Remaining())
}

func TestReaderErrorsOnTruncatedInput(t *testing.T) {
	w := NewWriter()
	w.WriteUint64(42)
	r := NewReader(w.Bytes()[:4])
	_, err := r.ReadUint64()
	assert.Error(t, err)
}
