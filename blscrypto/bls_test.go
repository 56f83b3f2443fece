package blscrypto

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustShare(t *testing.T, seed byte) SecretKeyShare {
	t.Helper()
	s := make([]byte, 32)
	for i := range s {
		s[i] = seed
	}
	share, err := KeyGenFromSeed(s)
	require.NoError(t, err)
	return share
}

func TestSignVerifyRoundTrip(t *testing.T) {
	share := mustShare(t, 0x01)
	msg := []byte("section authority provider update")
	sig := share.Sign(msg)
	assert.True(t, share.PublicKey().Verify(msg, sig))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	share := mustShare(t, 0x02)
	other := mustShare(t, 0x03)
	msg := []byte("hello")
	sig := share.Sign(msg)
	assert.False(t, other.PublicKey().Verify(msg, sig))
}

func TestPublicKeyBytesRoundTrip(t *testing.T) {
	share := mustShare(t, 0x04)
	pk := share.PublicKey()
	b := pk.Bytes()
	assert.Len(t, b, PublicKeySize)

	decoded, err := PublicKeyFromBytes(b)
	require.NoError(t, err)
	assert.True(t, pk.Equal(decoded))
}

func TestAggregateSignatures(t *testing.T) {
	s1 := mustShare(t, 0x05)
	s2 := mustShare(t, 0x06)
	msg := []byte("same message for threshold combination")

	sig1 := s1.Sign(msg)
	sig2 := s2.Sign(msg)

	agg, err := Aggregate([]Signature{sig1, sig2})
	require.NoError(t, err)

	aggKey, err := AggregatePublicKeys([]PublicKey{s1.PublicKey(), s2.PublicKey()})
	require.NoError(t, err)

	assert.True(t, aggKey.Verify(msg, agg))
}

func TestVSSShareConsistentWithCommitment(t *testing.T) {
	secret := big.NewInt(424242)
	poly, err := NewRandomPolynomial(secret, 2)
	require.NoError(t, err)

	commits, err := poly.CommitmentKeys()
	require.NoError(t, err)

	for x := 1; x <= 4; x++ {
		share := poly.Eval(x)
		ok, err := VerifyShare(commits, x, share)
		require.NoError(t, err)
		assert.True(t, ok, "share for participant %d should verify", x)
	}
}

func TestVSSTamperedShareFailsVerification(t *testing.T) {
	secret := big.NewInt(99)
	poly, err := NewRandomPolynomial(secret, 1)
	require.NoError(t, err)
	commits, err := poly.CommitmentKeys()
	require.NoError(t, err)

	share := poly.Eval(1)
	tampered := new(big.Int).Add(share, big.NewInt(1))

	ok, err := VerifyShare(commits, 1, tampered)
	require.NoError(t, err)
	assert.False(t, ok)
}
