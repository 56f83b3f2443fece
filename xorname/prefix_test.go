package xorname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyPrefixMatchesEverything(t *testing.T) {
	n := FromBytes([]byte("node-1"))
	assert.True(t, EmptyPrefix.Matches(n))
}

func TestPushBitAndMatches(t *testing.T) {
	n := Name{0b10000000}
	p0 := EmptyPrefix.PushBit(1)
	assert.True(t, p0.Matches(n))
	assert.Equal(t, "1", p0.String())

	p00 := p0.PushBit(0)
	assert.True(t, p00.Matches(n))
	assert.Equal(t, "10", p00.String())
}

func TestSiblingAndParent(t *testing.T) {
	p := NewPrefix(Name{0b10100000}, 3)
	require.Equal(t, "101", p.String())

	sib := p.Sibling()
	assert.Equal(t, "100", sib.String())

	parent := p.Parent()
	assert.Equal(t, "10", parent.String())
	assert.True(t, parent.IsPrefixOf(p))
	assert.True(t, parent.IsStrictPrefixOf(p))
	assert.False(t, p.IsStrictPrefixOf(p))
}

func TestIsPrefixOfAcrossByteBoundary(t *testing.T) {
	n := Name{0xFF, 0b11000000}
	p := NewPrefix(n, 10)
	assert.Equal(t, "1111111111", p.String())

	parent := p.Parent()
	assert.Equal(t, 9, parent.Len)
	assert.True(t, parent.IsPrefixOf(p))
}

func TestNotPrefixOfDivergingBit(t *testing.T) {
	a := NewPrefix(Name{0b10000000}, 1)
	b := NewPrefix(Name{0b01000000}, 1)
	assert.False(t, a.IsPrefixOf(b))
	assert.False(t, b.IsPrefixOf(a))
}
