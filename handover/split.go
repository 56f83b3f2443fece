package handover

import (
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/xorname"
)

// ShouldSplit reports whether the decided new membership crosses
// split_threshold (default 2*elder_size) with members present in both
// child prefixes, the trigger for emitting two child SAPs instead of one.
func ShouldSplit(prefix xorname.Prefix, members []identity.PeerIdentity, splitThresholdMultiplier, elderSize int) bool {
	threshold := splitThresholdMultiplier * elderSize
	if len(members) < threshold {
		return false
	}
	var zero, one int
	bit := prefix.Len
	for _, m := range members {
		if m.Name.Bit(bit) == 0 {
			zero++
		} else {
			one++
		}
	}
	return zero > 0 && one > 0
}

// SplitPrefixes returns the two child prefixes of prefix, extended by one
// bit each, matching SectionTree's child-prefix convention.
func SplitPrefixes(prefix xorname.Prefix) (zeroChild, oneChild xorname.Prefix) {
	return prefix.PushBit(0), prefix.PushBit(1)
}
