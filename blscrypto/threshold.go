package blscrypto

import (
	"fmt"
	"math/big"
)

// lagrangeCoefficientAtZero returns the Lagrange basis coefficient for
// index i evaluated at x=0, over the set of participant indices, the
// weight applied to participant i's share when reconstructing f(0) (or,
// linearly, a BLS signature produced under a degree-t polynomial's secret)
// from any t+1 of the shares.
func lagrangeCoefficientAtZero(indices []int, i int) *big.Int {
	num := big.NewInt(1)
	den := big.NewInt(1)
	xi := big.NewInt(int64(i))
	for _, j := range indices {
		if j == i {
			continue
		}
		xj := big.NewInt(int64(j))
		num.Mul(num, new(big.Int).Neg(xj))
		num.Mod(num, groupOrder)

		diff := new(big.Int).Sub(xi, xj)
		diff.Mod(diff, groupOrder)
		den.Mul(den, diff)
		den.Mod(den, groupOrder)
	}
	denInv := new(big.Int).ModInverse(den, groupOrder)
	if denInv == nil {
		// Only possible with a repeated index, which callers must not pass.
		return big.NewInt(0)
	}
	coeff := new(big.Int).Mul(num, denInv)
	coeff.Mod(coeff, groupOrder)
	return coeff
}

// ReconstructSignature combines any t+1 signature shares produced under a
// common degree-t VSS polynomial into the full threshold signature over
// the message they all signed, via Lagrange interpolation at x=0. Because
// BLS signing is linear in the secret key, this never requires
// reconstructing the secret itself.
func ReconstructSignature(shares map[int]Signature) (Signature, error) {
	if len(shares) == 0 {
		return Signature{}, fmt.Errorf("blscrypto: cannot reconstruct from zero shares")
	}
	indices := make([]int, 0, len(shares))
	for i := range shares {
		if i == 0 {
			return Signature{}, fmt.Errorf("blscrypto: share index 0 is never valid")
		}
		indices = append(indices, i)
	}

	scaled := make([]Signature, 0, len(shares))
	for i, sig := range shares {
		coeff := lagrangeCoefficientAtZero(indices, i)
		scaled = append(scaled, sig.Scale(coeff))
	}
	return Aggregate(scaled)
}
