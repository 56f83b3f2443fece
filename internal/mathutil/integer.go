// Copyright 2017 The go-ethereum Authors
// (original work)
// Copyright 2024 The Erigon Authors
// (modifications)
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package mathutil holds small integer helpers shared by the consensus
// threshold and generation-counter arithmetic used across the core.
package mathutil

import "math/bits"

// SafeAdd returns x+y and whether the addition overflowed.
func SafeAdd(x, y uint64) (uint64, bool) {
	sum, carryOut := bits.Add64(x, y, 0)
	return sum, carryOut != 0
}

// CeilDiv returns ceil(x/y), or 0 when y is 0.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}

// SuperMajority returns the smallest count that is at least 2/3 of n,
// i.e. ceil(2n/3). Used for BFT super-majority thresholds.
func SuperMajority(n int) int {
	return CeilDiv(2*n, 3)
}

// ByzantineTolerance returns floor((n-1)/3), the maximum number of
// Byzantine participants a consensus of size n can tolerate.
func ByzantineTolerance(n int) int {
	if n == 0 {
		return 0
	}
	return (n - 1) / 3
}

// DkgThreshold returns ceil(2*n/3) - 1, the VSS reconstruction threshold
// used by the DKG session for an elder set of size n (0 for n = 0).
func DkgThreshold(n int) int {
	t := SuperMajority(n) - 1
	if t < 0 {
		t = 0
	}
	return t
}
