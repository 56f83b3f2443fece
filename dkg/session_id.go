package dkg

import (
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/xorname"
)

// DeriveSessionID derives a deterministic session identifier from the
// current section key, the membership generation the candidate elder set
// was decided under, and the candidate elder names, so that every elder
// starting a session for the same event arrives at the same sessionID
// without any further coordination round.
func DeriveSessionID(currentSectionKey blscrypto.PublicKey, generation uint64, candidateNames []xorname.Name) string {
	sorted := append([]xorname.Name(nil), candidateNames...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	h, err := blake2b.New256(nil)
	if err != nil {
		panic(fmt.Sprintf("dkg: blake2b-256 must always be constructible: %v", err))
	}
	keyBytes := currentSectionKey.Bytes()
	h.Write(keyBytes[:])

	var genBuf [8]byte
	binary.BigEndian.PutUint64(genBuf[:], generation)
	h.Write(genBuf[:])

	for _, n := range sorted {
		h.Write(n[:])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
