// Package sectiontree implements SectionTree: an index by prefix over a
// SectionsDag, resolving "which section owns XOR name X under which key".
package sectiontree

import (
	"sync"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/corerr"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/sectionsdag"
	"github.com/elderlink/corenet/xorname"
)

// Update is the payload AntiEntropy applies to a SectionTree: a proof chain
// connecting the update to the existing DAG, plus the new signed SAP.
type Update struct {
	ProofChain *sectionsdag.Dag
	SignedSAP  sectionauth.Signed[sectionauth.SectionAuthority]
}

// Tree maps prefix -> most-recent Signed[SectionAuthority] known for that
// prefix, backed by a Dag for provenance. Update rejects overlapping
// prefixes, except that a new prefix may sit below a stored ancestor prefix;
// a direct parent's entry (the genesis SAP's included) is removed once both
// of its children are present.
type Tree struct {
	mu      sync.RWMutex
	dag     *sectionsdag.Dag
	entries map[string]sectionauth.Signed[sectionauth.SectionAuthority] // keyed by prefix.String()
}

// NewWithGenesis creates a Tree whose sole entry is the genesis SAP, over a
// fresh Dag rooted at its key.
func NewWithGenesis(genesisSAP sectionauth.Signed[sectionauth.SectionAuthority]) (*Tree, error) {
	if !genesisSAP.Verify() {
		return nil, corerr.ErrBadSignature
	}
	dag := sectionsdag.NewWithGenesis(genesisSAP.Value.SectionKey)
	t := &Tree{
		dag:     dag,
		entries: map[string]sectionauth.Signed[sectionauth.SectionAuthority]{},
	}
	t.entries[genesisSAP.Value.Prefix.String()] = genesisSAP
	return t, nil
}

// Dag returns the tree's backing Dag. Callers may read it concurrently;
// mutation only ever happens through Update.
func (t *Tree) Dag() *sectionsdag.Dag {
	return t.dag
}

// Update applies a SectionTreeUpdate. It is accepted when the signed SAP
// verifies, every vertex of proof_chain merges into the tree's DAG under an
// already-known parent, the new SAP's section_key is in the DAG after that
// merge, and the new prefix overlaps no stored prefix other than a strict
// ancestor of it (a parent prefix is removed when both of its children now
// appear).
func (t *Tree) Update(u Update) error {
	if !u.SignedSAP.Verify() {
		return corerr.ErrBadSignature
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.dag.Merge(u.ProofChain); err != nil {
		return err
	}
	if !t.dag.Contains(u.SignedSAP.Value.SectionKey) {
		return corerr.New(corerr.KindInvariantViolation, "sectiontree: SAP's section_key is not the proof chain's terminal vertex")
	}

	newPrefix := u.SignedSAP.Value.Prefix
	for existingPrefixStr, existing := range t.entries {
		existingPrefix := existing.Value.Prefix
		if existingPrefix.Equal(newPrefix) {
			continue // replacing the same prefix with a newer SAP is fine
		}
		if existingPrefix.IsPrefixOf(newPrefix) || newPrefix.IsPrefixOf(existingPrefix) {
			// A split: the existing (shorter) prefix's single entry may be
			// replaced by two children. Anything else is a genuine overlap.
			if !t.isSplitOf(existingPrefix, existingPrefixStr, newPrefix) {
				return corerr.ErrOverlappingPrefix
			}
		}
	}

	t.entries[newPrefix.String()] = u.SignedSAP
	t.reconcileSplits(newPrefix)
	return nil
}

// isSplitOf reports whether applying newPrefix is a legitimate split of
// existingPrefix: existingPrefix is a strict ancestor of newPrefix. Whether
// newPrefix's sibling is present is not checked.
func (t *Tree) isSplitOf(existingPrefix xorname.Prefix, existingKey string, newPrefix xorname.Prefix) bool {
	return existingPrefix.IsStrictPrefixOf(newPrefix)
}

// reconcileSplits removes a parent prefix entry once both of its two direct
// children are present, per the split-handling rule.
func (t *Tree) reconcileSplits(newPrefix xorname.Prefix) {
	if newPrefix.Len == 0 {
		return
	}
	parent := newPrefix.Parent()
	sibling := newPrefix.Sibling()
	_, haveSibling := t.entries[sibling.String()]
	_, haveParent := t.entries[parent.String()]
	if haveSibling && haveParent {
		delete(t.entries, parent.String())
	}
}

// SectionByName performs the deterministic longest-matching-prefix lookup.
// Ties are impossible under the non-overlap invariant.
func (t *Tree) SectionByName(name xorname.Name) (sectionauth.Signed[sectionauth.SectionAuthority], bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var best sectionauth.Signed[sectionauth.SectionAuthority]
	bestLen := -1
	found := false
	for _, e := range t.entries {
		if e.Value.Prefix.Matches(name) && e.Value.Prefix.Len > bestLen {
			best = e
			bestLen = e.Value.Prefix.Len
			found = true
		}
	}
	return best, found
}

// GetSignedByKey returns the SAP whose terminal key equals key.
func (t *Tree) GetSignedByKey(key blscrypto.PublicKey) (sectionauth.Signed[sectionauth.SectionAuthority], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.Value.SectionKey.Equal(key) {
			return e, nil
		}
	}
	return sectionauth.Signed[sectionauth.SectionAuthority]{}, corerr.ErrNotFound
}

// Prefixes returns every currently stored prefix, for the prefix
// non-overlap property test and for serialization.
func (t *Tree) Prefixes() []xorname.Prefix {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]xorname.Prefix, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.Value.Prefix)
	}
	return out
}

// Entries returns every stored Signed[SectionAuthority], for serialization.
func (t *Tree) Entries() []sectionauth.Signed[sectionauth.SectionAuthority] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]sectionauth.Signed[sectionauth.SectionAuthority], 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out
}

// Clone returns a deep-enough copy of t for cheap sharing with readers; the
// backing Dag is shared (it is itself safe for concurrent read) but the
// prefix index is copied so further Updates on the original don't race
// readers of the clone.
func (t *Tree) Clone() *Tree {
	t.mu.RLock()
	defer t.mu.RUnlock()
	clone := &Tree{
		dag:     t.dag,
		entries: make(map[string]sectionauth.Signed[sectionauth.SectionAuthority], len(t.entries)),
	}
	for k, v := range t.entries {
		clone.entries[k] = v
	}
	return clone
}
