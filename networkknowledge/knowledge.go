// Package networkknowledge implements NetworkKnowledge: a node's composite
// view of its own section's authority, its members, and the global
// SectionTree. It is single-writer within a node; readers obtain cheap
// clones of the inner SectionTree.
package networkknowledge

import (
	"sync"

	"github.com/elderlink/corenet/corerr"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/sectiontree"
	"github.com/elderlink/corenet/xorname"
)

// memberKey identifies a member entry independent of its current lifecycle
// state, so updates replace rather than duplicate a peer's record.
type memberKey = xorname.Name

// Knowledge is a node's aggregate view: section_tree, our_prefix, and
// our_members. It is owned by exactly one logical writer; call Snapshot to
// obtain a read-only, cheaply cloned view for concurrent readers.
type Knowledge struct {
	mu         sync.RWMutex
	tree       *sectiontree.Tree
	ourPrefix  xorname.Prefix
	ourMembers map[memberKey]sectionauth.Signed[memberCanonical]
}

// memberCanonical is a type alias boundary so Knowledge doesn't need to
// import nodestate directly, avoiding a dependency cycle risk as the
// package graph grows; callers pass any sectionauth.Encodable node-state
// value through the exported API below.
type memberCanonical = sectionauth.Encodable

// New creates a NetworkKnowledge from a cached SectionTree and the prefix
// this node's own section currently owns. our_members starts empty and is
// populated by ApplyMembers as AE/Membership deliver signed member sets.
func New(tree *sectiontree.Tree, ourPrefix xorname.Prefix) *Knowledge {
	return &Knowledge{
		tree:       tree,
		ourPrefix:  ourPrefix,
		ourMembers: map[memberKey]sectionauth.Signed[memberCanonical]{},
	}
}

// OurPrefix returns the prefix of the section this node currently belongs
// to.
func (k *Knowledge) OurPrefix() xorname.Prefix {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.ourPrefix
}

// SetOurPrefix updates which section this node considers itself part of,
// e.g. after a split decides which child prefix this node's name falls
// under.
func (k *Knowledge) SetOurPrefix(p xorname.Prefix) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ourPrefix = p
}

// Snapshot returns a cheap clone of the inner SectionTree for read-only use
// by any number of concurrent cmds, per the single-writer ownership model.
func (k *Knowledge) Snapshot() *sectiontree.Tree {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.tree.Clone()
}

// UpdateTree applies a SectionTree update through the sole owning writer.
func (k *Knowledge) UpdateTree(u sectiontree.Update) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tree.Update(u)
}

// UpsertMember records or replaces the signed state for a member identified
// by name, enforcing that a terminal (Left/Relocated) member can never be
// overwritten at the same generation boundary; callers pass a
// generation-aware IsNewer predicate-free approach by simply always
// accepting the newest decided generation's output, since Membership only
// ever calls this once per decided generation per member.
func (k *Knowledge) UpsertMember(name xorname.Name, state sectionauth.Signed[memberCanonical]) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if existing, ok := k.ourMembers[name]; ok {
		if isTerminal(existing.Value) && !sameValue(existing.Value, state.Value) {
			return corerr.New(corerr.KindInvariantViolation, "networkknowledge: member already reached a terminal state")
		}
	}
	k.ourMembers[name] = state
	return nil
}

// isTerminal and sameValue are best-effort structural checks over the
// generic Encodable payload; NodeState supplies the real semantics via its
// own CanonicalBytes, so two equal encodings are treated as the same value.
func isTerminal(v memberCanonical) bool {
	// A terminal NodeState's canonical encoding carries Left(1) or
	// Relocated(2) in byte 33, right after the 32-byte name and the age byte; see
	// nodestate.NodeState.CanonicalBytes. Non-NodeState values are never
	// considered terminal.
	b := v.CanonicalBytes()
	if len(b) < 34 {
		return false
	}
	stateByte := b[33]
	return stateByte == 1 || stateByte == 2
}

func sameValue(a, b memberCanonical) bool {
	ab, bb := a.CanonicalBytes(), b.CanonicalBytes()
	if len(ab) != len(bb) {
		return false
	}
	for i := range ab {
		if ab[i] != bb[i] {
			return false
		}
	}
	return true
}

// Members returns every currently known member's signed state.
func (k *Knowledge) Members() map[xorname.Name]sectionauth.Signed[memberCanonical] {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make(map[xorname.Name]sectionauth.Signed[memberCanonical], len(k.ourMembers))
	for name, v := range k.ourMembers {
		out[name] = v
	}
	return out
}

// OurSAP returns the SAP currently on record for our own prefix.
func (k *Knowledge) OurSAP() (sectionauth.Signed[sectionauth.SectionAuthority], bool) {
	k.mu.RLock()
	prefix := k.ourPrefix
	tree := k.tree
	k.mu.RUnlock()
	return tree.SectionByName(prefixRepresentativeName(prefix))
}

// prefixRepresentativeName returns a name guaranteed to match prefix (all
// unspecified trailing bits zero), used only to drive SectionByName's
// longest-match lookup for our own prefix.
func prefixRepresentativeName(p xorname.Prefix) xorname.Name {
	var n xorname.Name
	copy(n[:], p.Bits[:])
	return n
}

// SelfConsistent reports whether this node's knowledge is internally
// consistent: the genesis key is present, and our own section's key is
// present in the DAG. Per section 7, a node exits only when this is false
// -- a bug rather than a runtime condition.
func (k *Knowledge) SelfConsistent() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	sap, ok := k.tree.SectionByName(prefixRepresentativeName(k.ourPrefix))
	if !ok {
		return false
	}
	return k.tree.Dag().Contains(k.tree.Dag().Genesis()) && k.tree.Dag().Contains(sap.Value.SectionKey)
}
