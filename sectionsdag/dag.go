// Package sectionsdag implements SectionsDag: the append-only DAG of every
// section BLS public key a node has ever learned, each signed by its
// parent, so any two peers can agree on the authenticity of a section
// authority at any point in time.
package sectionsdag

import (
	"sync"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/corerr"
)

// Vertex is one section key in the DAG, together with the signature its
// parent produced over it. The genesis vertex has a zero Signature and no
// parent.
type Vertex struct {
	Key       blscrypto.PublicKey
	Parent    blscrypto.PublicKey // zero value for the genesis vertex
	Signature blscrypto.Signature
	IsGenesis bool
}

// Dag is the append-only DAG of section keys. It accepts concurrent reads;
// mutations are serialized by the caller's single-writer discipline
// (NetworkKnowledge), but Dag also guards itself with a mutex so it is safe
// to share read-only snapshots across cmds.
type Dag struct {
	mu       sync.RWMutex
	vertices map[blscrypto.PublicKey]Vertex
	children map[blscrypto.PublicKey][]blscrypto.PublicKey
	genesis  blscrypto.PublicKey
	hasRoot  bool
}

// NewWithGenesis creates a Dag whose sole vertex is the fixed genesis key,
// per the "exactly one genesis vertex" invariant.
func NewWithGenesis(genesis blscrypto.PublicKey) *Dag {
	d := &Dag{
		vertices: make(map[blscrypto.PublicKey]Vertex),
		children: make(map[blscrypto.PublicKey][]blscrypto.PublicKey),
		genesis:  genesis,
		hasRoot:  true,
	}
	d.vertices[genesis] = Vertex{Key: genesis, IsGenesis: true}
	return d
}

// Genesis returns the network's fixed genesis key.
func (d *Dag) Genesis() blscrypto.PublicKey {
	return d.genesis
}

// Contains reports whether key is already known.
func (d *Dag) Contains(key blscrypto.PublicKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.vertices[key]
	return ok
}

// Len returns the number of known keys, used by the DAG monotonicity
// property test.
func (d *Dag) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.vertices)
}

// Insert adds childKey as a child of parentKey, succeeding only when
// parentKey is already known and signature verifies under parentKey as the
// threshold aggregate of the parent section's elders. Re-insertion of an
// identical vertex is a no-op; a self-parenting insert is rejected.
func (d *Dag) Insert(parentKey, childKey blscrypto.PublicKey, signature blscrypto.Signature) error {
	if parentKey.Equal(childKey) {
		return corerr.ErrSelfParent
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.vertices[childKey]; ok {
		if existing.Parent.Equal(parentKey) {
			return nil // idempotent re-insertion
		}
		return corerr.New(corerr.KindInvariantViolation, "sectionsdag: child key already has a different parent")
	}

	if _, ok := d.vertices[parentKey]; !ok {
		return corerr.ErrUnknownParent
	}

	childKeyBytes := childKey.Bytes()
	if !parentKey.Verify(childKeyBytes[:], signature) {
		return corerr.ErrBadSignature
	}

	d.vertices[childKey] = Vertex{Key: childKey, Parent: parentKey, Signature: signature}
	d.children[parentKey] = append(d.children[parentKey], childKey)
	return nil
}

// Get returns the stored Vertex for key.
func (d *Dag) Get(key blscrypto.PublicKey) (Vertex, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vertices[key]
	return v, ok
}

// Children returns the direct children of key (a split produces two).
func (d *Dag) Children(key blscrypto.PublicKey) []blscrypto.PublicKey {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]blscrypto.PublicKey, len(d.children[key]))
	copy(out, d.children[key])
	return out
}

// pathTo finds the unique path from `from` down to `to`, walking parent
// links backwards from `to`. Must hold at least a read lock.
func (d *Dag) pathTo(from, to blscrypto.PublicKey) ([]blscrypto.PublicKey, bool) {
	if from.Equal(to) {
		return []blscrypto.PublicKey{from}, true
	}
	v, ok := d.vertices[to]
	if !ok || v.IsGenesis {
		return nil, false
	}
	rest, ok := d.pathTo(from, v.Parent)
	if !ok {
		return nil, false
	}
	return append(rest, to), true
}

// PartialDag returns the minimal subgraph containing the unique path from
// fromKey to toKey.
func (d *Dag) PartialDag(fromKey, toKey blscrypto.PublicKey) (*Dag, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	path, ok := d.pathTo(fromKey, toKey)
	if !ok {
		return nil, corerr.ErrNoPath
	}

	out := &Dag{
		vertices: make(map[blscrypto.PublicKey]Vertex),
		children: make(map[blscrypto.PublicKey][]blscrypto.PublicKey),
		genesis:  d.genesis,
		hasRoot:  true,
	}
	rootVertex := d.vertices[path[0]]
	rootVertex.IsGenesis = true // treat fromKey as the root of this sub-DAG
	out.vertices[path[0]] = rootVertex
	for i := 1; i < len(path); i++ {
		v := d.vertices[path[i]]
		out.vertices[path[i]] = v
		out.children[path[i-1]] = append(out.children[path[i-1]], path[i])
	}
	return out, nil
}

// SingleBranchDagForKey returns one linear chain from genesis through k and
// onwards down one arbitrary child branch per fork, used to share minimal
// proofs when the exact terminal key the peer needs isn't yet known.
func (d *Dag) SingleBranchDagForKey(k blscrypto.PublicKey) (*Dag, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	path, ok := d.pathTo(d.genesis, k)
	if !ok {
		return nil, corerr.ErrNoPath
	}
	cur := k
	for {
		kids := d.children[cur]
		if len(kids) == 0 {
			break
		}
		cur = kids[0]
		path = append(path, cur)
	}

	out := &Dag{
		vertices: make(map[blscrypto.PublicKey]Vertex),
		children: make(map[blscrypto.PublicKey][]blscrypto.PublicKey),
		genesis:  d.genesis,
		hasRoot:  true,
	}
	out.vertices[path[0]] = d.vertices[path[0]]
	for i := 1; i < len(path); i++ {
		out.vertices[path[i]] = d.vertices[path[i]]
		out.children[path[i-1]] = append(out.children[path[i-1]], path[i])
	}
	return out, nil
}

// VerifyChain checks that for all adjacent pairs in keys, the child's
// stored signature verifies under the parent.
func (d *Dag) VerifyChain(keys []blscrypto.PublicKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for i := 1; i < len(keys); i++ {
		child, ok := d.vertices[keys[i]]
		if !ok || !child.Parent.Equal(keys[i-1]) {
			return false
		}
		childKeyBytes := keys[i].Bytes()
		if !keys[i-1].Verify(childKeyBytes[:], child.Signature) {
			return false
		}
	}
	return true
}

// Merge inserts every vertex of other into d, in an order that respects
// parent-before-child (breadth-first from other's root), used when
// applying an AE Update's proof_chain.
func (d *Dag) Merge(other *Dag) error {
	other.mu.RLock()
	root := other.genesis
	for k, v := range other.vertices {
		if v.IsGenesis {
			root = k // a partial/branch DAG's local root may differ from genesis
			break
		}
	}
	queue := []blscrypto.PublicKey{root}
	var order []blscrypto.PublicKey
	visited := map[blscrypto.PublicKey]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		order = append(order, cur)
		queue = append(queue, other.children[cur]...)
	}
	vertices := make(map[blscrypto.PublicKey]Vertex, len(order))
	for _, k := range order {
		vertices[k] = other.vertices[k]
	}
	other.mu.RUnlock()

	for _, k := range order {
		v := vertices[k]
		if v.IsGenesis {
			continue // the root of a partial/branch DAG may not be the true genesis
		}
		if err := d.Insert(v.Parent, v.Key, v.Signature); err != nil {
			return err
		}
	}
	return nil
}

// AllKeys returns every known key, for serialization and testing.
func (d *Dag) AllKeys() []blscrypto.PublicKey {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]blscrypto.PublicKey, 0, len(d.vertices))
	for k := range d.vertices {
		out = append(out, k)
	}
	return out
}
