package sectionsdag

import (
	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/wire"
)

// orderedVertices returns every vertex of d in parent-before-child order,
// starting from its local root (the vertex marked IsGenesis, which for a
// partial/branch sub-DAG may differ from d.genesis), for deterministic
// wire encoding.
func (d *Dag) orderedVertices() []Vertex {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var root blscrypto.PublicKey
	for k, v := range d.vertices {
		if v.IsGenesis {
			root = k
			break
		}
	}
	queue := []blscrypto.PublicKey{root}
	visited := map[blscrypto.PublicKey]bool{}
	var out []Vertex
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out = append(out, d.vertices[cur])
		queue = append(queue, d.children[cur]...)
	}
	return out
}

// EncodeTo appends d's wire encoding to w: the full dag's genesis key
// (for reference) followed by every locally-known vertex in
// parent-before-child order (parent key, child key, signature, is-genesis
// flag, where is-genesis marks this sub-DAG's local root).
func (d *Dag) EncodeTo(w *wire.Writer) {
	w.WritePublicKey(d.genesis)
	vertices := d.orderedVertices()
	w.WriteUint64(uint64(len(vertices)))
	for _, v := range vertices {
		w.WritePublicKey(v.Key)
		w.WritePublicKey(v.Parent)
		w.WriteSignature(v.Signature)
		if v.IsGenesis {
			w.WriteUint8(1)
		} else {
			w.WriteUint8(0)
		}
	}
}

// DecodeDag reads a Dag written by EncodeTo, reinserting every non-genesis
// vertex through Insert so signatures are re-verified on decode rather
// than trusted blindly from the wire.
func DecodeDag(r *wire.Reader) (*Dag, error) {
	genesis, err := r.ReadPublicKey()
	if err != nil {
		return nil, err
	}
	n, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	d := &Dag{
		vertices: make(map[blscrypto.PublicKey]Vertex),
		children: make(map[blscrypto.PublicKey][]blscrypto.PublicKey),
		genesis:  genesis,
		hasRoot:  true,
	}
	for i := uint64(0); i < n; i++ {
		key, err := r.ReadPublicKey()
		if err != nil {
			return nil, err
		}
		parent, err := r.ReadPublicKey()
		if err != nil {
			return nil, err
		}
		sig, err := r.ReadSignature()
		if err != nil {
			return nil, err
		}
		isGenesis, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		if isGenesis == 1 {
			// The root of a partial/branch DAG may be a non-true-genesis key
			// treated as a local root (see PartialDag); register it directly
			// rather than through Insert, which would reject a self-rooted
			// vertex as having an unknown parent.
			d.mu.Lock()
			d.vertices[key] = Vertex{Key: key, IsGenesis: true}
			d.mu.Unlock()
			continue
		}
		if err := d.Insert(parent, key, sig); err != nil {
			return nil, err
		}
	}
	return d, nil
}
