package sectiontree

import (
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/sectionsdag"
	"github.com/elderlink/corenet/xorname"
)

// elderDTO is the JSON wire shape of a PeerIdentity.
type elderDTO struct {
	Addr      string `json:"addr"`
	PublicKey []byte `json:"public_key"`
}

// vertexDTO is the JSON wire shape of one SectionsDag vertex.
type vertexDTO struct {
	Key       [blscrypto.PublicKeySize]byte `json:"key"`
	Parent    [blscrypto.PublicKeySize]byte `json:"parent"`
	Signature [blscrypto.SignatureSize]byte `json:"signature"`
	IsGenesis bool                          `json:"is_genesis"`
}

// entryDTO is the JSON wire shape of one Tree entry.
type entryDTO struct {
	PrefixBits [xorname.Len]byte             `json:"prefix_bits"`
	PrefixLen  int                           `json:"prefix_len"`
	SectionKey [blscrypto.PublicKeySize]byte `json:"section_key"`
	Generation uint64                        `json:"membership_generation"`
	Elders     []elderDTO                    `json:"elders"`
	Signature  [blscrypto.SignatureSize]byte `json:"signature"`
	SignedKey  [blscrypto.PublicKeySize]byte `json:"signed_under_key"`
}

// document is the top-level serialized form of a Tree: the `network_contacts`
// file named in the external interface.
type document struct {
	Genesis  [blscrypto.PublicKeySize]byte `json:"genesis"`
	Vertices []vertexDTO                   `json:"vertices"`
	Entries  []entryDTO                    `json:"entries"`
}

// Serialize encodes t as the canonical JSON document persisted to
// network_contacts.
func (t *Tree) Serialize() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	doc := document{Genesis: t.dag.Genesis().Bytes()}
	for _, k := range t.dag.AllKeys() {
		v, _ := t.dag.Get(k)
		doc.Vertices = append(doc.Vertices, vertexDTO{
			Key:       v.Key.Bytes(),
			Parent:    v.Parent.Bytes(),
			Signature: v.Signature.Bytes(),
			IsGenesis: v.IsGenesis,
		})
	}
	for _, e := range t.entries {
		var elders []elderDTO
		for _, el := range e.Value.Elders {
			elders = append(elders, elderDTO{
				Addr:      el.Addr.String(),
				PublicKey: append([]byte(nil), el.PublicKey...),
			})
		}
		doc.Entries = append(doc.Entries, entryDTO{
			PrefixBits: e.Value.Prefix.Bits,
			PrefixLen:  e.Value.Prefix.Len,
			SectionKey: e.Value.SectionKey.Bytes(),
			Generation: e.Value.MembershipGeneration,
			Elders:     elders,
			Signature:  e.Signature.Bytes(),
			SignedKey:  e.SectionKey.Bytes(),
		})
	}
	return json.Marshal(doc)
}

// Deserialize reconstructs a Tree from the bytes Serialize produced. The
// reconstructed Dag is rebuilt by replaying vertices through Insert in an
// order that respects parent-before-child, re-verifying every vertex
// signature, and every entry's signature is re-verified, so a document with
// a bad signature is rejected rather than silently trusted. Prefix overlap
// between entries is not re-checked.
func Deserialize(data []byte) (*Tree, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("sectiontree: decoding document: %w", err)
	}

	genesisKey, err := blscrypto.PublicKeyFromBytes(doc.Genesis)
	if err != nil {
		return nil, fmt.Errorf("sectiontree: decoding genesis key: %w", err)
	}

	byKey := make(map[blscrypto.PublicKey]vertexDTO, len(doc.Vertices))
	for _, v := range doc.Vertices {
		key, err := blscrypto.PublicKeyFromBytes(v.Key)
		if err != nil {
			return nil, fmt.Errorf("sectiontree: decoding vertex key: %w", err)
		}
		byKey[key] = v
	}

	dag := sectionsdag.NewWithGenesis(genesisKey)
	inserted := map[blscrypto.PublicKey]bool{genesisKey: true}
	for progress := true; progress; {
		progress = false
		for key, v := range byKey {
			if v.IsGenesis || inserted[key] {
				continue
			}
			parentKey, err := blscrypto.PublicKeyFromBytes(v.Parent)
			if err != nil {
				return nil, fmt.Errorf("sectiontree: decoding parent key: %w", err)
			}
			if !inserted[parentKey] {
				continue
			}
			sig, err := blscrypto.SignatureFromBytes(v.Signature)
			if err != nil {
				return nil, fmt.Errorf("sectiontree: decoding vertex signature: %w", err)
			}
			if err := dag.Insert(parentKey, key, sig); err != nil {
				return nil, fmt.Errorf("sectiontree: replaying vertex: %w", err)
			}
			inserted[key] = true
			progress = true
		}
	}

	t := &Tree{dag: dag, entries: map[string]sectionauth.Signed[sectionauth.SectionAuthority]{}}
	for _, e := range doc.Entries {
		sectionKey, err := blscrypto.PublicKeyFromBytes(e.SectionKey)
		if err != nil {
			return nil, fmt.Errorf("sectiontree: decoding entry section key: %w", err)
		}
		signedKey, err := blscrypto.PublicKeyFromBytes(e.SignedKey)
		if err != nil {
			return nil, fmt.Errorf("sectiontree: decoding entry signed-under key: %w", err)
		}
		sig, err := blscrypto.SignatureFromBytes(e.Signature)
		if err != nil {
			return nil, fmt.Errorf("sectiontree: decoding entry signature: %w", err)
		}

		var elders []identity.PeerIdentity
		for _, el := range e.Elders {
			addr, err := netip.ParseAddrPort(el.Addr)
			if err != nil {
				return nil, fmt.Errorf("sectiontree: decoding elder address: %w", err)
			}
			peer, err := identity.New(addr, el.PublicKey)
			if err != nil {
				return nil, fmt.Errorf("sectiontree: decoding elder identity: %w", err)
			}
			elders = append(elders, peer)
		}

		prefix := xorname.Prefix{Bits: e.PrefixBits, Len: e.PrefixLen}
		sap, err := sectionauth.New(prefix, sectionKey, elders, e.Generation)
		if err != nil {
			return nil, fmt.Errorf("sectiontree: rebuilding SAP: %w", err)
		}
		signed := sectionauth.Signed[sectionauth.SectionAuthority]{
			Value:      sap,
			SectionKey: signedKey,
			Signature:  sig,
		}
		if !signed.Verify() {
			return nil, fmt.Errorf("sectiontree: entry for prefix %s fails signature verification", prefix)
		}
		t.entries[prefix.String()] = signed
	}
	return t, nil
}
