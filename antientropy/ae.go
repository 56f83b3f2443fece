// Package antientropy implements the single AntiEntropyMsg kind nodes gossip
// SectionTree state through: Probe, Update, and Redirect payloads, plus the
// probe-issuing side's dedupe and periodic background sweep.
package antientropy

import (
	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/corerr"
	"github.com/elderlink/corenet/sectionsdag"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/sectiontree"
	"github.com/elderlink/corenet/xorname"
)

// PayloadKind distinguishes the three AntiEntropyMsg payload shapes.
type PayloadKind int

const (
	PayloadProbe PayloadKind = iota
	PayloadUpdate
	PayloadRedirect
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadProbe:
		return "Probe"
	case PayloadUpdate:
		return "Update"
	case PayloadRedirect:
		return "Redirect"
	default:
		return "Unknown"
	}
}

// Message is the single AntiEntropyMsg every AE exchange carries.
type Message struct {
	SenderKnownSectionKey blscrypto.PublicKey
	SenderPrefix          xorname.Prefix
	Kind                  PayloadKind

	// Probe
	ProbeKnownKey blscrypto.PublicKey

	// Update
	UpdatePayload sectiontree.Update

	// Redirect
	RedirectSAP sectionauth.Signed[sectionauth.SectionAuthority]
}

// NewProbe builds a Probe message: "my last known section key is
// knownKey; send me anything newer."
func NewProbe(senderKey blscrypto.PublicKey, senderPrefix xorname.Prefix, knownKey blscrypto.PublicKey) Message {
	return Message{SenderKnownSectionKey: senderKey, SenderPrefix: senderPrefix, Kind: PayloadProbe, ProbeKnownKey: knownKey}
}

// NewUpdate builds an Update message carrying a SectionTree update.
func NewUpdate(senderKey blscrypto.PublicKey, senderPrefix xorname.Prefix, update sectiontree.Update) Message {
	return Message{SenderKnownSectionKey: senderKey, SenderPrefix: senderPrefix, Kind: PayloadUpdate, UpdatePayload: update}
}

// NewRedirect builds a Redirect message pointing the sender at the correct SAP.
func NewRedirect(senderKey blscrypto.PublicKey, senderPrefix xorname.Prefix, sap sectionauth.Signed[sectionauth.SectionAuthority]) Message {
	return Message{SenderKnownSectionKey: senderKey, SenderPrefix: senderPrefix, Kind: PayloadRedirect, RedirectSAP: sap}
}

// Handler processes incoming AntiEntropyMsg traffic against a local Tree,
// producing the response (if any) the rules of spec 4.6 call for.
type Handler struct {
	tree *sectiontree.Tree
}

// NewHandler wraps tree for AE message handling.
func NewHandler(tree *sectiontree.Tree) *Handler {
	return &Handler{tree: tree}
}

// CheckEmbeddedKey implements the "every outgoing non-AE message embeds the
// sender's current section_key" rule: on mismatch against the local tree,
// it returns the AE message (Update or Probe) to send back.
func (h *Handler) CheckEmbeddedKey(claimedKey blscrypto.PublicKey, ourPrefix xorname.Prefix, ourKey blscrypto.PublicKey) (Message, bool) {
	if claimedKey.Equal(ourKey) {
		return Message{}, false
	}
	if h.tree.Dag().Contains(claimedKey) {
		// We know of claimedKey; offer the chain forward to our current key.
		partial, err := h.tree.Dag().PartialDag(claimedKey, ourKey)
		if err == nil {
			signed, lookupErr := h.tree.GetSignedByKey(ourKey)
			if lookupErr == nil {
				return NewUpdate(ourKey, ourPrefix, sectiontree.Update{ProofChain: partial, SignedSAP: signed}), true
			}
		}
	}
	return NewProbe(ourKey, ourPrefix, ourKey), true
}

// HandleProbe answers a Probe: if the local DAG knows of a child of the
// probe's known key, it responds with the minimal proof chain and the
// section's latest SAP; otherwise there is nothing newer to offer.
func (h *Handler) HandleProbe(m Message, ourKey blscrypto.PublicKey, ourPrefix xorname.Prefix) (Message, bool) {
	dag := h.tree.Dag()
	if !dag.Contains(m.ProbeKnownKey) {
		return Message{}, false
	}
	branch, err := dag.SingleBranchDagForKey(m.ProbeKnownKey)
	if err != nil {
		return Message{}, false
	}
	terminal := terminalKey(branch, m.ProbeKnownKey)
	if terminal.Equal(m.ProbeKnownKey) {
		return Message{}, false // nothing newer than what the prober already has
	}
	signed, err := h.tree.GetSignedByKey(terminal)
	if err != nil {
		return Message{}, false
	}
	return NewUpdate(ourKey, ourPrefix, sectiontree.Update{ProofChain: branch, SignedSAP: signed}), true
}

// terminalKey walks branch's single chain from start to its leaf.
func terminalKey(branch *sectionsdag.Dag, start blscrypto.PublicKey) blscrypto.PublicKey {
	cur := start
	for {
		kids := branch.Children(cur)
		if len(kids) == 0 {
			return cur
		}
		cur = kids[0]
	}
}

// HandleUpdate applies u's payload to the local tree.
func (h *Handler) HandleUpdate(m Message) error {
	if m.Kind != PayloadUpdate {
		return corerr.New(corerr.KindInvariantViolation, "antientropy: HandleUpdate called on non-Update message")
	}
	return h.tree.Update(m.UpdatePayload)
}

// ResolveAddressedSection checks whether name truly belongs under
// claimedPrefix in the local tree; if not, it returns a Redirect to the
// section that actually owns it.
func (h *Handler) ResolveAddressedSection(name xorname.Name, claimedPrefix xorname.Prefix, ourKey blscrypto.PublicKey, ourPrefix xorname.Prefix) (Message, bool) {
	actual, found := h.tree.SectionByName(name)
	if !found || actual.Value.Prefix.Equal(claimedPrefix) {
		return Message{}, false
	}
	return NewRedirect(ourKey, ourPrefix, actual), true
}
