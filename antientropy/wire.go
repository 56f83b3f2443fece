package antientropy

import (
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/sectionsdag"
	"github.com/elderlink/corenet/sectiontree"
	"github.com/elderlink/corenet/wire"
)

func encodeSignedSAP(w *wire.Writer, s sectionauth.Signed[sectionauth.SectionAuthority]) {
	sectionauth.EncodeSigned(w, s, sectionauth.EncodeSectionAuthorityValue)
}

func decodeSignedSAP(r *wire.Reader) (sectionauth.Signed[sectionauth.SectionAuthority], error) {
	return sectionauth.DecodeSigned(r, sectionauth.DecodeSectionAuthorityValue)
}

func encodeUpdate(w *wire.Writer, u sectiontree.Update) {
	u.ProofChain.EncodeTo(w)
	encodeSignedSAP(w, u.SignedSAP)
}

func decodeUpdate(r *wire.Reader) (sectiontree.Update, error) {
	proof, err := sectionsdag.DecodeDag(r)
	if err != nil {
		return sectiontree.Update{}, err
	}
	signed, err := decodeSignedSAP(r)
	if err != nil {
		return sectiontree.Update{}, err
	}
	return sectiontree.Update{ProofChain: proof, SignedSAP: signed}, nil
}

// EncodeMessage serializes m as a KindAntiEntropy frame body.
func EncodeMessage(m Message) []byte {
	w := wire.NewWriter()
	w.WritePublicKey(m.SenderKnownSectionKey)
	w.WritePrefix(m.SenderPrefix)
	w.WriteUint8(uint8(m.Kind))
	switch m.Kind {
	case PayloadProbe:
		w.WritePublicKey(m.ProbeKnownKey)
	case PayloadUpdate:
		encodeUpdate(w, m.UpdatePayload)
	case PayloadRedirect:
		encodeSignedSAP(w, m.RedirectSAP)
	}
	return w.Bytes()
}

// DecodeMessage parses a KindAntiEntropy frame body written by EncodeMessage.
func DecodeMessage(body []byte) (Message, error) {
	r := wire.NewReader(body)
	senderKey, err := r.ReadPublicKey()
	if err != nil {
		return Message{}, err
	}
	senderPrefix, err := r.ReadPrefix()
	if err != nil {
		return Message{}, err
	}
	kindByte, err := r.ReadUint8()
	if err != nil {
		return Message{}, err
	}
	m := Message{SenderKnownSectionKey: senderKey, SenderPrefix: senderPrefix, Kind: PayloadKind(kindByte)}
	switch m.Kind {
	case PayloadProbe:
		knownKey, err := r.ReadPublicKey()
		if err != nil {
			return Message{}, err
		}
		m.ProbeKnownKey = knownKey
	case PayloadUpdate:
		update, err := decodeUpdate(r)
		if err != nil {
			return Message{}, err
		}
		m.UpdatePayload = update
	case PayloadRedirect:
		sap, err := decodeSignedSAP(r)
		if err != nil {
			return Message{}, err
		}
		m.RedirectSAP = sap
	}
	return m, nil
}
