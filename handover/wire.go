package handover

import (
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/wire"
)

func encodeDecision(w *wire.Writer, d Decision) {
	d.NewElders.EncodeTo(w)
	if d.NewSection != nil {
		w.WriteUint8(1)
		d.NewSection.EncodeTo(w)
	} else {
		w.WriteUint8(0)
	}
}

func decodeDecision(r *wire.Reader) (Decision, error) {
	elders, err := sectionauth.DecodeSectionAuthority(r)
	if err != nil {
		return Decision{}, err
	}
	hasSplit, err := r.ReadUint8()
	if err != nil {
		return Decision{}, err
	}
	d := Decision{NewElders: elders}
	if hasSplit == 1 {
		section, err := sectionauth.DecodeSectionAuthority(r)
		if err != nil {
			return Decision{}, err
		}
		d.NewSection = &section
	}
	return d, nil
}

// EncodeVote serializes v as a KindHandoverVote frame body.
func EncodeVote(v Vote) []byte {
	w := wire.NewWriter()
	w.WriteUint64(v.Generation)
	w.WriteUint64(v.Round)
	encodeDecision(w, v.Decision)
	w.WriteUint64(uint64(v.VoterIndex))
	w.WriteName(v.VoterName)
	w.WriteSignature(v.ShareSig)
	return w.Bytes()
}

// DecodeVote parses a KindHandoverVote frame body written by EncodeVote.
func DecodeVote(body []byte) (Vote, error) {
	r := wire.NewReader(body)
	generation, err := r.ReadUint64()
	if err != nil {
		return Vote{}, err
	}
	round, err := r.ReadUint64()
	if err != nil {
		return Vote{}, err
	}
	decision, err := decodeDecision(r)
	if err != nil {
		return Vote{}, err
	}
	voterIndex, err := r.ReadUint64()
	if err != nil {
		return Vote{}, err
	}
	voterName, err := r.ReadName()
	if err != nil {
		return Vote{}, err
	}
	sig, err := r.ReadSignature()
	if err != nil {
		return Vote{}, err
	}
	return Vote{
		Generation: generation,
		Round:      round,
		Decision:   decision,
		VoterIndex: int(voterIndex),
		VoterName:  voterName,
		ShareSig:   sig,
	}, nil
}
