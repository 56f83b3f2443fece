package dkg

import (
	"math/big"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/wire"
)

// EncodePart serializes p as a KindDkgMessage frame body.
func EncodePart(p Part) []byte {
	w := wire.NewWriter()
	w.WriteUint64(uint64(p.SenderIndex))
	w.WriteUint64(uint64(len(p.Commitments)))
	for _, c := range p.Commitments {
		w.WritePublicKey(c)
	}
	w.WriteUint64(uint64(len(p.Shares)))
	for idx, share := range p.Shares {
		w.WriteUint64(uint64(idx))
		w.WriteBytes(share.Bytes())
	}
	return w.Bytes()
}

// DecodePart parses a Part written by EncodePart.
func DecodePart(body []byte) (Part, error) {
	r := wire.NewReader(body)
	senderIndex, err := r.ReadUint64()
	if err != nil {
		return Part{}, err
	}
	nc, err := r.ReadUint64()
	if err != nil {
		return Part{}, err
	}
	commitments := make([]blscrypto.PublicKey, 0, nc)
	for i := uint64(0); i < nc; i++ {
		c, err := r.ReadPublicKey()
		if err != nil {
			return Part{}, err
		}
		commitments = append(commitments, c)
	}
	ns, err := r.ReadUint64()
	if err != nil {
		return Part{}, err
	}
	shares := make(map[int]*big.Int, ns)
	for i := uint64(0); i < ns; i++ {
		idx, err := r.ReadUint64()
		if err != nil {
			return Part{}, err
		}
		raw, err := r.ReadBytes()
		if err != nil {
			return Part{}, err
		}
		shares[int(idx)] = new(big.Int).SetBytes(raw)
	}
	return Part{SenderIndex: int(senderIndex), Commitments: commitments, Shares: shares}, nil
}

// EncodeAck serializes a as a KindDkgMessage frame body.
func EncodeAck(a Ack) []byte {
	w := wire.NewWriter()
	w.WriteUint64(uint64(a.SenderIndex))
	w.WriteUint64(uint64(a.AboutIndex))
	if a.Valid {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
	return w.Bytes()
}

// DecodeAck parses an Ack written by EncodeAck.
func DecodeAck(body []byte) (Ack, error) {
	r := wire.NewReader(body)
	senderIndex, err := r.ReadUint64()
	if err != nil {
		return Ack{}, err
	}
	aboutIndex, err := r.ReadUint64()
	if err != nil {
		return Ack{}, err
	}
	valid, err := r.ReadUint8()
	if err != nil {
		return Ack{}, err
	}
	return Ack{SenderIndex: int(senderIndex), AboutIndex: int(aboutIndex), Valid: valid == 1}, nil
}

// EncodeResult serializes res as a KindDkgMessage frame body.
func EncodeResult(res Result) []byte {
	w := wire.NewWriter()
	w.WriteUint64(uint64(res.SenderIndex))
	w.WritePublicKey(res.PublicKeyShare)
	return w.Bytes()
}

// DecodeResult parses a Result written by EncodeResult.
func DecodeResult(body []byte) (Result, error) {
	r := wire.NewReader(body)
	senderIndex, err := r.ReadUint64()
	if err != nil {
		return Result{}, err
	}
	pk, err := r.ReadPublicKey()
	if err != nil {
		return Result{}, err
	}
	return Result{SenderIndex: int(senderIndex), PublicKeyShare: pk}, nil
}
