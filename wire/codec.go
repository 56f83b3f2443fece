package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/xorname"
)

// Writer accumulates a canonical binary encoding: length-prefixed fields,
// little-endian integers. Every Kind-specific message body (AntiEntropy,
// DkgMessage, MembershipVote, HandoverVote) is built from one of these.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

// WriteUint64 appends 8 little-endian bytes.
func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteBytes appends a 4-byte little-endian length prefix followed by data.
func (w *Writer) WriteBytes(data []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, data...)
}

// WriteName appends a fixed 32-byte xorname.Name.
func (w *Writer) WriteName(n xorname.Name) { w.buf = append(w.buf, n[:]...) }

// WritePrefix appends a prefix as its bit length followed by the 32 packed
// bytes.
func (w *Writer) WritePrefix(p xorname.Prefix) {
	w.WriteUint64(uint64(p.Len))
	w.buf = append(w.buf, p.Bits[:]...)
}

// WritePublicKey appends the fixed 48-byte compressed BLS public key.
func (w *Writer) WritePublicKey(pk blscrypto.PublicKey) {
	b := pk.Bytes()
	w.buf = append(w.buf, b[:]...)
}

// WriteSignature appends the fixed 96-byte compressed BLS signature.
func (w *Writer) WriteSignature(sig blscrypto.Signature) {
	b := sig.Bytes()
	w.buf = append(w.buf, b[:]...)
}

// Reader consumes a canonical binary encoding produced by Writer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("wire: codec: need %d bytes at offset %d, have %d", n, r.pos, len(r.buf)-r.pos)
	}
	return nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadUint64 reads 8 little-endian bytes.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// ReadBytes reads a 4-byte length prefix followed by that many bytes.
func (r *Reader) ReadBytes() ([]byte, error) {
	if err := r.need(4); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	out := append([]byte(nil), r.buf[r.pos:r.pos+int(n)]...)
	r.pos += int(n)
	return out, nil
}

// ReadName reads a fixed 32-byte xorname.Name.
func (r *Reader) ReadName() (xorname.Name, error) {
	if err := r.need(xorname.Len); err != nil {
		return xorname.Name{}, err
	}
	var n xorname.Name
	copy(n[:], r.buf[r.pos:r.pos+xorname.Len])
	r.pos += xorname.Len
	return n, nil
}

// ReadPrefix reads a prefix written by WritePrefix.
func (r *Reader) ReadPrefix() (xorname.Prefix, error) {
	length, err := r.ReadUint64()
	if err != nil {
		return xorname.Prefix{}, err
	}
	if err := r.need(xorname.Len); err != nil {
		return xorname.Prefix{}, err
	}
	var p xorname.Prefix
	p.Len = int(length)
	copy(p.Bits[:], r.buf[r.pos:r.pos+xorname.Len])
	r.pos += xorname.Len
	return p, nil
}

// ReadPublicKey reads a fixed 48-byte compressed BLS public key.
func (r *Reader) ReadPublicKey() (blscrypto.PublicKey, error) {
	if err := r.need(blscrypto.PublicKeySize); err != nil {
		return blscrypto.PublicKey{}, err
	}
	var b [blscrypto.PublicKeySize]byte
	copy(b[:], r.buf[r.pos:r.pos+blscrypto.PublicKeySize])
	r.pos += blscrypto.PublicKeySize
	return blscrypto.PublicKeyFromBytes(b)
}

// ReadSignature reads a fixed 96-byte compressed BLS signature.
func (r *Reader) ReadSignature() (blscrypto.Signature, error) {
	if err := r.need(blscrypto.SignatureSize); err != nil {
		return blscrypto.Signature{}, err
	}
	var b [blscrypto.SignatureSize]byte
	copy(b[:], r.buf[r.pos:r.pos+blscrypto.SignatureSize])
	r.pos += blscrypto.SignatureSize
	return blscrypto.SignatureFromBytes(b)
}

// Remaining reports how many bytes are left unread, used by callers that
// want to assert a message was fully consumed.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }
