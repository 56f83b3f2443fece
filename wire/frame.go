// Package wire implements the framed message header and canonical body
// encoding of the external interface: a fixed 67-byte header (version,
// msg_id, kind, section_key) followed by a 4-byte little-endian body
// length and the body itself.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/corerr"
)

// Kind identifies the message payload carried by a Frame.
type Kind uint8

const (
	KindClient Kind = iota
	KindClientResponse
	KindNodeToNode
	KindNodeJoin
	KindAntiEntropy
	KindDkgMessage
	KindMembershipVote
	KindHandoverVote
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "Client"
	case KindClientResponse:
		return "ClientResponse"
	case KindNodeToNode:
		return "NodeToNode"
	case KindNodeJoin:
		return "NodeJoin"
	case KindAntiEntropy:
		return "AntiEntropy"
	case KindDkgMessage:
		return "DkgMessage"
	case KindMembershipVote:
		return "MembershipVote"
	case KindHandoverVote:
		return "HandoverVote"
	default:
		return "Unknown"
	}
}

// ProtocolVersion is the current wire version field.
const ProtocolVersion uint16 = 1

// HeaderSize is 2 (version) + 16 (msg_id) + 1 (kind) + 48 (section_key).
const HeaderSize = 2 + 16 + 1 + blscrypto.PublicKeySize

// MaxBodySize bounds a single frame's body, surfacing as a Capacity error
// above this size rather than an unbounded allocation.
const MaxBodySize = 16 << 20 // 16 MiB

// Frame is one decoded wire message: header fields plus an opaque body,
// whose application-level structure is owned by the Kind-specific codec
// (AntiEntropy, DkgMessage, MembershipVote, HandoverVote) or is an opaque
// envelope (Client, ClientResponse, NodeToNode, NodeJoin).
type Frame struct {
	Version    uint16
	MsgID      uuid.UUID
	Kind       Kind
	SectionKey blscrypto.PublicKey
	Body       []byte
}

// NewFrame builds a Frame with a fresh random msg_id.
func NewFrame(kind Kind, sectionKey blscrypto.PublicKey, body []byte) Frame {
	return Frame{
		Version:    ProtocolVersion,
		MsgID:      uuid.New(),
		Kind:       kind,
		SectionKey: sectionKey,
		Body:       body,
	}
}

// Encode serializes f as header + 4-byte little-endian body length + body.
func Encode(f Frame) ([]byte, error) {
	if len(f.Body) > MaxBodySize {
		return nil, fmt.Errorf("%w: body of %d bytes exceeds max frame size %d", corerr.ErrMessageTooLarge, len(f.Body), MaxBodySize)
	}
	out := make([]byte, HeaderSize+4+len(f.Body))
	binary.LittleEndian.PutUint16(out[0:2], f.Version)
	idBytes, err := f.MsgID.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("wire: marshaling msg_id: %w", err)
	}
	copy(out[2:18], idBytes)
	out[18] = byte(f.Kind)
	keyBytes := f.SectionKey.Bytes()
	copy(out[19:19+blscrypto.PublicKeySize], keyBytes[:])
	binary.LittleEndian.PutUint32(out[HeaderSize:HeaderSize+4], uint32(len(f.Body)))
	copy(out[HeaderSize+4:], f.Body)
	return out, nil
}

// DecodeHeader parses only the fixed header plus body-length prefix from
// buf, returning the frame (with Body still unset) and the total frame
// length so callers reading from a stream know how many more bytes to
// read before calling Decode.
func DecodeHeader(buf []byte) (Frame, int, error) {
	if len(buf) < HeaderSize+4 {
		return Frame{}, 0, fmt.Errorf("wire: buffer shorter than header (%d < %d)", len(buf), HeaderSize+4)
	}
	var f Frame
	f.Version = binary.LittleEndian.Uint16(buf[0:2])
	if err := f.MsgID.UnmarshalBinary(buf[2:18]); err != nil {
		return Frame{}, 0, fmt.Errorf("wire: unmarshaling msg_id: %w", err)
	}
	f.Kind = Kind(buf[18])
	var keyBytes [blscrypto.PublicKeySize]byte
	copy(keyBytes[:], buf[19:19+blscrypto.PublicKeySize])
	key, err := blscrypto.PublicKeyFromBytes(keyBytes)
	if err != nil {
		return Frame{}, 0, fmt.Errorf("wire: decoding section_key: %w", err)
	}
	f.SectionKey = key
	bodyLen := binary.LittleEndian.Uint32(buf[HeaderSize : HeaderSize+4])
	if bodyLen > MaxBodySize {
		return Frame{}, 0, fmt.Errorf("%w: declared body length %d exceeds max frame size %d", corerr.ErrMessageTooLarge, bodyLen, MaxBodySize)
	}
	return f, HeaderSize + 4 + int(bodyLen), nil
}

// Decode fully parses a complete frame from buf (header + declared body
// length must already be present).
func Decode(buf []byte) (Frame, error) {
	f, total, err := DecodeHeader(buf)
	if err != nil {
		return Frame{}, err
	}
	if len(buf) < total {
		return Frame{}, fmt.Errorf("wire: buffer shorter than declared frame length (%d < %d)", len(buf), total)
	}
	f.Body = append([]byte(nil), buf[HeaderSize+4:total]...)
	return f, nil
}
