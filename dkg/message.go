package dkg

import "github.com/elderlink/corenet/wire"

// MessageKind distinguishes the three round payloads multiplexed onto a
// single KindDkgMessage frame, the same way antientropy.PayloadKind
// multiplexes Probe/Update/Redirect onto KindAntiEntropy.
type MessageKind uint8

const (
	MessagePart MessageKind = iota
	MessageAck
	MessageResult
)

// Message is the single envelope a KindDkgMessage frame body carries:
// which round payload it is, tagged with the session it belongs to so a
// node running several concurrent sessions (one per generation attempt)
// can route it.
type Message struct {
	SessionID string
	Kind      MessageKind

	PartPayload   Part
	AckPayload    Ack
	ResultPayload Result
}

// NewPartMessage wraps a round-one Part for transport.
func NewPartMessage(sessionID string, p Part) Message {
	return Message{SessionID: sessionID, Kind: MessagePart, PartPayload: p}
}

// NewAckMessage wraps a round-two Ack for transport.
func NewAckMessage(sessionID string, a Ack) Message {
	return Message{SessionID: sessionID, Kind: MessageAck, AckPayload: a}
}

// NewResultMessage wraps a round-three Result for transport.
func NewResultMessage(sessionID string, r Result) Message {
	return Message{SessionID: sessionID, Kind: MessageResult, ResultPayload: r}
}

// EncodeMessage serializes m as a KindDkgMessage frame body.
func EncodeMessage(m Message) []byte {
	w := wire.NewWriter()
	w.WriteBytes([]byte(m.SessionID))
	w.WriteUint8(uint8(m.Kind))
	switch m.Kind {
	case MessagePart:
		w.WriteBytes(EncodePart(m.PartPayload))
	case MessageAck:
		w.WriteBytes(EncodeAck(m.AckPayload))
	case MessageResult:
		w.WriteBytes(EncodeResult(m.ResultPayload))
	}
	return w.Bytes()
}

// DecodeMessage parses a KindDkgMessage frame body written by EncodeMessage.
func DecodeMessage(body []byte) (Message, error) {
	r := wire.NewReader(body)
	sessionIDBytes, err := r.ReadBytes()
	if err != nil {
		return Message{}, err
	}
	kindByte, err := r.ReadUint8()
	if err != nil {
		return Message{}, err
	}
	m := Message{SessionID: string(sessionIDBytes), Kind: MessageKind(kindByte)}
	payload, err := r.ReadBytes()
	if err != nil {
		return Message{}, err
	}
	switch m.Kind {
	case MessagePart:
		m.PartPayload, err = DecodePart(payload)
	case MessageAck:
		m.AckPayload, err = DecodeAck(payload)
	case MessageResult:
		m.ResultPayload, err = DecodeResult(payload)
	}
	if err != nil {
		return Message{}, err
	}
	return m, nil
}
