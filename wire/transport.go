package wire

import (
	"context"

	"github.com/elderlink/corenet/identity"
)

// Transport is the boundary interface the out-of-scope transport layer
// must satisfy for the core to send and receive framed messages. corenet
// owns only framing and routing by Kind; connection management, NAT
// traversal, and stream multiplexing live entirely on the other side of
// this interface.
type Transport interface {
	Send(ctx context.Context, to identity.PeerIdentity, frame Frame) error
	Recv(ctx context.Context) (Frame, identity.PeerIdentity, error)
}
