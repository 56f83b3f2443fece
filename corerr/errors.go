// Package corerr implements the error taxonomy of the core's error-handling
// design: cryptographic, knowledge-gap, invariant-violation, protocol,
// transport, and capacity errors, each wrapped with github.com/pkg/errors
// so cause chains and stack context survive across cmd boundaries.
package corerr

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an error for the propagation policy of section 7.
type Kind int

const (
	// KindUnknown is returned by Classify for errors outside the taxonomy.
	KindUnknown Kind = iota
	// KindCryptographic covers signature verification failures, unknown
	// BLS keys, and malformed spent-proof shares. Terminal for the message.
	KindCryptographic
	// KindKnowledgeGap covers a referenced section key absent from the
	// local DAG. Recovered locally by emitting an AE probe.
	KindKnowledgeGap
	// KindInvariantViolation covers overlapping prefixes, non-monotonic
	// generations, and DAG forks. Terminal for the message.
	KindInvariantViolation
	// KindProtocol covers obsolete-generation votes, duplicate DKG parts,
	// and handover without total participation.
	KindProtocol
	// KindTransport covers connection loss and unreachable peers. Retried
	// at most once before surfacing to the caller.
	KindTransport
	// KindCapacity covers oversized messages, full queues, and deadline
	// exceeded. Surfaces as scheduler back-pressure.
	KindCapacity
)

func (k Kind) String() string {
	switch k {
	case KindCryptographic:
		return "cryptographic"
	case KindKnowledgeGap:
		return "knowledge_gap"
	case KindInvariantViolation:
		return "invariant_violation"
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

type classified struct {
	kind Kind
	err  error
}

func (c *classified) Error() string { return c.err.Error() }
func (c *classified) Unwrap() error { return c.err }
func (c *classified) Kind() Kind    { return c.kind }

// Wrap annotates err with a kind and a message, preserving the original as
// the cause via github.com/pkg/errors.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &classified{kind: kind, err: pkgerrors.Wrap(err, msg)}
}

// New creates a new error of the given kind with a stack trace attached.
func New(kind Kind, msg string) error {
	return &classified{kind: kind, err: pkgerrors.New(msg)}
}

// Classify walks the cause chain looking for a classified error and returns
// its Kind, or KindUnknown if none is found.
func Classify(err error) Kind {
	var c *classified
	if errors.As(err, &c) {
		return c.kind
	}
	return KindUnknown
}

// Sentinel errors for common, specific conditions referenced by several
// components (SectionsDag, SectionTree, AntiEntropy).
var (
	ErrUnknownParent       = New(KindCryptographic, "sectionsdag: unknown parent key")
	ErrBadSignature        = New(KindCryptographic, "sectionsdag: signature does not verify under parent key")
	ErrNoPath              = New(KindKnowledgeGap, "sectionsdag: no path between keys")
	ErrSelfParent          = New(KindInvariantViolation, "sectionsdag: vertex cannot be its own parent")
	ErrOverlappingPrefix   = New(KindInvariantViolation, "sectiontree: update would overlap an existing prefix")
	ErrNotFound            = New(KindKnowledgeGap, "sectiontree: key not found")
	ErrObsoleteGeneration  = New(KindProtocol, "membership: vote for obsolete generation")
	ErrDuplicateDkgPart    = New(KindProtocol, "dkg: duplicate part from participant")
	ErrIncompleteHandover  = New(KindProtocol, "handover: missing votes from outgoing elders")
	ErrQueueFull           = New(KindCapacity, "cmdqueue: queue full")
	ErrMessageTooLarge     = New(KindCapacity, "wire: message exceeds maximum frame size")
	ErrDeadlineExceeded    = New(KindCapacity, "cmdqueue: cmd deadline exceeded")
)
