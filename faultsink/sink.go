// Package faultsink declares the opaque fault-reporting boundary Dkg and
// Membership call into. The scoring heuristic itself is out of scope; this
// package owns only the interface and two trivial implementations.
package faultsink

import (
	"github.com/elderlink/corenet/corelog"
	"github.com/elderlink/corenet/xorname"
)

// FaultClass names the category of misbehavior observed, mirroring the
// triggers named in spec.md 4.4 and 4.3.
type FaultClass int

const (
	FaultUnknown FaultClass = iota
	// FaultDkgSessionFailure is reported when a DKG session fails
	// persistently past its retry bound.
	FaultDkgSessionFailure
	// FaultInvalidMembershipVote is reported when a membership vote is
	// rejected as cryptographically invalid.
	FaultInvalidMembershipVote
)

func (c FaultClass) String() string {
	switch c {
	case FaultDkgSessionFailure:
		return "dkg_session_failure"
	case FaultInvalidMembershipVote:
		return "invalid_membership_vote"
	default:
		return "unknown"
	}
}

// Sink is the external fault-tracker's consumer-facing interface. Weighing
// and scoring reported faults is entirely out of scope here.
type Sink interface {
	Report(peer xorname.Name, class FaultClass, detail string)
}

// NoopSink discards every report; useful in tests and for nodes that don't
// wire an external fault-tracker.
type NoopSink struct{}

func (NoopSink) Report(xorname.Name, FaultClass, string) {}

// LoggingSink records every report as a structured warning, for operators
// who have no external fault-tracker yet but still want visibility.
type LoggingSink struct {
	Log *corelog.Logger
}

func (s LoggingSink) Report(peer xorname.Name, class FaultClass, detail string) {
	log := s.Log
	if log == nil {
		log = corelog.Nop()
	}
	log.Warn("fault reported",
		corelog.Stringer("peer", peer),
		corelog.String("class", class.String()),
		corelog.String("detail", detail),
	)
}
