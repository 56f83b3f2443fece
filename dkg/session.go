// Package dkg implements the Pedersen-style verifiable secret sharing
// protocol that produces fresh BLS threshold key shares for a candidate
// Elder set, in three message rounds (Parts, Acks, Result).
package dkg

import (
	"math/big"
	"sync"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/internal/mathutil"
)

// Phase is a session's position in the three-round protocol.
type Phase int

const (
	PhaseAwaitingParts Phase = iota
	PhaseAwaitingAcks
	PhaseAwaitingResults
	PhaseDecided
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingParts:
		return "AwaitingParts"
	case PhaseAwaitingAcks:
		return "AwaitingAcks"
	case PhaseAwaitingResults:
		return "AwaitingResults"
	case PhaseDecided:
		return "Decided"
	case PhaseFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Part is round one: a participant's polynomial commitments, plus the
// per-recipient share evaluation. The transport layer is assumed to
// deliver Shares over an already peer-authenticated channel, matching
// spec.md's treatment of transport as an external collaborator.
type Part struct {
	SenderIndex int
	Commitments []blscrypto.PublicKey
	Shares      map[int]*big.Int // recipient index -> f_sender(recipient)
}

// Ack is round two: a participant's verdict on one sender's Part.
type Ack struct {
	SenderIndex int // the acking participant
	AboutIndex  int // whose Part this acks
	Valid       bool
}

// Result is round three: a participant's final public-key share, for
// cross-checking that every survivor computed the same qualified set.
type Result struct {
	SenderIndex    int
	PublicKeyShare blscrypto.PublicKey
}

// Decided is a completed session's output: the new section key plus this
// participant's own final threshold key material.
type Decided struct {
	SectionKey     blscrypto.PublicKey
	MySecretShare  blscrypto.SecretKeyShare
	ShareVerifyKey map[int]blscrypto.PublicKey // per-index public share, for Membership's vote verification
}

// Session runs one DKG attempt among participants indexed 1..n.
type Session struct {
	mu sync.Mutex

	sessionID   string
	participants []identity.PeerIdentity
	threshold   int
	myIndex     int

	myPoly    *blscrypto.Polynomial
	parts     map[int]Part
	acksAbout map[int]map[int]bool // aboutIndex -> ackerIndex -> valid
	results   map[int]blscrypto.PublicKey

	phase  Phase
	result Decided
}

// New starts a session for sessionID among participants, with this node
// occupying myIndex (1-based), generating its own round-one Part.
func New(sessionID string, participants []identity.PeerIdentity, myIndex int) (*Session, Part, error) {
	n := len(participants)
	threshold := mathutil.DkgThreshold(n)

	secret, err := blscrypto.RandomFieldElement()
	if err != nil {
		return nil, Part{}, err
	}
	poly, err := blscrypto.NewRandomPolynomial(secret, threshold)
	if err != nil {
		return nil, Part{}, err
	}
	commitments, err := poly.CommitmentKeys()
	if err != nil {
		return nil, Part{}, err
	}

	shares := make(map[int]*big.Int, n)
	for i := 1; i <= n; i++ {
		shares[i] = poly.Eval(i)
	}

	s := &Session{
		sessionID:    sessionID,
		participants: append([]identity.PeerIdentity(nil), participants...),
		threshold:    threshold,
		myIndex:      myIndex,
		myPoly:       poly,
		parts:        map[int]Part{},
		acksAbout:    map[int]map[int]bool{},
		results:      map[int]blscrypto.PublicKey{},
		phase:        PhaseAwaitingParts,
	}
	myPart := Part{SenderIndex: myIndex, Commitments: commitments, Shares: shares}
	s.parts[myIndex] = myPart
	return s, myPart, nil
}

// SessionID returns the session's identifier.
func (s *Session) SessionID() string { return s.sessionID }

// Participants returns the session's fixed participant set, in the same
// 1-based index order every Part/Ack/Result references.
func (s *Session) Participants() []identity.PeerIdentity {
	return append([]identity.PeerIdentity(nil), s.participants...)
}

// Phase returns the session's current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

