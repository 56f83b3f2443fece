package handover

import (
	"fmt"
	"sync"
	"time"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/corelog"
	"github.com/elderlink/corenet/corerr"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/internal/mathutil"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/xorname"
)

// Phase is the FSM's position within one handover round.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseVoting
	PhaseDecided
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseVoting:
		return "Voting"
	case PhaseDecided:
		return "Decided"
	default:
		return "Unknown"
	}
}

// ReceiveResult reports what handling an incoming vote produced.
type ReceiveResult struct {
	Decided *sectionauth.Signed[Decided]
	Queued  bool
}

// FSM runs one outgoing elder's handover round. Unlike Membership, handover
// requires every outgoing elder to vote before it may commit: a missing
// vote means indefinite waiting, never unsafe progression on a partial set.
type FSM struct {
	mu sync.Mutex

	generation uint64
	phase      Phase

	outgoingElders []identity.PeerIdentity
	shareVerify    map[int]blscrypto.PublicKey
	threshold      int

	outgoingSectionKey blscrypto.PublicKey
	myIndex            int
	myShare            blscrypto.SecretKeyShare
	myName             xorname.Name

	votesByVoter       map[xorname.Name]Vote
	lastVoteReceivedAt time.Time
	ownLatestVote      *Vote

	resendInterval time.Duration
	log            *corelog.Logger
}

// Config bundles an FSM's static per-round parameters.
type Config struct {
	OutgoingElders     []identity.PeerIdentity
	ShareVerifyKeys    map[int]blscrypto.PublicKey
	OutgoingSectionKey blscrypto.PublicKey
	MyIndex            int
	MyShare            blscrypto.SecretKeyShare
	MyName             xorname.Name
	ResendInterval     time.Duration
	Log                *corelog.Logger
}

// New builds an FSM for one handover generation, Idle.
func New(cfg Config) *FSM {
	n := len(cfg.OutgoingElders)
	log := cfg.Log
	if log == nil {
		log = corelog.Nop()
	}
	resend := cfg.ResendInterval
	if resend <= 0 {
		resend = 10 * time.Second
	}
	return &FSM{
		phase:              PhaseIdle,
		outgoingElders:     append([]identity.PeerIdentity(nil), cfg.OutgoingElders...),
		shareVerify:        cfg.ShareVerifyKeys,
		threshold:          mathutil.DkgThreshold(n),
		outgoingSectionKey: cfg.OutgoingSectionKey,
		myIndex:            cfg.MyIndex,
		myShare:            cfg.MyShare,
		myName:             cfg.MyName,
		votesByVoter:       map[xorname.Name]Vote{},
		resendInterval:     resend,
		log:                log,
	}
}

// Phase returns the FSM's current phase.
func (f *FSM) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Propose casts this outgoing elder's vote for decision at generation g.
func (f *FSM) Propose(generation uint64, decision Decision) (Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseIdle {
		return Vote{}, corerr.New(corerr.KindProtocol, "handover: Propose called outside Idle phase")
	}
	f.generation = generation
	vote := SignVote(generation, 0, decision, f.myIndex, f.myName, f.myShare)
	f.votesByVoter[f.myName] = vote
	f.ownLatestVote = &vote
	f.lastVoteReceivedAt = time.Now()
	f.phase = PhaseVoting
	return vote, nil
}

// ReceiveVote processes an incoming vote. Handover never commits on a
// super-majority alone: every outgoing elder's vote for an identical
// decision must be present.
func (f *FSM) ReceiveVote(v Vote) (ReceiveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v.Generation < f.generation {
		return ReceiveResult{}, corerr.ErrObsoleteGeneration
	}
	if v.Generation > f.generation {
		return ReceiveResult{Queued: true}, nil
	}

	shareKey, ok := f.shareVerify[v.VoterIndex]
	if !ok {
		return ReceiveResult{}, corerr.New(corerr.KindCryptographic, "handover: unknown voter index")
	}
	if !v.Verify(shareKey) {
		return ReceiveResult{}, corerr.ErrBadSignature
	}

	f.votesByVoter[v.VoterName] = v
	f.lastVoteReceivedAt = time.Now()
	if v.VoterName == f.myName {
		f.ownLatestVote = &v
	}

	decided := f.tryCommitLocked()
	return ReceiveResult{Decided: decided}, nil
}

// tryCommitLocked requires every outgoing elder to have voted for the same
// decision before committing, per the total-participation rule. Must hold
// f.mu.
func (f *FSM) tryCommitLocked() *sectionauth.Signed[Decided] {
	if len(f.votesByVoter) < len(f.outgoingElders) {
		return nil
	}
	groups := map[string][]Vote{}
	for _, v := range f.votesByVoter {
		key := fmt.Sprintf("%d:%s", v.Round, v.Decision.canonical())
		groups[key] = append(groups[key], v)
	}
	for _, votes := range groups {
		if len(votes) != len(f.outgoingElders) {
			continue
		}
		need := f.threshold + 1
		if need > len(votes) {
			need = len(votes)
		}
		shares := make(map[int]blscrypto.Signature, need)
		for i := 0; i < need; i++ {
			shares[votes[i].VoterIndex] = votes[i].ShareSig
		}
		sig, err := blscrypto.ReconstructSignature(shares)
		if err != nil {
			f.log.Warn("handover: reconstructing threshold signature failed", corelog.Err(err))
			continue
		}
		decided := Decided{Generation: f.generation, Decision: votes[0].Decision}
		f.phase = PhaseDecided
		return &sectionauth.Signed[Decided]{Value: decided, SectionKey: f.outgoingSectionKey, Signature: sig}
	}
	return nil
}

// ShouldResend reports whether resendInterval has elapsed since the last
// vote was received.
func (f *FSM) ShouldResend(now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownLatestVote == nil {
		return false
	}
	return now.Sub(f.lastVoteReceivedAt) >= f.resendInterval
}

// OwnLatestVote returns this elder's most recent vote for rebroadcast.
func (f *FSM) OwnLatestVote() (Vote, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ownLatestVote == nil {
		return Vote{}, false
	}
	return *f.ownLatestVote, true
}
