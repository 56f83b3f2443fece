package membership

import (
	"fmt"
	"sync"
	"time"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/corelog"
	"github.com/elderlink/corenet/corerr"
	"github.com/elderlink/corenet/faultsink"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/internal/mathutil"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/xorname"
)

// Phase is the FSM's current position within one generation, per spec.md
// 4.3: Idle(g) -> Proposing(g) -> Voting(g) -> Decided(g) -> Idle(g+1).
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseProposing
	PhaseVoting
	PhaseDecided
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseProposing:
		return "Proposing"
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
	// Decided is non-nil when this vote was the one that completed a
	// super-majority on a single proposal.
	Decided *sectionauth.Signed[Decided]
	// Queued is true when the vote's generation is ahead of this FSM's
	// current generation: the caller should stash it and emit an AE probe.
	Queued bool
}

// FSM runs one elder's membership consensus for its section across
// generations. It tolerates up to ByzantineTolerance(n) Byzantine elders
// and commits once SuperMajority(n) elders sign an identical proposal.
type FSM struct {
	mu sync.Mutex

	generation uint64
	phase      Phase

	elders        []identity.PeerIdentity   // ordered; index i (0-based) has voter index i+1
	shareVerify   map[int]blscrypto.PublicKey // voter index -> per-elder threshold share public key
	superMajority int
	threshold     int // t+1 shares needed to reconstruct; kept as t here

	sectionKey blscrypto.PublicKey
	myIndex    int
	myShare    blscrypto.SecretKeyShare
	myName     xorname.Name

	votesByVoter        map[xorname.Name]Vote
	lastVoteReceivedAt  time.Time
	ownLatestVote       *Vote

	resendInterval time.Duration
	sink           faultsink.Sink
	log            *corelog.Logger
}

// Config bundles an FSM's static per-section parameters.
type Config struct {
	Elders         []identity.PeerIdentity
	ShareVerifyKeys map[int]blscrypto.PublicKey
	SectionKey     blscrypto.PublicKey
	MyIndex        int
	MyShare        blscrypto.SecretKeyShare
	MyName         xorname.Name
	ResendInterval time.Duration
	Sink           faultsink.Sink
	Log            *corelog.Logger
}

// New builds an FSM at generation 0, Idle.
func New(cfg Config) *FSM {
	n := len(cfg.Elders)
	sink := cfg.Sink
	if sink == nil {
		sink = faultsink.NoopSink{}
	}
	log := cfg.Log
	if log == nil {
		log = corelog.Nop()
	}
	resend := cfg.ResendInterval
	if resend <= 0 {
		resend = 30 * time.Second
	}
	return &FSM{
		phase:          PhaseIdle,
		elders:         append([]identity.PeerIdentity(nil), cfg.Elders...),
		shareVerify:    cfg.ShareVerifyKeys,
		superMajority:  mathutil.SuperMajority(n),
		threshold:      mathutil.DkgThreshold(n),
		sectionKey:     cfg.SectionKey,
		myIndex:        cfg.MyIndex,
		myShare:        cfg.MyShare,
		myName:         cfg.MyName,
		votesByVoter:   map[xorname.Name]Vote{},
		resendInterval: resend,
		sink:           sink,
		log:            log,
	}
}

// Generation returns the FSM's current generation.
func (f *FSM) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.generation
}

// Phase returns the FSM's current phase.
func (f *FSM) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Propose moves Idle(g) -> Proposing(g) -> Voting(g), casting this elder's
// own first-round vote for the given transition set.
func (f *FSM) Propose(transitions Proposal) (Vote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.phase != PhaseIdle {
		return Vote{}, corerr.New(corerr.KindProtocol, "membership: Propose called outside Idle phase")
	}
	f.phase = PhaseProposing
	vote := SignVote(f.generation, 0, transitions, f.myIndex, f.myName, f.myShare)
	f.votesByVoter[f.myName] = vote
	f.ownLatestVote = &vote
	f.lastVoteReceivedAt = time.Now()
	f.phase = PhaseVoting
	return vote, nil
}

// ReceiveVote processes an incoming vote against the FSM's current
// generation, per the AE interlock and batching rules of spec.md 4.3.
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
		return ReceiveResult{}, corerr.New(corerr.KindCryptographic, "membership: unknown voter index")
	}
	if !v.Verify(shareKey) {
		f.sink.Report(v.VoterName, faultsink.FaultInvalidMembershipVote, "vote share signature failed verification")
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

// tryCommitLocked checks whether any single proposal has reached
// super-majority among recorded votes, and if so reconstructs the
// threshold signature and advances to PhaseDecided. Must hold f.mu.
func (f *FSM) tryCommitLocked() *sectionauth.Signed[Decided] {
	groups := map[string][]Vote{}
	for _, v := range f.votesByVoter {
		key := fmt.Sprintf("%d:%s", v.Round, v.Proposal.canonical())
		groups[key] = append(groups[key], v)
	}

	for _, votes := range groups {
		if len(votes) < f.superMajority {
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
			f.log.Warn("membership: reconstructing threshold signature failed", corelog.Err(err))
			continue
		}
		relocated, err := ApplyRelocations(f.sectionKey, f.generation, votes[0].Proposal)
		if err != nil {
			f.log.Warn("membership: applying relocations failed", corelog.Err(err))
			continue
		}
		decided := Decided{Generation: f.generation, Proposal: relocated}
		f.phase = PhaseDecided
		return &sectionauth.Signed[Decided]{Value: decided, SectionKey: f.sectionKey, Signature: sig}
	}
	return nil
}

// AdvanceGeneration moves Decided(g) -> Idle(g+1), clearing the vote table
// for the next round of consensus.
func (f *FSM) AdvanceGeneration() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.phase = PhaseIdle
	f.votesByVoter = map[xorname.Name]Vote{}
	f.ownLatestVote = nil
}

// ShouldResend reports whether resendInterval has elapsed since the last
// vote was received, per the no-leader rebroadcast resend policy.
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
