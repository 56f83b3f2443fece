package antientropy

import (
	"math/rand"
	"sync"
	"time"

	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/xorname"
)

// Prober tracks per-target probe dedupe and picks periodic background
// probe targets by XOR-closeness weighting, per spec 4.6's flood-bound and
// 120s periodic sweep rules.
type Prober struct {
	mu sync.Mutex

	dedupeInterval time.Duration
	lastProbed     map[xorname.Name]time.Time

	backgroundInterval  time.Duration
	lastBackgroundProbe time.Time

	ourName xorname.Name
}

// NewProber builds a Prober for a node named ourName.
func NewProber(ourName xorname.Name, dedupeInterval, backgroundInterval time.Duration) *Prober {
	return &Prober{
		dedupeInterval:     dedupeInterval,
		lastProbed:         map[xorname.Name]time.Time{},
		backgroundInterval: backgroundInterval,
		ourName:            ourName,
	}
}

// ShouldProbe reports whether a probe to target is allowed right now under
// the at-most-one-probe-per-target-per-interval flood bound, and records
// the attempt if so.
func (p *Prober) ShouldProbe(target xorname.Name, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastProbed[target]
	if ok && now.Sub(last) < p.dedupeInterval {
		return false
	}
	p.lastProbed[target] = now
	return true
}

// ShouldRunBackgroundProbe reports whether backgroundInterval has elapsed
// since the last periodic sweep, and if so advances the internal clock.
func (p *Prober) ShouldRunBackgroundProbe(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now.Sub(p.lastBackgroundProbe) < p.backgroundInterval {
		return false
	}
	p.lastBackgroundProbe = now
	return true
}

// PickBackgroundTarget draws a uniformly random point in the address space
// and returns the candidate whose name is XOR-closest to it, so each
// candidate's chance of being picked grows with the part of the address
// space that lies closer to it than to any other candidate. ourName does not
// affect the choice. A nil randSource is replaced by a source seeded with 1,
// which draws the same point on every such call.
func PickBackgroundTarget(ourName xorname.Name, candidates []identity.PeerIdentity, randSource *rand.Rand) (identity.PeerIdentity, bool) {
	if len(candidates) == 0 {
		return identity.PeerIdentity{}, false
	}
	if randSource == nil {
		randSource = rand.New(rand.NewSource(1))
	}
	// Sample a random probe point and keep the candidate closest to it,
	// which biases selection toward whichever region of the address space
	// the random draw lands near, without needing real distance math on
	// every candidate up front.
	var target xorname.Name
	for i := range target {
		target[i] = byte(randSource.Intn(256))
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Name.CloserTo(target, best.Name) {
			best = c
		}
	}
	return best, true
}
