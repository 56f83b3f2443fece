package dkg

import (
	"math/big"
	"sort"

	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/corerr"
)

// ReceivePart processes an incoming round-one Part, verifying the share it
// sent this participant against its published commitments and returning
// the Ack this participant should broadcast in response. A second Part from
// the same sender leaves the session unchanged and returns
// ErrDuplicateDkgPart.
func (s *Session) ReceivePart(p Part) (Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.parts[p.SenderIndex]; dup {
		return Ack{}, corerr.ErrDuplicateDkgPart
	}
	myShare, ok := p.Shares[s.myIndex]
	if !ok {
		return Ack{}, corerr.New(corerr.KindProtocol, "dkg: part carries no share for this participant")
	}

	valid, err := blscrypto.VerifyShare(p.Commitments, s.myIndex, myShare)
	if err != nil {
		return Ack{}, corerr.Wrap(corerr.KindCryptographic, err, "dkg: verifying part share")
	}

	s.parts[p.SenderIndex] = p
	ack := Ack{SenderIndex: s.myIndex, AboutIndex: p.SenderIndex, Valid: valid}
	if len(s.parts) == len(s.participants) {
		s.phase = PhaseAwaitingAcks
	}
	return ack, nil
}

// ReceiveAck records an Ack from another participant about a sender's Part,
// and reports whether every part now has an Ack from every other
// participant, meaning this participant should call FinalizeLocal. No
// participant acks its own Part (it never calls ReceivePart on it), so
// "every other participant" is len(participants)-1 acks per part.
func (s *Session) ReceiveAck(a Ack) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acksAbout[a.AboutIndex] == nil {
		s.acksAbout[a.AboutIndex] = map[int]bool{}
	}
	s.acksAbout[a.AboutIndex][a.SenderIndex] = a.Valid

	if s.phase != PhaseAwaitingAcks {
		return false
	}
	required := len(s.participants) - 1
	for idx := range s.parts {
		if len(s.acksAbout[idx]) < required {
			return false
		}
	}
	return true
}

// qualifiedSendersLocked returns, in ascending index order, every sender
// whose Part received no complaint (no Ack reporting Valid=false) from any
// participant that has weighed in. Must hold s.mu.
func (s *Session) qualifiedSendersLocked() []int {
	var qualified []int
	for idx := range s.parts {
		disqualified := false
		for _, valid := range s.acksAbout[idx] {
			if !valid {
				disqualified = true
				break
			}
		}
		if !disqualified {
			qualified = append(qualified, idx)
		}
	}
	sort.Ints(qualified)
	return qualified
}

// FinalizeLocal computes this participant's own final secret share and
// public-key share once every part has been received, and returns the
// round-three Result message to broadcast. It does not yet decide the
// session -- that requires cross-checking Results from other participants
// via ReceiveResult.
func (s *Session) FinalizeLocal() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.parts) < len(s.participants) {
		return Result{}, corerr.New(corerr.KindProtocol, "dkg: cannot finalize before every part is received")
	}

	qualified := s.qualifiedSendersLocked()
	if len(qualified) <= s.threshold {
		return Result{}, corerr.New(corerr.KindProtocol, "dkg: too few qualified senders to reach threshold")
	}

	secretSum := new(big.Int)
	var commitmentConstants []blscrypto.PublicKey
	for _, idx := range qualified {
		part := s.parts[idx]
		secretSum.Add(secretSum, part.Shares[s.myIndex])
		commitmentConstants = append(commitmentConstants, part.Commitments[0])
	}

	myShare, err := blscrypto.SecretKeyShareFromScalar(reduceScalar(secretSum))
	if err != nil {
		return Result{}, corerr.Wrap(corerr.KindCryptographic, err, "dkg: deriving final secret share")
	}
	sectionKey, err := blscrypto.AggregatePublicKeys(commitmentConstants)
	if err != nil {
		return Result{}, corerr.Wrap(corerr.KindCryptographic, err, "dkg: aggregating section key")
	}

	s.phase = PhaseAwaitingResults
	s.result = Decided{SectionKey: sectionKey, MySecretShare: myShare, ShareVerifyKey: map[int]blscrypto.PublicKey{}}
	s.results[s.myIndex] = myShare.PublicKey()

	return Result{SenderIndex: s.myIndex, PublicKeyShare: myShare.PublicKey()}, nil
}

// ReceiveResult records another participant's final public-key share. Once
// every qualified participant's Result is in, the session commits: the
// same section key every participant has independently computed, and a
// verification map any participant can use to check Membership vote
// shares.
func (s *Session) ReceiveResult(r Result) (*Decided, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[r.SenderIndex] = r.PublicKeyShare

	qualified := s.qualifiedSendersLocked()
	if len(s.results) < len(qualified) {
		return nil, nil
	}
	for _, idx := range qualified {
		if _, ok := s.results[idx]; !ok {
			return nil, nil
		}
	}

	s.result.ShareVerifyKey = make(map[int]blscrypto.PublicKey, len(s.results))
	for idx, pk := range s.results {
		s.result.ShareVerifyKey[idx] = pk
	}
	s.phase = PhaseDecided
	decided := s.result
	return &decided, nil
}

// MarkFailed forces the session to Failed, used when the SAP for a later
// membership generation is observed while this session is still running.
func (s *Session) MarkFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseFailed
}

// Result returns the session's decided output; valid only once Phase() is
// PhaseDecided.
func (s *Session) Result() Decided {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

func reduceScalar(v *big.Int) [32]byte {
	order, _ := new(big.Int).SetString("52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)
	reduced := new(big.Int).Mod(v, order)
	var out [32]byte
	b := reduced.Bytes()
	copy(out[32-len(b):], b)
	return out
}
