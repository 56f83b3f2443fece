package dkg

import (
	"fmt"

	"github.com/elderlink/corenet/corelog"
	"github.com/elderlink/corenet/faultsink"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/xorname"
)

// Manager owns the single currently-running Session for a candidate elder
// set and restarts it, with an incremented attempt suffix, whenever it
// fails, up to retryLimit attempts before reporting persistent failure.
type Manager struct {
	participants []identity.PeerIdentity
	myIndex      int
	myName       xorname.Name
	retryLimit   int
	sink         faultsink.Sink
	log          *corelog.Logger

	baseSessionID string
	attempt       int
	current       *Session
}

// NewManager starts the first attempt of a DKG round for sessionID.
func NewManager(sessionID string, participants []identity.PeerIdentity, myIndex int, myName xorname.Name, retryLimit int, sink faultsink.Sink, log *corelog.Logger) (*Manager, Part, error) {
	if retryLimit < 1 {
		retryLimit = 3
	}
	if sink == nil {
		sink = faultsink.NoopSink{}
	}
	if log == nil {
		log = corelog.Nop()
	}
	m := &Manager{
		participants:  participants,
		myIndex:       myIndex,
		myName:        myName,
		retryLimit:    retryLimit,
		sink:          sink,
		log:           log,
		baseSessionID: sessionID,
	}
	part, err := m.startAttempt(1)
	return m, part, err
}

func (m *Manager) startAttempt(attempt int) (Part, error) {
	m.attempt = attempt
	s, part, err := New(fmt.Sprintf("%s-attempt-%d", m.baseSessionID, attempt), m.participants, m.myIndex)
	if err != nil {
		return Part{}, err
	}
	m.current = s
	return part, nil
}

// Current returns the attempt currently in flight.
func (m *Manager) Current() *Session { return m.current }

// Attempt returns the 1-based attempt counter.
func (m *Manager) Attempt() int { return m.attempt }

// NoteFailure marks the current attempt Failed and starts a fresh one with
// the same elder set, unless the retry limit has been exhausted, in which
// case it reports FaultDkgSessionFailure and returns false.
func (m *Manager) NoteFailure() (Part, bool, error) {
	m.current.MarkFailed()
	if m.attempt >= m.retryLimit {
		m.sink.Report(m.myName, faultsink.FaultDkgSessionFailure,
			fmt.Sprintf("dkg session %q failed after %d attempts", m.baseSessionID, m.attempt))
		m.log.Warn("dkg session exhausted retries",
			corelog.String("session_id", m.baseSessionID),
			corelog.Int("attempts", m.attempt),
		)
		return Part{}, false, nil
	}
	part, err := m.startAttempt(m.attempt + 1)
	if err != nil {
		return Part{}, false, err
	}
	m.log.Info("dkg session restarted after failure",
		corelog.String("session_id", m.baseSessionID),
		corelog.Int("attempt", m.attempt),
	)
	return part, true, nil
}

// NoteLaterGenerationObserved forces the current attempt to Failed without
// retrying, used when a later membership generation's SAP supersedes this
// round entirely.
func (m *Manager) NoteLaterGenerationObserved() {
	if m.current != nil {
		m.current.MarkFailed()
	}
}
