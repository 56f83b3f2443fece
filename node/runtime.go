// Package node wires NetworkKnowledge, Membership, Handover, Dkg, and
// AntiEntropy into the single-writer runtime a Scheduler drives: Dispatch
// decodes an incoming Frame by its Kind and routes the body to the owning
// component, enqueuing any resulting outbound Frames back onto the
// Transport boundary those components themselves stay ignorant of.
package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/elderlink/corenet/antientropy"
	"github.com/elderlink/corenet/blscrypto"
	"github.com/elderlink/corenet/cmdqueue"
	"github.com/elderlink/corenet/coreconfig"
	"github.com/elderlink/corenet/corelog"
	"github.com/elderlink/corenet/corerr"
	"github.com/elderlink/corenet/corestore"
	"github.com/elderlink/corenet/dkg"
	"github.com/elderlink/corenet/faultsink"
	"github.com/elderlink/corenet/handover"
	"github.com/elderlink/corenet/identity"
	"github.com/elderlink/corenet/membership"
	"github.com/elderlink/corenet/networkknowledge"
	"github.com/elderlink/corenet/sectionauth"
	"github.com/elderlink/corenet/wire"
)

// Runtime is one node's composite state: its own identity, its view of the
// network, the consensus FSMs it may be running as an elder, and the
// boundaries (Transport, Store, Sink) an embedding binary supplies.
//
// Runtime is not itself goroutine-safe across concurrent Dispatch calls;
// an embedding binary runs it behind a single Scheduler, per the
// single-writer ownership model every component in this tree already
// assumes internally.
type Runtime struct {
	Self      identity.PeerIdentity
	Knowledge *networkknowledge.Knowledge

	Membership *membership.FSM
	Handover   *handover.FSM

	AE     *antientropy.Handler
	Prober *antientropy.Prober

	Store     *corestore.Store
	Cfg       coreconfig.Config
	Log       *corelog.Logger
	Sink      faultsink.Sink
	Transport wire.Transport
	Scheduler *cmdqueue.Scheduler

	mu  sync.Mutex
	dkg map[string]*dkg.Manager // keyed by base session ID, per dkg.Manager
}

// New builds a Runtime around an already-bootstrapped NetworkKnowledge.
// membershipFSM and handoverFSM are nil for a node not currently serving
// as an Elder for its section or as an outgoing Elder in a handover round.
func New(self identity.PeerIdentity, knowledge *networkknowledge.Knowledge, store *corestore.Store, cfg coreconfig.Config, log *corelog.Logger, sink faultsink.Sink, transport wire.Transport) *Runtime {
	if log == nil {
		log = corelog.Nop()
	}
	if sink == nil {
		sink = faultsink.NoopSink{}
	}
	r := &Runtime{
		Self:      self,
		Knowledge: knowledge,
		Store:     store,
		Cfg:       cfg,
		Log:       log,
		Sink:      sink,
		Transport: transport,
		Scheduler: cmdqueue.New(log, cfg.Intervals.SchedulerDefaultTTL.Duration),
		dkg:       map[string]*dkg.Manager{},
	}
	r.Prober = antientropy.NewProber(self.Name, cfg.Intervals.AEProbeDedupe.Duration, cfg.Intervals.AEBackgroundProbe.Duration)
	r.refreshAE()
	return r
}

// refreshAE rebuilds the AE Handler over the current SectionTree snapshot,
// called after every mutation so HandleProbe/HandleUpdate never compute
// against a stale tree.
func (r *Runtime) refreshAE() {
	r.AE = antientropy.NewHandler(r.Knowledge.Snapshot())
}

// ourSectionKey returns the SAP key on record for this node's own prefix,
// used to stamp outgoing Frame headers and AE messages.
func (r *Runtime) ourSectionKey() (blscrypto.PublicKey, error) {
	sap, ok := r.Knowledge.OurSAP()
	if !ok {
		return blscrypto.PublicKey{}, corerr.New(corerr.KindKnowledgeGap, "node: no SAP on record for our own prefix")
	}
	return sap.Value.SectionKey, nil
}

// send frames body as kind under our section key, addressed to peer.
func (r *Runtime) send(ctx context.Context, peer identity.PeerIdentity, kind wire.Kind, body []byte) error {
	key, err := r.ourSectionKey()
	if err != nil {
		return err
	}
	return r.Transport.Send(ctx, peer, wire.NewFrame(kind, key, body))
}

// Dispatch routes one decoded Frame from `from` to its owning component.
func (r *Runtime) Dispatch(ctx context.Context, frame wire.Frame, from identity.PeerIdentity) error {
	switch frame.Kind {
	case wire.KindAntiEntropy:
		return r.dispatchAE(ctx, frame, from)
	case wire.KindMembershipVote:
		return r.dispatchMembershipVote(ctx, frame, from)
	case wire.KindHandoverVote:
		return r.dispatchHandoverVote(ctx, frame, from)
	case wire.KindDkgMessage:
		return r.dispatchDkgMessage(ctx, frame, from)
	case wire.KindClient, wire.KindClientResponse, wire.KindNodeToNode, wire.KindNodeJoin:
		// Opaque envelopes: routing and interpretation is the embedding
		// binary's responsibility, not the core's.
		return nil
	default:
		return fmt.Errorf("node: unknown frame kind %v", frame.Kind)
	}
}

func (r *Runtime) dispatchAE(ctx context.Context, frame wire.Frame, from identity.PeerIdentity) error {
	msg, err := antientropy.DecodeMessage(frame.Body)
	if err != nil {
		return fmt.Errorf("node: decoding AE message: %w", err)
	}

	ourKey, err := r.ourSectionKey()
	if err != nil {
		return err
	}
	ourPrefix := r.Knowledge.OurPrefix()

	switch msg.Kind {
	case antientropy.PayloadProbe:
		resp, ok := r.AE.HandleProbe(msg, ourKey, ourPrefix)
		if !ok {
			return nil
		}
		return r.send(ctx, from, wire.KindAntiEntropy, antientropy.EncodeMessage(resp))

	case antientropy.PayloadUpdate:
		if err := r.Knowledge.UpdateTree(msg.UpdatePayload); err != nil {
			return fmt.Errorf("node: applying AE update: %w", err)
		}
		r.refreshAE()
		return nil

	case antientropy.PayloadRedirect:
		// A Redirect only names the authority that owns some name; it
		// carries no proof chain, so it cannot be applied as an Update
		// directly. It is only logged; Runtime runs no background probe
		// cycle, so nothing follows the redirect up.
		r.Log.Info("node: received AE redirect",
			corelog.Stringer("redirected_to", msg.RedirectSAP.Value.Prefix))
		return nil

	default:
		return fmt.Errorf("node: unknown AE payload kind %v", msg.Kind)
	}
}

func (r *Runtime) dispatchMembershipVote(ctx context.Context, frame wire.Frame, from identity.PeerIdentity) error {
	if r.Membership == nil {
		return nil // not currently serving as an Elder: nothing to do
	}
	vote, err := membership.DecodeVote(frame.Body)
	if err != nil {
		return fmt.Errorf("node: decoding membership vote: %w", err)
	}

	result, err := r.Membership.ReceiveVote(vote)
	if err != nil {
		return fmt.Errorf("node: handling membership vote: %w", err)
	}
	if result.Queued {
		return r.probePeer(ctx, from)
	}
	if result.Decided == nil {
		return nil
	}
	for _, ns := range result.Decided.Value.Proposal {
		if err := r.Knowledge.UpsertMember(ns.Peer.Name, sectionauth.Signed[sectionauth.Encodable]{
			Value:      ns,
			SectionKey: result.Decided.SectionKey,
			Signature:  result.Decided.Signature,
		}); err != nil {
			r.Log.Warn("node: upserting decided member", corelog.Err(err))
		}
	}
	if r.Store != nil {
		if err := r.Store.AppendMembershipLog(result.Decided.Value.Generation, result.Decided.Value.CanonicalBytes()); err != nil {
			r.Log.Warn("node: persisting membership log", corelog.Err(err))
		}
	}
	r.Membership.AdvanceGeneration()
	return nil
}

func (r *Runtime) dispatchHandoverVote(ctx context.Context, frame wire.Frame, from identity.PeerIdentity) error {
	if r.Handover == nil {
		return nil // not currently an outgoing Elder in a handover round
	}
	vote, err := handover.DecodeVote(frame.Body)
	if err != nil {
		return fmt.Errorf("node: decoding handover vote: %w", err)
	}
	result, err := r.Handover.ReceiveVote(vote)
	if err != nil {
		return fmt.Errorf("node: handling handover vote: %w", err)
	}
	if result.Queued {
		return r.probePeer(ctx, from)
	}
	if result.Decided != nil {
		r.Log.Info("node: handover round decided", corelog.Uint64("generation", vote.Generation))
	}
	return nil
}

func (r *Runtime) dispatchDkgMessage(ctx context.Context, frame wire.Frame, from identity.PeerIdentity) error {
	msg, err := dkg.DecodeMessage(frame.Body)
	if err != nil {
		return fmt.Errorf("node: decoding dkg message: %w", err)
	}

	baseID, mgr, ok := r.dkgManagerFor(msg.SessionID)
	if !ok {
		return nil // no session running under this base ID: stale or foreign
	}
	session := mgr.Current()
	if session == nil || session.SessionID() != msg.SessionID {
		return nil // message belongs to a superseded attempt
	}

	switch msg.Kind {
	case dkg.MessagePart:
		ack, err := session.ReceivePart(msg.PartPayload)
		if err != nil {
			return fmt.Errorf("node: receiving dkg part: %w", err)
		}
		// Record our own Ack in our own bookkeeping too: a session never
		// self-acks its own Part (ReceivePart is only called on others'
		// Parts), so without this, the tally ReceiveAck watches for could
		// never complete with this participant's contribution counted.
		ready := session.ReceiveAck(ack)
		if err := r.broadcastDkg(ctx, mgr, dkg.NewAckMessage(session.SessionID(), ack)); err != nil {
			return err
		}
		return r.maybeFinalizeDkg(ctx, mgr, session, ready)

	case dkg.MessageAck:
		ready := session.ReceiveAck(msg.AckPayload)
		return r.maybeFinalizeDkg(ctx, mgr, session, ready)

	case dkg.MessageResult:
		decided, err := session.ReceiveResult(msg.ResultPayload)
		if err != nil {
			return fmt.Errorf("node: receiving dkg result: %w", err)
		}
		if decided != nil {
			r.Log.Info("node: dkg session decided", corelog.String("session_id", session.SessionID()))
			if r.Store != nil {
				delete(r.dkg, baseID)
				_ = r.Store.DeleteDkgState(session.SessionID())
			}
		}
		return nil

	default:
		return fmt.Errorf("node: unknown dkg message kind %v", msg.Kind)
	}
}

// maybeFinalizeDkg computes and broadcasts this participant's round-three
// Result once ready reports every Part has been fully acked, per the
// three-round DKG protocol's Parts -> Acks -> Result progression.
func (r *Runtime) maybeFinalizeDkg(ctx context.Context, mgr *dkg.Manager, session *dkg.Session, ready bool) error {
	if !ready {
		return nil
	}
	result, err := session.FinalizeLocal()
	if err != nil {
		return fmt.Errorf("node: finalizing dkg session: %w", err)
	}
	return r.broadcastDkg(ctx, mgr, dkg.NewResultMessage(session.SessionID(), result))
}

// dkgManagerFor returns the manager, and the base session ID it is keyed by
// in StartDkg, whose current attempt's Session.SessionID() equals
// msgSessionID exactly; a message for a superseded attempt matches no
// manager.
func (r *Runtime) dkgManagerFor(msgSessionID string) (string, *dkg.Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for base, mgr := range r.dkg {
		if mgr.Current() != nil && mgr.Current().SessionID() == msgSessionID {
			return base, mgr, true
		}
	}
	return "", nil, false
}

// StartDkg begins a fresh DKG round for baseSessionID among participants,
// broadcasting this node's round-one Part to every other participant.
func (r *Runtime) StartDkg(ctx context.Context, baseSessionID string, participants []identity.PeerIdentity, myIndex int) error {
	mgr, part, err := dkg.NewManager(baseSessionID, participants, myIndex, r.Self.Name, r.Cfg.Handover.DkgRetryLimit, r.Sink, r.Log)
	if err != nil {
		return fmt.Errorf("node: starting dkg session %q: %w", baseSessionID, err)
	}
	r.mu.Lock()
	r.dkg[baseSessionID] = mgr
	r.mu.Unlock()
	return r.broadcastDkg(ctx, mgr, dkg.NewPartMessage(mgr.Current().SessionID(), part))
}

func (r *Runtime) broadcastDkg(ctx context.Context, mgr *dkg.Manager, msg dkg.Message) error {
	body := dkg.EncodeMessage(msg)
	var firstErr error
	for _, peer := range mgr.Current().Participants() {
		if peer.Name == r.Self.Name {
			continue
		}
		if err := r.send(ctx, peer, wire.KindDkgMessage, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// probePeer sends a Probe carrying our current section key, used whenever
// a component observes a message from a generation ahead of what we know,
// per the AE interlock rule.
func (r *Runtime) probePeer(ctx context.Context, peer identity.PeerIdentity) error {
	ourKey, err := r.ourSectionKey()
	if err != nil {
		return err
	}
	msg := antientropy.NewProbe(ourKey, r.Knowledge.OurPrefix(), ourKey)
	return r.send(ctx, peer, wire.KindAntiEntropy, antientropy.EncodeMessage(msg))
}
