package engine

import (
	"math/rand/v2"
	"slices"
	"time"

	"go.uber.org/zap"

	"localgroup/internal/clock"
	"localgroup/internal/element"
	"localgroup/internal/gossip"
	"localgroup/internal/journal"
	"localgroup/internal/position"
	"localgroup/internal/proximity"
	"localgroup/internal/telemetry"
	"localgroup/internal/wire"
)

// Sender delivers encoded datagrams. Sends are fire-and-forget.
type Sender interface {
	Send(to wire.Addr, payload []byte) error
	Broadcast(payload []byte) error
}

// Config holds the protocol parameters of one node.
type Config struct {
	NodeID           uint32
	Address          wire.Addr // advertised in ADVERT
	Radius           float64
	HeartbeatTimeout time.Duration
	Seed             SeedStrategy
}

// Option configures optional collaborators.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithJournal reports every element transition to sink.
func WithJournal(sink journal.Sink) Option {
	return func(e *Engine) { e.journal = sink }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the source for random round seeds.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// Engine is the convergence state machine of one node.
type Engine struct {
	cfg     Config
	store   *element.Store
	members *gossip.Membership
	nearby  *proximity.Tracker
	out     Sender
	pos     position.Source

	log     *zap.Logger
	metrics *telemetry.Metrics
	journal journal.Sink
	now     func() time.Time
	rng     *rand.Rand
}

// New creates an engine over store. Datagrams go out through out and the
// node position is read from pos.
func New(cfg Config, store *element.Store, out Sender, pos position.Source, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		store:   store,
		members: gossip.NewMembership(store.Count()),
		nearby:  proximity.NewTracker(cfg.Radius),
		out:     out,
		pos:     pos,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = telemetry.New(nil)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(uint64(cfg.NodeID), 0x6c67))
	}
	e.log = e.log.Named("engine")
	return e
}

// Store returns the element store.
func (e *Engine) Store() *element.Store { return e.store }

// Members returns the membership table.
func (e *Engine) Members() *gossip.Membership { return e.members }

// Nearby returns the nearby element IDs in ascending order.
func (e *Engine) Nearby() []uint8 { return e.nearby.Nearby() }

// BeginAgreement decides whether element id should be seeded locally or
// pulled from the freshest peer in the local group.
func (e *Engine) BeginAgreement(id uint8) {
	local := e.store.Stamp(id)
	peer, rec, best, ok := e.members.Freshest(id)

	if !ok || !best.Newer(local) {
		if local.Initialized() {
			e.metrics.Agreements.WithLabelValues(telemetry.OutcomeCurrent).Inc()
			return
		}
		e.store.SetRound(id, e.cfg.Seed.Round(e.cfg.NodeID, e.rng))
		e.store.AddAgreeingNode(id, e.cfg.NodeID)
		e.metrics.Agreements.WithLabelValues(telemetry.OutcomeSeeded).Inc()
		e.record(id, journal.CauseSeed, 0)
		e.log.Debug("seeded element",
			zap.Uint8("element", id),
			zap.Stringer("stamp", e.store.Stamp(id)),
		)
		return
	}

	e.metrics.Agreements.WithLabelValues(telemetry.OutcomeRequested).Inc()
	e.log.Debug("requesting fresher view",
		zap.Uint8("element", id),
		zap.Uint32("peer", peer),
		zap.Stringer("local", local),
		zap.Stringer("remote", best),
	)
	e.send(rec.Address, &wire.RequestData{Sender: e.cfg.NodeID, Element: id})
}

// ProximityTick recomputes the nearby set and begins agreement on every
// element that just came into range.
func (e *Engine) ProximityTick() {
	x, y := e.pos.Position()
	e.nearby.Tick(element.Point{X: x, Y: y}, e.store.Count(), e.store.Location, e.BeginAgreement)
	e.metrics.Nearby.Set(float64(len(e.nearby.Nearby())))
}

// Advertise broadcasts the stamps of all nearby elements. An empty
// advertisement still goes out and serves as a heartbeat.
func (e *Engine) Advertise() {
	ids := e.nearby.Nearby()
	m := &wire.Advert{
		Sender:  e.cfg.NodeID,
		Address: e.cfg.Address,
		Entries: make([]wire.Entry, 0, len(ids)),
	}
	for _, id := range ids {
		m.Entries = append(m.Entries, wire.Entry{Element: id, Stamp: e.store.Stamp(id)})
	}
	e.broadcast(m)
}

// Prune forgets peers not heard from within the heartbeat timeout.
func (e *Engine) Prune() {
	removed := e.members.Prune(e.now(), e.cfg.HeartbeatTimeout)
	if len(removed) > 0 {
		e.metrics.Pruned.Add(float64(len(removed)))
		e.log.Debug("pruned peers", zap.Uint32s("peers", removed))
	}
	e.metrics.Peers.Set(float64(e.members.Len()))
}

// Receive decodes one inbound datagram and dispatches it. Bad datagrams
// are logged and counted, never returned.
func (e *Engine) Receive(from wire.Addr, payload []byte) {
	m, err := wire.Decode(payload)
	if err != nil {
		e.drop(telemetry.ReasonDecode, zap.Stringer("from", from), zap.Error(err))
		return
	}
	if m.SenderID() == e.cfg.NodeID {
		return
	}
	for _, id := range wire.Elements(m) {
		if !e.store.ValidID(id) {
			e.drop(telemetry.ReasonUnknownElement,
				zap.Stringer("kind", m.Kind()),
				zap.Uint32("peer", m.SenderID()),
				zap.Uint8("element", id),
			)
			return
		}
	}
	e.metrics.Received.WithLabelValues(m.Kind().String()).Inc()
	wire.Dispatch(from, m, e)
}

// HandleAdvert records the peer and begins agreement on every nearby
// element it knows better, once the whole advertisement is applied.
func (e *Engine) HandleAdvert(_ wire.Addr, m *wire.Advert) {
	var marked []uint8
	stamps := make(map[uint8]clock.Stamp, len(m.Entries))
	for _, ent := range m.Entries {
		stamps[ent.Element] = ent.Stamp
		if e.nearby.Contains(ent.Element) && ent.Stamp.Newer(e.store.Stamp(ent.Element)) && !slices.Contains(marked, ent.Element) {
			marked = append(marked, ent.Element)
		}
	}

	e.members.Upsert(m.Sender, m.Address, stamps, e.now())
	e.metrics.Peers.Set(float64(e.members.Len()))
	e.log.Debug("advert",
		zap.Uint32("peer", m.Sender),
		zap.Stringer("addr", m.Address),
		zap.Int("entries", len(m.Entries)),
		zap.Int("fresher", len(marked)),
	)

	for _, id := range marked {
		e.BeginAgreement(id)
	}
}

// HandleRequestData replies to the datagram source with the local view.
func (e *Engine) HandleRequestData(from wire.Addr, m *wire.RequestData) {
	rec := e.store.Get(m.Element)
	e.log.Debug("request data",
		zap.Uint32("peer", m.Sender),
		zap.Uint8("element", m.Element),
	)
	e.send(from, &wire.SendData{
		Sender:  e.cfg.NodeID,
		Element: m.Element,
		X:       float32(rec.Location.X),
		Y:       float32(rec.Location.Y),
		Stamp:   rec.Stamp,
		Group:   rec.Agreeing,
	})
}

// HandleSendData adopts a peer's view of an element and acknowledges it.
// A view older than the local one is dropped so stamps never go backwards.
func (e *Engine) HandleSendData(from wire.Addr, m *wire.SendData) {
	id := m.Element
	local := e.store.Stamp(id)
	if m.Stamp.Compare(local) == clock.Before {
		e.drop(telemetry.ReasonStale,
			zap.Uint32("peer", m.Sender),
			zap.Uint8("element", id),
			zap.Stringer("local", local),
			zap.Stringer("remote", m.Stamp),
		)
		return
	}

	st := m.Stamp
	if !slices.Contains(m.Group, e.cfg.NodeID) {
		st = st.NextRound()
	}
	e.store.SetStamp(id, st)
	group := append(slices.Clone(m.Group), e.cfg.NodeID)
	e.store.ReplaceAgreeingNodes(id, group)
	e.store.SetLocation(id, element.Point{X: float64(m.X), Y: float64(m.Y)})
	e.record(id, journal.CauseSendData, m.Sender)

	e.log.Debug("adopted view",
		zap.Uint32("peer", m.Sender),
		zap.Uint8("element", id),
		zap.Stringer("stamp", st),
	)
	e.send(from, &wire.Ack{Sender: e.cfg.NodeID, Element: id})
}

// HandleAck adds the sender to the agreeing set. A new member advances the
// round; a repeat ACK changes nothing. Once the round is positive the local
// node is always a member, also when the ACK reaches an element that was
// never seeded here.
func (e *Engine) HandleAck(_ wire.Addr, m *wire.Ack) {
	if !e.store.AddAgreeingNode(m.Element, m.Sender) {
		return
	}
	e.store.SetRound(m.Element, clock.Inc(e.store.Stamp(m.Element).Round))
	e.store.AddAgreeingNode(m.Element, e.cfg.NodeID)
	e.record(m.Element, journal.CauseAck, m.Sender)
	e.log.Debug("ack",
		zap.Uint32("peer", m.Sender),
		zap.Uint8("element", m.Element),
		zap.Stringer("stamp", e.store.Stamp(m.Element)),
	)
}

func (e *Engine) send(to wire.Addr, m wire.Message) {
	kind := m.Kind().String()
	if err := e.out.Send(to, wire.Encode(m)); err != nil {
		e.metrics.SendErrors.WithLabelValues(kind).Inc()
		e.log.Warn("send failed", zap.String("kind", kind), zap.Stringer("to", to), zap.Error(err))
		return
	}
	e.metrics.Sent.WithLabelValues(kind).Inc()
}

func (e *Engine) broadcast(m wire.Message) {
	kind := m.Kind().String()
	if err := e.out.Broadcast(wire.Encode(m)); err != nil {
		e.metrics.SendErrors.WithLabelValues(kind).Inc()
		e.log.Warn("broadcast failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	e.metrics.Sent.WithLabelValues(kind).Inc()
}

func (e *Engine) drop(reason string, fields ...zap.Field) {
	e.metrics.Dropped.WithLabelValues(reason).Inc()
	e.log.Warn("dropped message", append([]zap.Field{zap.String("reason", reason)}, fields...)...)
}

func (e *Engine) record(id uint8, cause string, peer uint32) {
	e.metrics.Transitions.WithLabelValues(cause).Inc()
	if e.journal == nil {
		return
	}
	rec := e.store.Get(id)
	e.journal.Record(journal.Event{
		Time:     e.now(),
		Node:     e.cfg.NodeID,
		Element:  id,
		Cause:    cause,
		Peer:     peer,
		Version:  rec.Stamp.Version,
		Round:    rec.Stamp.Round,
		Agreeing: rec.Agreeing,
	})
}
