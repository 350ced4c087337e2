package node

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"localgroup/internal/config"
	"localgroup/internal/element"
	"localgroup/internal/engine"
	"localgroup/internal/gossip"
	"localgroup/internal/position"
	"localgroup/internal/transport"
	"localgroup/internal/wire"
)

// ErrStopped is returned by requests made to a node that has stopped.
var ErrStopped = errors.New("node: stopped")

const eventQueueSize = 1024

// Node represents a single node of the local group protocol.
type Node struct {
	id    uint32
	eng   *engine.Engine
	tr    transport.Transport
	sched *gossip.Scheduler
	log   *zap.Logger

	events chan func()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
	stopErr   error
}

// New creates a node from cfg. The element layout is perturbed by the
// configured jitter, deterministically per node ID. Extra engine options
// (metrics, journal, clock) are passed through.
func New(cfg config.Config, tr transport.Transport, pos position.Source, logger *zap.Logger, opts ...engine.Option) *Node {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("node").With(zap.Uint32("node", cfg.NodeID))

	rng := rand.New(rand.NewPCG(uint64(cfg.NodeID), 0x6a))
	store := element.NewStore(element.Perturb(cfg.Elements, cfg.Jitter, rng))

	eng := engine.New(engine.Config{
		NodeID:           cfg.NodeID,
		Address:          tr.LocalAddr(),
		Radius:           cfg.Radius,
		HeartbeatTimeout: cfg.HeartbeatTimeout,
		Seed:             cfg.SeedStrategy(),
	}, store, tr, pos, append([]engine.Option{engine.WithLogger(logger)}, opts...)...)

	sched := gossip.NewScheduler(cfg.AdvertInterval, cfg.PruneInterval)
	ctx, cancel := context.WithCancel(context.Background())

	n := &Node{
		id:     cfg.NodeID,
		eng:    eng,
		tr:     tr,
		sched:  sched,
		log:    logger,
		events: make(chan func(), eventQueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	sched.AddTask(cfg.ProximityInterval, eng.ProximityTick)
	return n
}

// ID returns the node ID.
func (n *Node) ID() uint32 { return n.id }

// Addr returns the node's transport address.
func (n *Node) Addr() wire.Addr { return n.tr.LocalAddr() }

// Start begins processing. The first proximity tick runs immediately.
func (n *Node) Start() {
	n.startOnce.Do(func() {
		n.wg.Add(1)
		go n.run()

		n.submit(n.eng.ProximityTick)
		n.tr.Listen(func(from wire.Addr, payload []byte) {
			n.submit(func() { n.eng.Receive(from, payload) })
		})
		n.sched.Start(n.submit, n.eng.Advertise, n.eng.Prune)
		n.log.Info("started", zap.Stringer("addr", n.tr.LocalAddr()))
	})
}

// Stop stops the timers and the event loop, then closes the transport.
func (n *Node) Stop() error {
	n.stopOnce.Do(func() {
		n.cancel()
		n.sched.Stop()
		n.stopErr = n.tr.Close()
		n.wg.Wait()
		n.log.Info("stopped")
	})
	return n.stopErr
}

// Do runs fn on the node loop and waits for it to finish.
func (n *Node) Do(ctx context.Context, fn func(*engine.Engine)) error {
	done := make(chan struct{})
	task := func() {
		defer close(done)
		fn(n.eng)
	}

	select {
	case n.events <- task:
	case <-n.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-n.ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a consistent copy of the node's protocol state.
func (n *Node) Snapshot(ctx context.Context) (engine.State, error) {
	var s engine.State
	err := n.Do(ctx, func(e *engine.Engine) { s = e.Snapshot() })
	return s, err
}

func (n *Node) submit(fn func()) {
	select {
	case n.events <- fn:
	case <-n.ctx.Done():
	}
}

func (n *Node) run() {
	defer n.wg.Done()
	for {
		select {
		case <-n.ctx.Done():
			return
		case fn := <-n.events:
			fn()
		}
	}
}
