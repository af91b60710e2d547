// Package worker implements the Worker actor of §4.3: the single-threaded
// owner of one vertex shard, its mailbox loop, its signal/collect
// execution, and the {Paused, Running, Converged, Idle} state machine
// that governs it.
package worker

import (
	"context"
	"time"

	"github.com/vertexflow/sigcollect/internal/failfast"
	"github.com/vertexflow/sigcollect/pkg/bus"
	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/fsm"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/logging"
	"github.com/vertexflow/sigcollect/pkg/store"
	"github.com/vertexflow/sigcollect/pkg/throttle"
)

// Command is a function evaluated against a Worker by a graph.Request
// (§3: Request(cmd, reply)). Coordinator and peer workers build these
// closures; the worker itself never needs to know their origin.
type Command[ID comparable, S any] func(w *Worker[ID, S]) any

const (
	StatePaused    fsm.State = "Paused"
	StateRunning   fsm.State = "Running"
	StateConverged fsm.State = "Converged"
	StateIdle      fsm.State = "Idle"
)

const (
	eventStart    fsm.Event = "Start"
	eventPause    fsm.Event = "Pause"
	eventConverge fsm.Event = "Converge"
	eventGoIdle   fsm.Event = "GoIdle"
	eventWake     fsm.Event = "Wake"
)

// DefaultReceptionIdleTimeout is the bounded short interval the mailbox
// loop waits for a new message before checking convergence (§4.3).
const DefaultReceptionIdleTimeout = 5 * time.Millisecond

// incomingEdgeVertex is the optional capability (§9 "capability set with
// tagged variants") a Vertex implementation may satisfy to keep reverse
// edges for algorithms that need incoming-edge traversal. Vertex types
// that don't need it simply don't implement it; addIncomingEdge/
// removeIncomingEdge requests against them are silently no-ops.
type incomingEdgeVertex[ID comparable] interface {
	AddIncomingEdge(e graph.Edge[ID])
	RemoveIncomingEdge(sourceID ID)
}

// Worker owns a shard of the graph's vertices. Every field below is
// touched only from the worker's own Run loop — no locks, per §5.
type Worker[ID comparable, S any] struct {
	index   int
	mapper  bus.Mapper[ID]
	store   *store.VertexStore[ID, S]
	msgbus  *bus.Bus[ID, S]
	mailbox concurrency.Mailbox
	machine *fsm.StateMachine
	logger  logging.Logger

	counters graph.Counters

	signalThreshold      float64
	collectThreshold     float64
	receptionIdleTimeout time.Duration

	messagesSent int64
	throttled    bool
	gate         *throttle.Gate
	lastHeartbeatAt time.Time

	pendingStart bool
	pendingPause bool

	undeliverableSignalHandler func(graph.SignalMessage[ID, S])

	statusPublisher func(graph.WorkerStatus)
}

// Config bundles the construction parameters a graph builder supplies
// per worker (§6 GraphBuilderConfig/ExecutionConfig feed these).
type Config[ID comparable, S any] struct {
	Index                int
	Mapper               bus.Mapper[ID]
	Bus                  *bus.Bus[ID, S]
	MailboxCapacity      int
	SignalThreshold      float64
	CollectThreshold     float64
	ReceptionIdleTimeout time.Duration
	Logger               logging.Logger
	UndeliverableSignalHandler func(graph.SignalMessage[ID, S])
	StatusPublisher      func(graph.WorkerStatus)

	// ThrottleInboxThresholdPerWorker and ThrottleHeartbeatAgeThreshold
	// configure this worker's back-pressure gate (§4.6). Zero disables
	// the corresponding half of the check, matching
	// config.GraphBuilderConfig's defaults.
	ThrottleInboxThresholdPerWorker int
	ThrottleHeartbeatAgeThreshold   time.Duration
}

// New builds a Worker in the Paused state with an empty shard.
func New[ID comparable, S any](cfg Config[ID, S]) *Worker[ID, S] {
	failfast.NotNil(cfg.Bus, "cfg.Bus")
	if cfg.MailboxCapacity <= 0 {
		cfg.MailboxCapacity = 4096
	}
	if cfg.ReceptionIdleTimeout <= 0 {
		cfg.ReceptionIdleTimeout = DefaultReceptionIdleTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefaultLogger()
	}

	w := &Worker[ID, S]{
		index:                      cfg.Index,
		mapper:                     cfg.Mapper,
		store:                      store.New[ID, S](),
		msgbus:                     cfg.Bus,
		mailbox:                    concurrency.NewBoundedMailbox(cfg.MailboxCapacity),
		logger:                     cfg.Logger,
		signalThreshold:            cfg.SignalThreshold,
		collectThreshold:           cfg.CollectThreshold,
		receptionIdleTimeout:       cfg.ReceptionIdleTimeout,
		undeliverableSignalHandler: cfg.UndeliverableSignalHandler,
		statusPublisher:            cfg.StatusPublisher,
		gate: throttle.New(
			numberOfWorkersFor(cfg.Mapper),
			cfg.ThrottleInboxThresholdPerWorker,
			cfg.ThrottleHeartbeatAgeThreshold,
		),
	}
	w.machine = newWorkerFSM()
	return w
}

func numberOfWorkersFor[ID comparable](mapper bus.Mapper[ID]) int {
	if n := mapper.NumberOfWorkers(); n > 0 {
		return n
	}
	return 1
}

func newWorkerFSM() *fsm.StateMachine {
	sm := fsm.New("worker", StatePaused)
	sm.Configure(StatePaused).
		Permit(eventStart, StateRunning)
	sm.Configure(StateRunning).
		Permit(eventConverge, StateConverged).
		Permit(eventGoIdle, StateIdle).
		Permit(eventPause, StatePaused)
	sm.Configure(StateConverged).
		Permit(eventGoIdle, StateIdle).
		Permit(eventPause, StatePaused).
		Permit(eventWake, StateRunning)
	sm.Configure(StateIdle).
		Permit(eventWake, StateRunning)
	return sm
}

// Mailbox exposes the worker's inbound mailbox so the bus can be
// registered against it.
func (w *Worker[ID, S]) Mailbox() concurrency.Mailbox { return w.mailbox }

// Index is this worker's position in the global worker array (§3).
func (w *Worker[ID, S]) Index() int { return w.index }

// CurrentState returns the worker's state-machine state.
func (w *Worker[ID, S]) CurrentState() fsm.State { return w.machine.CurrentState() }

// IsIdle reports whether the worker is in the Idle state.
func (w *Worker[ID, S]) IsIdle() bool { return w.machine.CurrentState() == StateIdle }

// IsPaused reports whether the worker is in the Paused state.
func (w *Worker[ID, S]) IsPaused() bool { return w.machine.CurrentState() == StatePaused }

// Counters returns a copy of the worker's per-worker counters (§3).
func (w *Worker[ID, S]) Counters() graph.Counters { return w.counters }

// Status builds the WorkerStatus snapshot (§3, §4.4). It is published
// each time the worker's idle state changes; heartbeats do not publish it.
func (w *Worker[ID, S]) Status() graph.WorkerStatus {
	return graph.WorkerStatus{
		WorkerID:         w.index,
		IsIdle:           w.IsIdle(),
		IsPaused:         w.IsPaused(),
		MessagesSent:     w.messagesSent,
		MessagesReceived: w.counters.MessagesReceived,
	}
}

// Start fires the explicit start command (Paused -> Running).
func (w *Worker[ID, S]) Start() error {
	wasIdle := w.IsIdle()
	if _, err := w.machine.Fire(context.Background(), eventStart, nil); err != nil {
		return err
	}
	w.publishStatusIfIdleChanged(wasIdle)
	return nil
}

// RequestPause records a pause request, applied at the next
// handlePauseAndContinue call (§4.3 mailbox loop semantics).
func (w *Worker[ID, S]) RequestPause() {
	w.pendingPause = true
}

// RequestContinue records a start/continue request, applied at the next
// handlePauseAndContinue call.
func (w *Worker[ID, S]) RequestContinue() {
	w.pendingStart = true
}

func (w *Worker[ID, S]) publishStatusIfIdleChanged(wasIdle bool) {
	if w.statusPublisher != nil && wasIdle != w.IsIdle() {
		w.statusPublisher(w.Status())
	}
}
