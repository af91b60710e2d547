// Package engine is the graph builder of §6: it takes a
// GraphBuilderConfig/ExecutionConfig pair and wires a Bus, its workers,
// its nodes, and its Coordinator into one running topology, binding the
// ambient observability seams (pkg/metrics, pkg/telemetry,
// pkg/consolefeed) to the worker/node status callbacks along the way.
//
// It runs entirely in one process: every worker and node it builds is
// local. A genuinely distributed deployment instead builds the nodes it
// hosts with New, then swaps the Bus's sinks for the non-local
// worker/node indices with natsbus.Mailbox before calling Start — New
// itself does not reach across a network.
package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vertexflow/sigcollect/pkg/bus"
	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/config"
	"github.com/vertexflow/sigcollect/pkg/consolefeed"
	"github.com/vertexflow/sigcollect/pkg/coordinator"
	"github.com/vertexflow/sigcollect/pkg/editor"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/logging"
	"github.com/vertexflow/sigcollect/pkg/metrics"
	"github.com/vertexflow/sigcollect/pkg/node"
	"github.com/vertexflow/sigcollect/pkg/provisioner"
	"github.com/vertexflow/sigcollect/pkg/status"
	"github.com/vertexflow/sigcollect/pkg/telemetry"
	"github.com/vertexflow/sigcollect/pkg/worker"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Config bundles everything New needs to build an Engine. A GraphBuilder
// with NumberOfWorkers 0 is replaced whole by DefaultGraphBuilderConfig,
// and an all-zero Execution by DefaultExecutionConfig; otherwise both are
// used as given, with no per-field defaulting.
type Config[ID comparable, S any] struct {
	GraphBuilder config.GraphBuilderConfig
	Execution    config.ExecutionConfig

	Logger            logging.Logger
	MetricsRegisterer prometheus.Registerer
	TracerProvider    trace.TracerProvider

	// ConsoleWriter, if non-nil and TracerProvider is nil, opens a
	// stdout-style trace exporter writing to it. Tests leave this nil and
	// inject a TracerProvider of their own instead.
	ConsoleWriter io.Writer

	// JWTSecret, if non-empty, builds a provisioner.LocalProvisioner and
	// New runs every node through IssueToken/Register (§6), setting the
	// nodes-registered gauge once all have registered. Registration does
	// not gate anything: workers are built whether or not it succeeds, and
	// Start does not consult the provisioner.
	JWTSecret []byte

	UndeliverableSignalHandler func(graph.SignalMessage[ID, S])
	GlobalTerminationCondition func() bool
}

// Engine is one running graph: a Bus, every worker/node it owns, the
// Coordinator, and the GraphEditor surface callers drive it through.
type Engine[ID comparable, S any] struct {
	RunID string

	Bus         *bus.Bus[ID, S]
	Workers     []*worker.Worker[ID, S]
	Nodes       []*node.NodeActor
	Coordinator *coordinator.Coordinator[ID, S]
	Editor      *editor.GraphEditor[ID, S]

	Metrics *metrics.Metrics
	Tracer  *telemetry.Tracer
	Feed    *status.Feed
	Hub     *consolefeed.Hub

	logger      logging.Logger
	provisioner *provisioner.LocalProvisioner
	cancel      context.CancelFunc
	pool        concurrency.WorkerPool
}

// New builds a fully wired, single-process Engine in the Paused state:
// no goroutine has been started yet, so it is still safe to seed
// vertices directly via Workers[i].AddVertex before calling Start.
func New[ID comparable, S any](cfg Config[ID, S]) (*Engine[ID, S], error) {
	if cfg.GraphBuilder.NumberOfWorkers == 0 {
		cfg.GraphBuilder = config.DefaultGraphBuilderConfig()
	}
	if err := config.ValidateGraphBuilderConfig(cfg.GraphBuilder); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if cfg.Execution == (config.ExecutionConfig{}) {
		cfg.Execution = config.DefaultExecutionConfig()
	}
	if err := config.ValidateExecutionConfig(cfg.Execution); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("engine", logging.Level(cfg.GraphBuilder.LoggingLevel), nil)
	}

	registerer := cfg.MetricsRegisterer
	if registerer == nil {
		registerer = metrics.DefaultRegisterer
	}

	e := &Engine[ID, S]{
		RunID:   uuid.NewString(),
		logger:  logger,
		Metrics: metrics.New(registerer),
		Feed:    status.NewFeed(),
	}

	provider := cfg.TracerProvider
	if provider == nil && cfg.ConsoleWriter != nil {
		tp, err := telemetry.NewStdoutProvider(cfg.ConsoleWriter, "sigcollect")
		if err != nil {
			return nil, fmt.Errorf("engine: build trace provider: %w", err)
		}
		provider = tp
	}
	e.Tracer = telemetry.NewTracer(provider)

	if len(cfg.JWTSecret) > 0 {
		e.provisioner = provisioner.NewLocal(cfg.JWTSecret, e.numberOfNodesFor(cfg.GraphBuilder))
	}

	e.Bus = bus.New[ID, S](cfg.GraphBuilder.NumberOfWorkers, cfg.GraphBuilder.WorkersPerNode)

	e.Coordinator = coordinator.New[ID, S](coordinator.Config[ID, S]{
		Bus:                        e.Bus,
		NumberOfWorkers:            cfg.GraphBuilder.NumberOfWorkers,
		MailboxCapacity:            cfg.GraphBuilder.MailboxCapacity,
		Logger:                     logger,
		HeartbeatInterval:          cfg.GraphBuilder.HeartbeatInterval,
		StepsLimit:                 int64(cfg.Execution.StepsLimit),
		TimeLimit:                  cfg.Execution.TimeLimit,
		GlobalTerminationCondition: cfg.GlobalTerminationCondition,
	})
	e.Bus.RegisterCoordinator(e.Coordinator.Mailbox())

	numberOfNodes := e.Bus.Mapper().NumberOfNodes()
	e.Nodes = make([]*node.NodeActor, numberOfNodes)
	for i := 0; i < numberOfNodes; i++ {
		idx := i
		e.Nodes[i] = node.New(node.Config{
			Index:           idx,
			WorkerIDs:       workerIDsForNode(idx, cfg.GraphBuilder.WorkersPerNode, cfg.GraphBuilder.NumberOfWorkers),
			MailboxCapacity: cfg.GraphBuilder.MailboxCapacity,
			Logger:          logger,
			Forward: func(st graph.WorkerStatus) error {
				return e.Bus.SendToCoordinator(st)
			},
			StatusPublisher: func(st graph.NodeStatus) {
				e.Feed.Publish("node_status", st)
			},
		})
		e.Bus.RegisterNode(idx, e.Nodes[i].Mailbox())
	}

	e.Workers = make([]*worker.Worker[ID, S], cfg.GraphBuilder.NumberOfWorkers)
	for i := range e.Workers {
		idx := i
		nodeIdx := e.Bus.Mapper().NodeIndex(idx)
		var w *worker.Worker[ID, S]
		w = worker.New[ID, S](worker.Config[ID, S]{
			Index:                           idx,
			Mapper:                          e.Bus.Mapper(),
			Bus:                             e.Bus,
			MailboxCapacity:                 cfg.GraphBuilder.MailboxCapacity,
			SignalThreshold:                 cfg.Execution.SignalThreshold,
			CollectThreshold:                cfg.Execution.CollectThreshold,
			Logger:                          logger,
			UndeliverableSignalHandler:      cfg.UndeliverableSignalHandler,
			ThrottleInboxThresholdPerWorker: cfg.GraphBuilder.ThrottleInboxThresholdPerWorker,
			ThrottleHeartbeatAgeThreshold:   time.Duration(cfg.GraphBuilder.ThrottleWorkerQueueThresholdInMillis) * time.Millisecond,
			StatusPublisher: func(st graph.WorkerStatus) {
				e.Feed.Publish("worker_status", st)
				e.Metrics.Observe(idx, w.Counters(), st.MessagesSent, st.IsIdle, w.IsThrottled())
				if err := e.Bus.SendToNode(nodeIdx, st); err != nil {
					logger.Warn("engine: forwarding worker ", idx, " status to node ", nodeIdx, " failed: ", err)
				}
			},
		})
		e.Workers[i] = w
		e.Bus.RegisterWorker(idx, w.Mailbox())
	}

	e.Editor = editor.New[ID, S](e.Bus, e.Coordinator, cfg.GraphBuilder.NumberOfWorkers)

	if cfg.GraphBuilder.ConsoleEnabled {
		e.Hub = consolefeed.NewHub(e.Feed)
	}

	if e.provisioner != nil {
		e.runBootstrap(numberOfNodes)
	}

	return e, nil
}

func (e *Engine[ID, S]) numberOfNodesFor(cfg config.GraphBuilderConfig) int {
	if cfg.WorkersPerNode <= 0 {
		return 1
	}
	return cfg.NumberOfWorkers / cfg.WorkersPerNode
}

// workerIDsForNode returns the global worker indices hosted by node
// nodeIndex under the fixed workersPerNode partitioning (§4.4).
func workerIDsForNode(nodeIndex, workersPerNode, numberOfWorkers int) []int {
	first := nodeIndex * workersPerNode
	last := first + workersPerNode
	if last > numberOfWorkers {
		last = numberOfWorkers
	}
	ids := make([]int, 0, last-first)
	for i := first; i < last; i++ {
		ids = append(ids, i)
	}
	return ids
}

// Start launches every worker's, every node's, and the coordinator's
// Run loop, plus the coordinator's heartbeat ticker, and calls
// Start() on every worker so it leaves the Paused state (§4.3) and
// begins publishing idle transitions.
//
// Every loop runs as a long-lived Task submitted to a
// concurrency.WorkerPool sized to hold exactly one goroutine per actor,
// rather than as a bare `go actor.Run(ctx)`: it is the same
// goroutine-management seam the teacher hides its verticle deployment
// behind, generalized here to this engine's fixed, known-in-advance set
// of long-running loops instead of a dynamic task queue.
func (e *Engine[ID, S]) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	loopCount := len(e.Nodes) + len(e.Workers) + 2 // + Coordinator.Run + RunHeartbeatLoop
	pool := concurrency.NewWorkerPool(ctx, concurrency.WorkerPoolConfig{
		Workers:   loopCount,
		QueueSize: loopCount,
	})
	e.pool = pool
	if err := pool.Start(); err != nil {
		e.logger.Warn("engine: starting the actor worker pool failed: ", err)
	}

	submitLoop := func(name string, run func(context.Context)) {
		task := concurrency.NewNamedTask(name, func(taskCtx context.Context) error {
			run(taskCtx)
			return nil
		})
		if err := pool.Submit(task); err != nil {
			e.logger.Warn("engine: submitting ", name, " to the worker pool failed: ", err)
		}
	}

	for _, n := range e.Nodes {
		n := n
		submitLoop(fmt.Sprintf("node-%d", n.Index()), n.Run)
	}
	submitLoop("coordinator", e.Coordinator.Run)
	submitLoop("coordinator-heartbeat", e.Coordinator.RunHeartbeatLoop)
	for _, w := range e.Workers {
		w := w
		submitLoop(fmt.Sprintf("worker-%d", w.Index()), w.Run)
	}

	for _, w := range e.Workers {
		if err := w.Start(); err != nil {
			e.logger.Warn("engine: starting worker ", w.Index(), " failed: ", err)
		}
	}
}

// Execute drives the graph computation to completion under mode,
// delegating to the GraphEditor's execution surface (§6).
func (e *Engine[ID, S]) Execute(ctx context.Context, mode config.ExecutionMode) (coordinator.TerminationReason, error) {
	return e.Editor.Execute(ctx, toEditorMode(mode))
}

// Shutdown broadcasts a PoisonPill to every worker (ending their Run
// loops), cancels the context Start used for the node/coordinator/
// heartbeat goroutines, and joins the worker pool those loops ran in.
func (e *Engine[ID, S]) Shutdown() error {
	err := e.Editor.Shutdown()
	if e.cancel != nil {
		e.cancel()
	}
	if e.pool != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if stopErr := e.pool.Stop(stopCtx); stopErr != nil {
			e.logger.Warn("engine: worker pool did not stop cleanly: ", stopErr)
		}
	}
	return err
}

func toEditorMode(m config.ExecutionMode) editor.ExecutionMode {
	switch m {
	case config.OptimizedAsynchronous:
		return editor.OptimizedAsynchronous
	case config.PureAsynchronous:
		return editor.PureAsynchronous
	case config.ContinuousAsynchronous:
		return editor.ContinuousAsynchronous
	case config.Interactive:
		return editor.Interactive
	default:
		return editor.Synchronous
	}
}
