// Package coordinator implements the Coordinator of §4.5: the single
// process-wide actor that tracks every worker's last-known status,
// broadcasts heartbeats for throttling (§4.6), drives the synchronous
// signal/collect protocol, and decides when and why the computation has
// terminated.
package coordinator

import (
	"time"

	"github.com/vertexflow/sigcollect/internal/failfast"
	"github.com/vertexflow/sigcollect/pkg/bus"
	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/logging"
)

// TerminationReason enumerates why RunSynchronous or an asynchronous
// OnIdle-triggered stop returned (§4.5).
type TerminationReason string

const (
	Converged           TerminationReason = "Converged"
	TimeLimitReached    TerminationReason = "TimeLimitReached"
	GlobalConstraintMet TerminationReason = "GlobalConstraintMet"
	Paused              TerminationReason = "Paused"
	Error               TerminationReason = "Error"
)

// Command is a function evaluated against a Coordinator by a
// graph.Request, mirroring worker.Command and node.Command.
type Command[ID comparable, S any] func(c *Coordinator[ID, S]) any

// Coordinator owns workerStatus[numberOfWorkers], the heartbeat clock,
// and the termination policy. Like Worker and NodeActor, every field
// below is touched only from the coordinator's own Run loop (§5).
type Coordinator[ID comparable, S any] struct {
	bus             *bus.Bus[ID, S]
	numberOfWorkers int
	mailbox         concurrency.Mailbox
	logger          logging.Logger

	workerStatus []graph.WorkerStatus
	haveStatus   []bool
	onIdleList   []func()

	heartbeatInterval           time.Duration
	stepsLimit                  int64
	timeLimit                   time.Duration
	globalTerminationCondition  func() bool
	steps                       int64
	startedAt                   time.Time
}

// Config bundles a Coordinator's construction parameters, fed by the
// ExecutionConfig of §6.
type Config[ID comparable, S any] struct {
	Bus                        *bus.Bus[ID, S]
	NumberOfWorkers            int
	MailboxCapacity            int
	Logger                     logging.Logger
	HeartbeatInterval          time.Duration
	StepsLimit                 int64
	TimeLimit                  time.Duration
	GlobalTerminationCondition func() bool
}

// DefaultHeartbeatInterval is the nanosecond-clock broadcast period of §4.5.
const DefaultHeartbeatInterval = 200 * time.Millisecond

// New builds a Coordinator with an empty (all-null) workerStatus table.
func New[ID comparable, S any](cfg Config[ID, S]) *Coordinator[ID, S] {
	failfast.NotNil(cfg.Bus, "cfg.Bus")
	failfast.If(cfg.NumberOfWorkers > 0, "cfg.NumberOfWorkers must be positive")
	if cfg.MailboxCapacity <= 0 {
		cfg.MailboxCapacity = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewDefaultLogger()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Coordinator[ID, S]{
		bus:                        cfg.Bus,
		numberOfWorkers:            cfg.NumberOfWorkers,
		mailbox:                    concurrency.NewBoundedMailbox(cfg.MailboxCapacity),
		logger:                     cfg.Logger,
		workerStatus:               make([]graph.WorkerStatus, cfg.NumberOfWorkers),
		haveStatus:                 make([]bool, cfg.NumberOfWorkers),
		heartbeatInterval:          cfg.HeartbeatInterval,
		stepsLimit:                 cfg.StepsLimit,
		timeLimit:                  cfg.TimeLimit,
		globalTerminationCondition: cfg.GlobalTerminationCondition,
	}
}

// Mailbox exposes the coordinator's inbound mailbox so the bus can be
// registered against it.
func (c *Coordinator[ID, S]) Mailbox() concurrency.Mailbox { return c.mailbox }

// OnWorkerStatus updates workerStatus[status.WorkerID] only if the
// incoming status is strictly newer (§4.5 "update the entry only if the
// incoming status is newer"), then runs and clears the onIdleList
// callbacks if the system is now globally idle.
func (c *Coordinator[ID, S]) OnWorkerStatus(status graph.WorkerStatus) {
	idx := status.WorkerID
	if idx < 0 || idx >= c.numberOfWorkers {
		c.logger.Warn("coordinator received status for out-of-range worker ", idx)
		return
	}
	if c.haveStatus[idx] && status.TotalSent() <= c.workerStatus[idx].TotalSent() {
		return
	}
	c.workerStatus[idx] = status
	c.haveStatus[idx] = true

	if c.isIdle() {
		c.runOnIdleList()
	}
}

// OnIdle registers action to run the first time the system is detected
// globally idle (§4.5 asynchronous mode). If the system is already idle
// when OnIdle is called, action runs immediately.
func (c *Coordinator[ID, S]) OnIdle(action func()) {
	if c.isIdle() {
		action()
		return
	}
	c.onIdleList = append(c.onIdleList, action)
}

func (c *Coordinator[ID, S]) runOnIdleList() {
	callbacks := c.onIdleList
	c.onIdleList = nil
	for _, cb := range callbacks {
		cb()
	}
}

// messagesSentByWorkers implements §4.5's global accounting formula: the
// sum of every worker's reported sent count. Node/worker registration in
// this implementation (engine.runBootstrap, bus.RegisterWorker) wires
// mailboxes directly rather than pushing any message through them, so
// unlike a deployment where registration travels over the bus, there is
// no bootstrap fanout to add here — adding one would count messages that
// were never sent, making sent permanently exceed received and isIdle
// permanently false.
func (c *Coordinator[ID, S]) messagesSentByWorkers() int64 {
	var sum int64
	for _, st := range c.workerStatus {
		sum += st.MessagesSent
	}
	return sum
}

func (c *Coordinator[ID, S]) messagesReceivedByWorkers() int64 {
	var sum int64
	for _, st := range c.workerStatus {
		sum += st.MessagesReceived
	}
	return sum
}

// globalInboxSize is the in-flight message count carried on every
// Heartbeat payload (§4.5 "totalMessagesSent - totalMessagesReceived").
func (c *Coordinator[ID, S]) globalInboxSize() int64 {
	return c.messagesSentByWorkers() - c.messagesReceivedByWorkers()
}

// isIdle implements §4.5's idleness predicate: every worker has reported
// a non-null, idle status, and the global send/receive counts agree.
func (c *Coordinator[ID, S]) isIdle() bool {
	for i, have := range c.haveStatus {
		if !have || !c.workerStatus[i].IsIdle {
			return false
		}
	}
	return c.messagesSentByWorkers() == c.messagesReceivedByWorkers()
}
