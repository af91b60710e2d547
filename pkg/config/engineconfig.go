package config

import (
	"fmt"
	"math"
	"time"

	"github.com/vertexflow/sigcollect/internal/failfast"
)

// ExecutionMode selects how the Coordinator drives the graph (§6).
type ExecutionMode int

const (
	Synchronous ExecutionMode = iota
	OptimizedAsynchronous
	PureAsynchronous
	ContinuousAsynchronous
	Interactive
)

func (m ExecutionMode) String() string {
	switch m {
	case Synchronous:
		return "Synchronous"
	case OptimizedAsynchronous:
		return "OptimizedAsynchronous"
	case PureAsynchronous:
		return "PureAsynchronous"
	case ContinuousAsynchronous:
		return "ContinuousAsynchronous"
	case Interactive:
		return "Interactive"
	default:
		return fmt.Sprintf("ExecutionMode(%d)", int(m))
	}
}

// ExecutionConfig is the execution configuration of §6.
type ExecutionConfig struct {
	ExecutionMode              ExecutionMode `yaml:"executionMode" json:"executionMode"`
	SignalThreshold            float64       `yaml:"signalThreshold" json:"signalThreshold"`
	CollectThreshold           float64       `yaml:"collectThreshold" json:"collectThreshold"`
	TimeLimit                  time.Duration `yaml:"timeLimit" json:"timeLimit"`
	StepsLimit                 int           `yaml:"stepsLimit" json:"stepsLimit"`
	HasGlobalTerminationCheck  bool          `yaml:"-" json:"-"`
}

// DefaultExecutionConfig returns the defaults named in §6:
// signalThreshold=0.001, collectThreshold=0.0, Synchronous mode, no limits.
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		ExecutionMode:     Synchronous,
		SignalThreshold:   0.001,
		CollectThreshold:  0.0,
		TimeLimit:         0,
		StepsLimit:        0,
	}
}

// ValidateExecutionConfig rejects configuration errors at build time (§7),
// routed through the RangeValidator/OneOfValidator combinators rather
// than a hand-rolled if/fmt.Errorf chain.
func ValidateExecutionConfig(c ExecutionConfig) error {
	return Validate(c,
		OneOfValidator("ExecutionMode", Synchronous, OptimizedAsynchronous, PureAsynchronous, ContinuousAsynchronous, Interactive),
		RangeValidator("SignalThreshold", 0, math.MaxFloat64),
		RangeValidator("CollectThreshold", 0, math.MaxFloat64),
		RangeValidator("TimeLimit", 0, math.MaxFloat64),
		RangeValidator("StepsLimit", 0, math.MaxFloat64),
	)
}

// GraphBuilderConfig is the builder configuration of §6.
//
// StatusUpdateInterval is loaded and carried but not read by any
// component: workers publish their status on every idle-state change
// whatever its value, and zero does not disable status messages.
type GraphBuilderConfig struct {
	NumberOfWorkers                          int           `yaml:"numberOfWorkers" json:"numberOfWorkers"`
	WorkersPerNode                           int           `yaml:"workersPerNode" json:"workersPerNode"`
	ConsoleEnabled                           bool          `yaml:"consoleEnabled" json:"consoleEnabled"`
	LoggingLevel                             int           `yaml:"loggingLevel" json:"loggingLevel"`
	StatusUpdateInterval                     time.Duration `yaml:"statusUpdateIntervalInMillis" json:"statusUpdateIntervalInMillis"`
	HeartbeatInterval                        time.Duration `yaml:"heartbeatInterval" json:"heartbeatInterval"`
	ThrottleInboxThresholdPerWorker           int           `yaml:"throttleInboxThresholdPerWorker" json:"throttleInboxThresholdPerWorker"`
	ThrottleWorkerQueueThresholdInMillis      int64         `yaml:"throttleWorkerQueueThresholdInMilliseconds" json:"throttleWorkerQueueThresholdInMilliseconds"`
	MailboxCapacity                          int           `yaml:"mailboxCapacity" json:"mailboxCapacity"`
}

// DefaultGraphBuilderConfig returns conservative single-node defaults.
func DefaultGraphBuilderConfig() GraphBuilderConfig {
	return GraphBuilderConfig{
		NumberOfWorkers:                     4,
		WorkersPerNode:                      4,
		ConsoleEnabled:                      false,
		LoggingLevel:                        200, // Info
		StatusUpdateInterval:                0,   // not read by any component
		HeartbeatInterval:                   200 * time.Millisecond,
		ThrottleInboxThresholdPerWorker:      0, // 0 disables throttling
		ThrottleWorkerQueueThresholdInMillis: 0,
		MailboxCapacity:                     4096,
	}
}

// divisibleWorkerSplit is the one check RangeValidator/OneOfValidator
// can't express on their own: it relates two fields instead of bounding
// one, so it stays a small hand-written Validator composed alongside
// the combinators rather than a second validation pass.
func divisibleWorkerSplit(config interface{}) error {
	c := config.(GraphBuilderConfig)
	if c.NumberOfWorkers%c.WorkersPerNode != 0 {
		return fmt.Errorf("numberOfWorkers (%d) must be a multiple of workersPerNode (%d)", c.NumberOfWorkers, c.WorkersPerNode)
	}
	return nil
}

// ValidateGraphBuilderConfig rejects configuration errors at build time
// (§7): numberOfWorkers = 0 must be rejected. Routed through the
// RangeValidator combinator plus the divisibleWorkerSplit checker, which
// run in order and stop at the first failure, so the positivity checks
// land before divisibleWorkerSplit ever risks a division by zero.
func ValidateGraphBuilderConfig(c GraphBuilderConfig) error {
	return Validate(c,
		RangeValidator("NumberOfWorkers", 1, math.MaxFloat64),
		RangeValidator("WorkersPerNode", 1, math.MaxFloat64),
		ValidatorFunc(divisibleWorkerSplit),
		RangeValidator("MailboxCapacity", 1, math.MaxFloat64),
	)
}

// MustValidateGraphBuilderConfig panics (fail-fast, per the teacher's
// failfast convention) on an invalid configuration. Used at graph-build
// time, never once the graph is running.
func MustValidateGraphBuilderConfig(c GraphBuilderConfig) {
	failfast.Err(ValidateGraphBuilderConfig(c))
}

// DeploymentDescriptor is the deployment descriptor of §6.
type DeploymentDescriptor struct {
	Algorithm            string            `yaml:"algorithm" json:"algorithm"`
	AlgorithmParameters   map[string]string `yaml:"algorithmParameters" json:"algorithmParameters"`
	MemoryPerNode        int               `yaml:"memoryPerNode" json:"memoryPerNode"`
	NumberOfNodes        int               `yaml:"numberOfNodes" json:"numberOfNodes"`
	CopyFiles            []string          `yaml:"copyFiles" json:"copyFiles"`
	ClusterType          string            `yaml:"clusterType" json:"clusterType"`
}

// DefaultDeploymentDescriptor applies the §6 defaults: memoryPerNode=512,
// numberOfNodes=1, clusterType="yarn".
func DefaultDeploymentDescriptor(algorithm string) DeploymentDescriptor {
	return DeploymentDescriptor{
		Algorithm:           algorithm,
		AlgorithmParameters: map[string]string{},
		MemoryPerNode:       512,
		NumberOfNodes:       1,
		ClusterType:         "yarn",
	}
}

// ValidateDeploymentDescriptor rejects configuration errors at build time
// (§7): Algorithm is required, and ClusterType must name a deployment
// target the provisioner actually understands. Routed through the
// RequiredFields/OneOfValidator combinators rather than a hand-rolled
// if/fmt.Errorf chain.
func ValidateDeploymentDescriptor(c DeploymentDescriptor) error {
	return Validate(c,
		RequiredFields("Algorithm"),
		OneOfValidator("ClusterType", "yarn", "local", "ssh"),
		RangeValidator("NumberOfNodes", 1, math.MaxFloat64),
	)
}
