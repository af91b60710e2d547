// Command localrun boots a single-process sigcollect engine: one node
// hosting every worker, driven to completion in Synchronous mode, the
// way a developer would exercise the engine on a laptop before ever
// touching a multi-node YARN/SSH deployment descriptor.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vertexflow/sigcollect/pkg/config"
	"github.com/vertexflow/sigcollect/pkg/coordinator"
	"github.com/vertexflow/sigcollect/pkg/engine"
	"github.com/vertexflow/sigcollect/pkg/logging"
)

func main() {
	var (
		configPath      = flag.String("config", "", "path to a YAML GraphBuilderConfig/ExecutionConfig file (optional)")
		numberOfWorkers = flag.Int("workers", 4, "number of workers to run in this process")
		demo            = flag.String("demo", "pagerank", "demo graph to load: pagerank, sssp, or none")
		metricsAddr     = flag.String("metrics-addr", ":9090", "address to serve /metrics and /console on, empty disables it")
		jwtSecret       = flag.String("jwt-secret", "", "if set, nodes register through a JWT-provisioned bootstrap (§6)")
	)
	flag.Parse()

	logger := logging.New("localrun", logging.Info, nil)

	graphBuilder := config.DefaultGraphBuilderConfig()
	graphBuilder.NumberOfWorkers = *numberOfWorkers
	graphBuilder.WorkersPerNode = *numberOfWorkers
	graphBuilder.ConsoleEnabled = *metricsAddr != ""
	execution := config.DefaultExecutionConfig()

	if *configPath != "" {
		fileConfig := struct {
			GraphBuilder config.GraphBuilderConfig `yaml:"graphBuilder"`
			Execution    config.ExecutionConfig    `yaml:"execution"`
		}{GraphBuilder: graphBuilder, Execution: execution}
		if err := config.LoadWithEnv(*configPath, "LOCALRUN", &fileConfig); err != nil {
			log.Fatalf("localrun: loading config from %s failed: %v", *configPath, err)
		}
		graphBuilder, execution = fileConfig.GraphBuilder, fileConfig.Execution
	}

	cfg := engine.Config[int, float64]{
		GraphBuilder: graphBuilder,
		Execution:    execution,
		Logger:       logger,
	}
	if *jwtSecret != "" {
		cfg.JWTSecret = []byte(*jwtSecret)
	}

	e, err := engine.New[int, float64](cfg)
	if err != nil {
		log.Fatalf("localrun: building engine failed: %v", err)
	}

	loadDemo(e, *demo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *metricsAddr != "" {
		go serveObservability(e, *metricsAddr, logger)
	}

	e.Start(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	execDone := make(chan struct{})

	var reason coordinator.TerminationReason
	go func() {
		defer close(execDone)
		r, err := e.Execute(ctx, execution.ExecutionMode)
		if err != nil {
			logger.Warn("localrun: execute returned an error: ", err)
			return
		}
		reason = r
	}()

	select {
	case <-execDone:
		logger.Info("localrun: computation finished, reason=", reason)
		printResults(e)
	case <-sigCh:
		logger.Info("localrun: shutdown signal received before convergence")
	}

	if err := e.Shutdown(); err != nil {
		logger.Warn("localrun: shutdown failed: ", err)
	}
}

// serveObservability exposes Prometheus's /metrics and the console
// websocket feed's /console endpoint for as long as the process runs;
// a failure here is logged, not fatal, since it never touches the graph
// computation itself.
func serveObservability(e *engine.Engine[int, float64], addr string, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if e.Hub != nil {
		mux.Handle("/console", e.Hub)
	}
	logger.Info("localrun: serving metrics/console on ", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Warn("localrun: observability server stopped: ", err)
	}
}
