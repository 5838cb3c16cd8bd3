// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package motesim_main runs the simulator from the command line: it loads a scenario, runs it and
// optionally hands control to the interactive console.
package motesim_main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motesim/motesim/cli"
	"github.com/motesim/motesim/logger"
	"github.com/motesim/motesim/pcap"
	"github.com/motesim/motesim/prng"
	"github.com/motesim/motesim/progctx"
	"github.com/motesim/motesim/simulation"
)

const (
	logFileMaxSizeMb = 50
	logFileBackups   = 5
)

type MainArgs struct {
	Scenario    string
	LogLevel    string
	LogFile     string
	Pcap        string
	Trace       bool
	Kpi         bool
	Seed        int64
	Until       uint64
	Cli         bool
	OutputDir   string
	Id          int
	MetricsAddr string
	History     string
}

var (
	args MainArgs
)

func parseArgs() {
	flag.StringVar(&args.Scenario, "scenario", "", "specify the YAML scenario file. Without it the simulation starts empty.")
	flag.StringVar(&args.LogLevel, "log", "warn", "set logging level: trace, debug, info, note, warn, error, off.")
	flag.StringVar(&args.LogFile, "log-file", "", "also write the log to this file.")
	flag.StringVar(&args.Pcap, "pcap", pcap.FrameTypeOffStr, "PCAP capture of all transmissions: off, raw, meta.")
	flag.BoolVar(&args.Trace, "trace", false, "write the mote trace lines to a rotated file in the output directory")
	flag.BoolVar(&args.Kpi, "kpi", false, "write KPIs to a JSON file in the output directory")
	flag.Int64Var(&args.Seed, "seed", 0, "set the root random seed. 0 uses a time-based seed.")
	flag.Uint64Var(&args.Until, "until", 0, "run the simulation up to this bit tick before the console starts")
	flag.BoolVar(&args.Cli, "cli", true, "start the interactive console")
	flag.StringVar(&args.OutputDir, "out", simulation.DefaultOutputDir, "specify the output directory of pcap, trace and KPI files")
	flag.IntVar(&args.Id, "id", 0, "specify the simulation id, prefix of all output file names")
	flag.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics of the medium on this address, e.g. localhost:9100")

	flag.StringVar(&args.History, "history", "", "keep the console history in this file")

	flag.Parse()
}

func Main(ctx *progctx.ProgCtx, cliOptions *cli.Options) {
	parseArgs()
	level, err := logger.ParseLevelString(args.LogLevel)
	logger.FatalfIfError(err, "invalid -log argument: %v", err)
	logger.SetLevel(level)
	if len(args.LogFile) > 0 {
		err = logger.SetLogFile(args.LogFile, logFileMaxSizeMb, logFileBackups)
		logger.FatalfIfError(err, "invalid -log-file argument: %v", err)
		defer func() {
			_ = logger.Close()
		}()
	}
	prng.Init(args.Seed)

	// closing stdin ends the console loop
	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})

	handleSignals(ctx)

	var reg *prometheus.Registry
	if len(args.MetricsAddr) > 0 {
		reg = prometheus.NewRegistry()
	}
	sim := createSimulation(ctx, reg)
	if reg != nil {
		serveMetrics(ctx, args.MetricsAddr, reg)
	}

	if args.Until > 0 {
		if err := sim.Run(args.Until); err != nil && ctx.Err() == nil {
			logger.Errorf("simulation failed: %+v", err)
			ctx.Cancel(err)
		}
	}

	if args.Cli && ctx.Err() == nil {
		rt := cli.NewCmdRunner(ctx, sim)
		opts := cli.DefaultOptions()
		if cliOptions != nil {
			*opts = *cliOptions
		}
		if len(args.History) > 0 {
			opts.HistoryFile = args.History
		}
		logger.SetStdoutCallback(cli.Cli)
		ctx.Go("cli", func() {
			err := cli.Cli.Run(rt, opts)
			ctx.Cancel(errors.Wrapf(err, "console exit"))
		})
		<-ctx.Done()
	}

	logger.Debugf("waiting for motesim to stop gracefully ...")
	sim.Stop()
	ctx.Cancel("main-exit")
	ctx.Wait()
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func serveMetrics(ctx *progctx.ProgCtx, addr string, gatherer prometheus.Gatherer) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	ctx.Go("metrics", func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnf("metrics server exited: %v", err)
		}
	})
	ctx.Defer(func() {
		_ = srv.Close()
	})
	logger.Infof("serving Prometheus metrics on %s", addr)
}

func createSimulation(ctx *progctx.ProgCtx, reg *prometheus.Registry) *simulation.Simulation {
	simcfg := simulation.DefaultConfig()
	simcfg.Id = args.Id
	simcfg.OutputDir = args.OutputDir
	simcfg.PcapType = pcap.ParseFrameTypeStr(args.Pcap)
	if simcfg.PcapType == pcap.FrameTypeUnknown {
		logger.Fatalf("invalid -pcap argument: %s", args.Pcap)
	}
	simcfg.TraceFile = args.Trace
	simcfg.Kpi = args.Kpi
	if reg != nil {
		simcfg.Metrics = reg
	}

	sc := simulation.DefaultScenario()
	if len(args.Scenario) > 0 {
		var err error
		sc, err = simulation.LoadScenario(args.Scenario)
		logger.FatalfIfError(err, "loading scenario: %v", err)
	}

	sim, err := simulation.New(ctx, simcfg, sc)
	logger.FatalfIfError(err, "creating simulation: %v", err)
	return sim
}
