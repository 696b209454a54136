// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/perfrun/perfrun/internal/config"
	"github.com/perfrun/perfrun/internal/exporter/stdout"
	"github.com/perfrun/perfrun/internal/hostinfo"
	"github.com/perfrun/perfrun/internal/logger"
	"github.com/perfrun/perfrun/internal/perf"
	"github.com/perfrun/perfrun/internal/runner"
	"github.com/perfrun/perfrun/internal/version"
)

const (
	exitUsage     = 2
	exitTimeout   = 124 // same convention as timeout(1)
	exitInternal  = 125
	exitInterrupt = 130
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	cfg, command, err := parseArgsAndConfig()
	if err != nil {
		return exitUsage
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	logVersionInfo(log)
	log.Debug("configuration", "config", cfg.String())

	preflight(log)

	req, err := buildRequest(cfg, command)
	if err != nil {
		log.Error("invalid request", "error", err)
		return exitUsage
	}

	r := runner.New(runner.WithLogger(log))

	var execution *runner.Execution
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g run.Group
	g.Add(
		func() error {
			var runErr error
			execution, runErr = r.Run(ctx, req)
			return runErr
		},
		func(error) {
			cancel()
		},
	)
	g.Add(waitForInterrupt(ctx, log, os.Interrupt))

	if err := g.Run(); err != nil {
		return reportFailure(log, err)
	}

	// Replay the child's captured streams, then our own summary on stderr so
	// the child's stdout stays clean for pipelines.
	_, _ = os.Stdout.Write(execution.Stdout)
	_, _ = os.Stderr.Write(execution.Stderr)
	if cfg.Output.Format == "table" {
		stdout.Write(os.Stderr, execution)
	}

	return exitCode(execution.Status)
}

func parseArgsAndConfig() (*config.Config, []string, error) {
	const appName = "perfrun"
	app := kingpin.New(appName, "Runs a command under Linux performance counters and reports its exit status, captured output and final counter values.")
	app.Interspersed(false)

	configFile := app.Flag("config.file", "Path to YAML configuration file").String()
	updateConfig := config.RegisterFlags(app)
	command := app.Arg("command", "Command to run and measure").Required().Strings()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log := logger.New("info", "text", os.Stderr)
	cfg := config.DefaultConfig()
	if *configFile != "" {
		loadedCfg, err := config.FromFile(*configFile)
		if err != nil {
			log.Error("Error loading config file", "path", *configFile, "error", err.Error())
			return nil, nil, err
		}
		cfg = loadedCfg
	}

	// Apply command line flags (these override config file settings)
	if err := updateConfig(cfg); err != nil {
		log.Error("Error applying command line flags", "error", err.Error())
		return nil, nil, err
	}

	return cfg, *command, nil
}

func buildRequest(cfg *config.Config, command []string) (runner.Request, error) {
	events, err := cfg.Events()
	if err != nil {
		return runner.Request{}, err
	}
	attrs := make([]perf.Attr, 0, len(events))
	for _, ev := range events {
		attrs = append(attrs, perf.NewAttr(ev))
	}

	timeout, err := cfg.Timeout()
	if err != nil {
		return runner.Request{}, err
	}

	return runner.Request{
		Command: command,
		Attrs:   attrs,
		Timeout: timeout,
	}, nil
}

func preflight(log *slog.Logger) {
	reader, err := hostinfo.NewReader("/proc", log)
	if err != nil {
		log.Debug("host preflight skipped", "error", err)
		return
	}
	info, err := reader.Read()
	if err != nil {
		log.Debug("host preflight skipped", "error", err)
		return
	}
	info.LogPreflight(log)
}

func reportFailure(log *slog.Logger, err error) int {
	var timeoutErr *runner.TimeoutError
	if errors.As(err, &timeoutErr) {
		// The runner only reports; killing the abandoned child is on us.
		if proc, findErr := os.FindProcess(timeoutErr.Pid); findErr == nil {
			_ = proc.Kill()
		}
		log.Error("run timed out", "pid", timeoutErr.Pid, "timeout", timeoutErr.Timeout)
		return exitTimeout
	}
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted")
		return exitInterrupt
	}
	log.Error("run failed", "error", err)
	return exitInternal
}

// exitCode mirrors the child's fate the way a shell would.
func exitCode(status runner.Status) int {
	if status.State == runner.Signaled {
		return 128 + int(status.Signal)
	}
	return status.ExitCode
}

func logVersionInfo(log *slog.Logger) {
	v := version.Info()
	log.Debug("perfrun version information",
		"version", v.Version,
		"buildTime", v.BuildTime,
		"gitCommit", v.GitCommit,
		"goVersion", v.GoVersion,
		"goOS", v.GoOS,
		"goArch", v.GoArch,
	)
}

func waitForInterrupt(ctx context.Context, log *slog.Logger, signals ...os.Signal) (func() error, func(error)) {
	ctxInternal, cancel := context.WithCancel(ctx)
	return func() error {
			c := make(chan os.Signal, 1)
			signal.Notify(c, signals...)
			select {
			case sig := <-c:
				log.Info("caught signal, cancelling run", "signal", sig)
				return context.Canceled
			case <-ctx.Done():
				return ctx.Err()
			case <-ctxInternal.Done():
				return nil
			}
		}, func(error) {
			cancel()
		}
}
