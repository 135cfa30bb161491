// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/gpusampler/lib/clock"
	"github.com/bureau-foundation/gpusampler/lib/config"
	"github.com/bureau-foundation/gpusampler/lib/metrics"
	"github.com/bureau-foundation/gpusampler/lib/runstate"
	"github.com/bureau-foundation/gpusampler/lib/sampledb"
	"github.com/bureau-foundation/gpusampler/lib/schedule"
	"github.com/bureau-foundation/gpusampler/lib/sink"
	"github.com/bureau-foundation/gpusampler/lib/smi"
)

const (
	metricsNamespace = "gpusampler"
	shutdownTimeout  = 5 * time.Second
)

// runSampler discovers devices, opens every sink, and runs the loop
// until interrupted. cfg has been validated. Sinks are closed on every
// return path.
//
// The CSV log is created late: it truncates the previous run's log, so
// every step that can fail on its own (the SQLite mirror, the metrics
// listener) runs before it. The run-state file is written only after
// the log's lock is held.
func runSampler(env *environment, cfg config.Config, logger *slog.Logger) (err error) {
	ctx := env.ctx
	catalog, _ := cfg.SMICatalog()
	compression, _ := cfg.CompressionMode()
	policy, _ := cfg.ErrorPolicy()
	invoker := smi.ExecInvoker{Logger: logger}

	devices, err := smi.Discover(ctx, invoker, cfg.Tool)
	if err != nil {
		return interruptedOr(ctx, logger, fmt.Errorf("listing devices: %w", err))
	}
	for _, device := range devices {
		logger.Info("device found", "index", device.Index, "name", device.Name, "uuid", device.UUID)
	}
	if len(devices) == 0 {
		logger.Warn("device tool listed no devices", "tool", cfg.Tool)
	}

	// Secondary writers are owned here until the fan-out takes them.
	var secondaries []namedWriter
	defer func() {
		for _, secondary := range secondaries {
			if closeErr := secondary.writer.Close(); closeErr != nil {
				err = errors.Join(err, fmt.Errorf("closing %s: %w", secondary.name, closeErr))
			}
		}
	}()

	if cfg.Live {
		secondaries = append(secondaries, namedWriter{"live", sink.NewLiveRenderer(env.stdout, sink.LiveOptions{
			Precision: cfg.Precision,
			Color:     env.color(),
			Width:     env.width,
		})})
	}

	startedAt := time.Now()
	hostname, platform := runstate.DescribeHost(ctx)

	if cfg.SQLite != "" {
		store, err := sampledb.Open(ctx, sampledb.Config{
			Path: cfg.SQLite,
			Run: sampledb.Run{
				StartedAt: startedAt,
				Tool:      cfg.Tool,
				Catalog:   catalog,
				Period:    cfg.Period.Std(),
				Host:      hostname,
			},
			Logger: logger,
		})
		if err != nil {
			return interruptedOr(ctx, logger, err)
		}
		secondaries = append(secondaries, namedWriter{"sqlite", store})
	}

	var observers []schedule.Observer

	// The tracker starts once the log is locked; /status answers 503
	// until then.
	var running atomic.Pointer[runstate.Tracker]
	if cfg.MetricsAddr != "" {
		exporter := metrics.New(metricsNamespace)
		var status metrics.StatusFunc
		if cfg.StatePath() != "" {
			status = func() ([]byte, error) {
				tracker := running.Load()
				if tracker == nil {
					return nil, errors.New("no run state yet")
				}
				return tracker.StatusJSON()
			}
		}
		server, err := metrics.Listen(cfg.MetricsAddr, exporter, status, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if shutdownErr := server.Shutdown(shutdownContext); shutdownErr != nil {
				logger.Warn("metrics server shutdown", "error", shutdownErr)
			}
		}()
		observers = append(observers, exporter)
	}

	if ctx.Err() != nil {
		return interruptedOr(ctx, logger, nil)
	}
	log, err := sink.CreateCSVLog(cfg.Output, catalog, sink.CSVOptions{Compression: compression, Lock: cfg.Lock})
	if err != nil {
		return err
	}
	output := sink.NewFanout(log, logger)
	for _, secondary := range secondaries {
		output.Add(secondary.name, secondary.writer)
	}
	secondaries = nil
	defer func() {
		if closeErr := output.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if tracker := startTracker(cfg, catalog, startedAt, hostname, platform, logger); tracker != nil {
		running.Store(tracker)
		observers = append(observers, tracker)
		defer func() {
			if err != nil {
				tracker.Stop("failed: " + err.Error())
			} else {
				tracker.Stop("interrupted")
			}
		}()
	}

	sampler := smi.NewSampler(invoker, cfg.Tool, smi.NewParser(catalog, cfg.Unavailable...))
	scheduler, err := schedule.New(schedule.Config{
		Period:    cfg.Period.Std(),
		Sampler:   sampler,
		Emitter:   output,
		Policy:    policy,
		Observers: observers,
		Logger:    logger.With("command", sampler.Command().String()),
	})
	if err != nil {
		return err
	}

	if err := scheduler.Run(ctx); err != nil {
		return err
	}
	logger.Info("program interrupted", "cycles", scheduler.Cycles(), "output", cfg.Output, "lines", log.Lines())
	return nil
}

type namedWriter struct {
	name   string
	writer sink.Writer
}

// interruptedOr reports a startup failure, unless an interrupt arrived
// while it was happening: a signal reaches the device tool too, so the
// failure is the interrupt itself and the run ends cleanly.
func interruptedOr(ctx context.Context, logger *slog.Logger, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if err != nil {
		logger.Debug("startup step failed after interrupt", "error", err)
	}
	logger.Info("program interrupted", "cycles", 0)
	return nil
}

// startTracker writes the initial run-state file. The file is advisory:
// when it cannot be written the run continues without it.
func startTracker(cfg config.Config, catalog smi.Catalog, startedAt time.Time, hostname, platform string, logger *slog.Logger) *runstate.Tracker {
	path := cfg.StatePath()
	if path == "" {
		return nil
	}
	tracker, err := runstate.NewTracker(path, runstate.State{
		Tool:        cfg.Tool,
		Catalog:     catalog.Names(),
		Fingerprint: catalog.Fingerprint(),
		Output:      cfg.Output,
		Period:      cfg.Period.Std(),
		PID:         os.Getpid(),
		Host:        hostname,
		Platform:    platform,
		StartedAt:   startedAt,
	}, clock.Real(), logger)
	if err != nil {
		logger.Warn("run state file disabled", "path", path, "error", err)
		return nil
	}
	return tracker
}
