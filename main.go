// Package main provides a tone synthesis daemon that plays one harmonically
// enriched tone for every hardware signal that is currently on.
//
// Usage:
//
//	signaltone [-config path/to/synth.toml] [-events N]
//
// If -config is not specified, signaltone looks for synth.toml in the same
// directory as the binary.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/oszuidwest/signaltone/internal/audio/output"
	"github.com/oszuidwest/signaltone/internal/config"
	"github.com/oszuidwest/signaltone/internal/engine"
	"github.com/oszuidwest/signaltone/internal/eventlog"
	"github.com/oszuidwest/signaltone/internal/evdev"
	"github.com/oszuidwest/signaltone/internal/producer"
	"github.com/oszuidwest/signaltone/internal/signals"
	"github.com/oszuidwest/signaltone/internal/tone"
	"github.com/oszuidwest/signaltone/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: synth.toml next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	showEvents := flag.Int("events", 0, "Print the last N entries of the event log and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		path, err := config.DefaultPath()
		if err != nil {
			slog.Error("failed to resolve config path", "error", err)
			os.Exit(1)
		}
		*configPath = path
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(cfg.Log.Handler(os.Stderr)))
	slog.Info("using config file", "path", *configPath, "tones", len(cfg.Keys()))

	if *showEvents > 0 {
		if err := printEvents(os.Stdout, cfg.EventLog, *showEvents); err != nil {
			slog.Error("failed to read event log", "path", cfg.EventLog, "error", err)
			os.Exit(1)
		}
		return
	}

	bank, err := tone.NewBank(cfg.Keys(), float64(cfg.Audio.SampleRate), tone.PianoTimbre)
	if err != nil {
		slog.Error("failed to build oscillator bank", "error", err)
		os.Exit(1)
	}
	active := signals.NewActiveSet()
	meter := &levelMeter{}
	eng := engine.New(bank, active, meter.update)

	opts := cfg.AudioOptions()
	out, err := output.Open(opts)
	if err != nil {
		slog.Error("failed to open audio output", "backend", opts.Backend, "device", opts.Device, "error", err)
		os.Exit(1)
	}
	if err := out.Start(eng); err != nil {
		slog.Error("failed to start audio output", "backend", opts.Backend, "error", err)
		_ = out.Close()
		os.Exit(1)
	}
	slog.Info("audio output started",
		"backend", opts.Backend, "sample_rate", opts.SampleRate, "buffer_size", opts.BufferSize, "tones", bank.Len(),
		"timbre", tone.PianoTimbre.Name(), "harmonics", tone.PianoTimbre.Harmonics())

	deps := producer.Deps{
		Active: active,
		Finder: producer.EvdevFinder(evdev.NewFinder()),
		Listen: producer.UeventListener(),
	}
	var eventLog *eventlog.Logger
	if cfg.EventLog != "" {
		eventLog, err = eventlog.NewLogger(cfg.EventLog)
		if err != nil {
			slog.Warn("failed to open event log, continuing without it", "path", cfg.EventLog, "error", err)
		} else {
			deps.Events = eventLog
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), util.ShutdownSignals()...)
	defer stop()

	sup := producer.NewSupervisor(producer.FromConfig(cfg, deps)...)
	if err := sup.Start(ctx); err != nil {
		slog.Error("failed to start producers", "error", err)
	}
	go reportStatus(ctx, sup, meter, statusInterval)

	<-ctx.Done()
	slog.Info("shutting down")

	sup.Stop()

	var errs []error
	if err := out.Close(); err != nil {
		errs = append(errs, util.WrapError("close audio output", err))
	}
	if eventLog != nil {
		if err := eventLog.Close(); err != nil {
			errs = append(errs, util.WrapError("close event log", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("error during shutdown", "error", err)
	}

	slog.Info("shutdown complete")
}
