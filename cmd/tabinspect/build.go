package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/datasmiths/tabinspect/internal/config"
	"github.com/datasmiths/tabinspect/internal/suppress"
	"github.com/datasmiths/tabinspect/pkg/check"
	"github.com/datasmiths/tabinspect/pkg/dataset"
	"github.com/datasmiths/tabinspect/pkg/inspect"
	"github.com/datasmiths/tabinspect/pkg/sample"
	"github.com/datasmiths/tabinspect/pkg/sink"
	"github.com/datasmiths/tabinspect/pkg/sink/chat"
)

// buildSinks assembles the configured report sinks, in delivery order. The
// suppression store is only opened when the chat sink has a cooldown; the
// returned store is nil otherwise. On error every sink built so far is closed.
func buildSinks(cfg *config.Config) ([]sink.Sink, suppress.Store, error) {
	var sinks []sink.Sink

	if cfg.Sinks.Console.Enabled {
		sinks = append(sinks, sink.NewConsole(nil))
	}

	if p := cfg.Sinks.LogFile.Path; p != "" {
		lf, err := sink.NewLogFile(p)
		if err != nil {
			closeAll(sinks)
			return nil, nil, err
		}
		sinks = append(sinks, lf)
	}

	if p := cfg.Sinks.SampleDir.Path; p != "" {
		sd, err := sink.NewSampleDir(p)
		if err != nil {
			closeAll(sinks)
			return nil, nil, err
		}
		sinks = append(sinks, sd)
	}

	var store suppress.Store
	if cfg.ChatEnabled() {
		client := chat.NewClient(chat.ClientConfig{
			WebhookURL:   cfg.Sinks.Chat.WebhookURL,
			Channel:      cfg.Sinks.Chat.Channel,
			NotifyOnPass: cfg.Sinks.Chat.NotifyOnPass,
			RatePerMin:   cfg.Sinks.Chat.RatePerMin,
		})

		var chatSink sink.Sink = client
		if cfg.Sinks.Chat.Cooldown > 0 {
			st, err := openStore(cfg)
			if err != nil {
				closeAll(sinks)
				return nil, nil, err
			}
			store = st
			chatSink = sink.WithCooldown(client, st)
		}
		sinks = append(sinks, chatSink)
	}

	return sinks, store, nil
}

func openStore(cfg *config.Config) (suppress.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	return suppress.Open(filepath.Join(cfg.DataDir, "suppress.db"), cfg.Sinks.Chat.Cooldown)
}

// buildInspectors constructs one inspector per configured entry, wiring the
// shared sampling policy and the sink list into each.
func buildInspectors(cfg *config.Config, sinks []sink.Sink) ([]*inspect.Inspector, error) {
	strategy, err := sample.ParseStrategy(cfg.Sample.Strategy)
	if err != nil {
		return nil, err
	}

	var sampleOpts []sample.Option
	if cfg.Sample.Seed != 0 {
		sampleOpts = append(sampleOpts, sample.WithSeed(cfg.Sample.Seed))
	}

	inspectors := make([]*inspect.Inspector, 0, len(cfg.Inspectors))
	for _, entry := range cfg.Inspectors {
		fn, err := check.Build(entry.Check, entry.Params)
		if err != nil {
			return nil, fmt.Errorf("inspector %q: %w", entry.Name, err)
		}

		size := cfg.Sample.Size
		if entry.SampleSize != nil {
			size = *entry.SampleSize
		}

		in, err := inspect.New(entry.Name, fn,
			inspect.WithSampler(sample.New(size, strategy, sampleOpts...)),
			inspect.WithSinks(sinks...),
		)
		if err != nil {
			return nil, fmt.Errorf("inspector %q: %w", entry.Name, err)
		}
		inspectors = append(inspectors, in)
	}
	return inspectors, nil
}

// loadTargets reads every configured dataset fresh from disk.
func loadTargets(cfg *config.Config) ([]inspect.Target, error) {
	targets := make([]inspect.Target, 0, len(cfg.Datasets))
	for _, d := range cfg.Datasets {
		t, err := dataset.LoadCSV(d.Path)
		if err != nil {
			return nil, err
		}
		targets = append(targets, inspect.Target{Label: d.Label, Dataset: t})
	}
	return targets, nil
}

func buildRunner(cfg *config.Config, inspectors []*inspect.Inspector) *inspect.Runner {
	var opts []inspect.RunnerOption
	if cfg.Parallel > 1 {
		opts = append(opts, inspect.WithParallel(cfg.Parallel))
	}
	return inspect.NewRunner(inspectors, opts...)
}

func closeAll(sinks []sink.Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}
