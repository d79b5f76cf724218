package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/datasmiths/tabinspect/internal/suppress"
	"github.com/datasmiths/tabinspect/internal/watch"
	"github.com/datasmiths/tabinspect/pkg/inspect"
)

// runWatch runs the suite on the configured interval, and again whenever a
// dataset file changes, until interrupted.
func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadSuite()
	if err != nil {
		return err
	}

	sinks, store, err := buildSinks(cfg)
	if err != nil {
		return err
	}
	if store == nil {
		// The watcher always wants a store for its janitor; without a chat
		// cooldown an in-memory one that never suppresses is enough.
		store = suppress.NewMemStore(0)
	}

	inspectors, err := buildInspectors(cfg, sinks)
	if err != nil {
		closeAll(sinks)
		_ = store.Close()
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	loadFn := func() ([]inspect.Target, error) { return loadTargets(cfg) }
	w := watch.New(cfg, buildRunner(cfg, inspectors), sinks, store, loadFn)
	defer w.Close()

	return w.Run(ctx)
}
