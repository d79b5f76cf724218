package watch

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/datasmiths/tabinspect/internal/metrics"
	"github.com/datasmiths/tabinspect/internal/suppress"
)

// runJanitor keeps the suppression store tidy while watch mode runs: on each
// tick it prunes expired windows and refreshes the store-size gauge. Returns
// when ctx is cancelled.
func runJanitor(ctx context.Context, store suppress.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(store)
		}
	}
}

func sweep(store suppress.Store) {
	if err := store.Prune(); err != nil {
		log.Warn().Err(err).Msg("janitor: suppression prune failed")
	}

	// Stores without a backing file report an empty path; skip the gauge.
	path := store.Path()
	if path == "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	metrics.StoreSizeBytes.Set(float64(info.Size()))
}
