package workers

import (
	"context"
	"log/slog"
	"time"
)

type registryStats interface {
	Groups() int
	Memberships() int
}

// RegistryReporter logs the size of the local registry at a fixed interval.
type RegistryReporter struct {
	log      *slog.Logger
	registry registryStats
	interval time.Duration
}

func NewRegistryReporter(log *slog.Logger, registry registryStats, interval time.Duration) *RegistryReporter {
	return &RegistryReporter{log: log, registry: registry, interval: interval}
}

// Run reports until ctx is canceled, then reports one last time.
func (w *RegistryReporter) Run(ctx context.Context) error {
	startTime := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report(startTime)
			return nil
		case <-ticker.C:
			w.report(startTime)
		}
	}
}

func (w *RegistryReporter) report(startTime time.Time) {
	w.log.Info("Registry stats",
		"uptime", time.Since(startTime).Round(time.Second).String(),
		"groups", w.registry.Groups(),
		"memberships", w.registry.Memberships(),
	)
}
