package workers

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedStats struct{ groups, memberships int }

func (s fixedStats) Groups() int      { return s.groups }
func (s fixedStats) Memberships() int { return s.memberships }

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRegistryReporter_Reports_Until_Canceled(t *testing.T) {
	req := require.New(t)
	var out lockedBuffer
	log := slog.New(slog.NewTextHandler(&out, nil))

	// Given a reporter ticking every 10ms
	reporter := NewRegistryReporter(log, fixedStats{groups: 2, memberships: 3}, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	// When it runs until the deadline
	err := reporter.Run(ctx)

	// Then it exits cleanly after several reports
	req.NoError(err)
	req.GreaterOrEqual(strings.Count(out.String(), "Registry stats"), 2)
	req.Contains(out.String(), "groups=2")
	req.Contains(out.String(), "memberships=3")
}
