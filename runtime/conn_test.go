package runtime

import (
	"context"
	"fasolink-chat/domain/event"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// recordingConn is an in-memory Connection keeping everything it was asked to do.
type recordingConn struct {
	mu         sync.Mutex
	id         string
	events     []event.Outbound
	closeCodes []int
	failWith   error
}

func newRecordingConn() *recordingConn {
	return &recordingConn{id: uuid.NewString()}
}

func newFailingConn() *recordingConn {
	c := newRecordingConn()
	c.failWith = fmt.Errorf("socket gone")
	return c
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Deliver(_ context.Context, evt event.Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *recordingConn) Close(code int, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCodes = append(c.closeCodes, code)
	return nil
}

func (c *recordingConn) Events() []event.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Outbound(nil), c.events...)
}

func (c *recordingConn) CloseCodes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.closeCodes...)
}
