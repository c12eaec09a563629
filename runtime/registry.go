package runtime

import (
	"context"
	"fasolink-chat/contract"
	"fasolink-chat/domain"
	"fasolink-chat/domain/event"
	"log/slog"
	"sync"
)

// Set holds the connections of one group keyed by connection id.
type Set map[string]contract.Connection

// Registry is the in-process group registry.
// Only the membership map is shared, everything else is owned by the connections.
type Registry struct {
	mu     sync.RWMutex
	log    *slog.Logger
	groups map[domain.GroupName]Set
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:    log,
		groups: make(map[domain.GroupName]Set),
	}
}

// Join adds the connection to the group, creating the group on the fly.
// Joining twice is harmless.
func (r *Registry) Join(_ context.Context, group domain.GroupName, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		members = make(Set)
		r.groups[group] = members
	}
	members[conn.ID()] = conn
}

// Leave removes the connection from the group.
// If no one is left in the group, the group entry is removed entirely.
func (r *Registry) Leave(_ context.Context, group domain.GroupName, conn contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		return
	}
	delete(members, conn.ID())
	if len(members) == 0 {
		delete(r.groups, group)
	}
}

// Send delivers the event to every connection of the group.
// The member list is copied under the read lock and delivered to outside of it,
// so a slow connection never blocks joins and leaves.
// A failing member is logged and skipped, Send itself never fails.
func (r *Registry) Send(ctx context.Context, group domain.GroupName, evt event.Outbound) error {
	for _, conn := range r.snapshot(group) {
		if err := conn.Deliver(ctx, evt); err != nil {
			r.log.Warn("Delivery failed, skipping member",
				"group", group, "connection", conn.ID(), "event", evt.Kind(), "error", err)
		}
	}
	return nil
}

func (r *Registry) Members(group domain.GroupName) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group])
}

// Groups returns the number of live groups.
func (r *Registry) Groups() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

// Memberships counts group memberships. A connection in two groups counts twice.
func (r *Registry) Memberships() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, members := range r.groups {
		total += len(members)
	}
	return total
}

func (r *Registry) snapshot(group domain.GroupName) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.groups[group]
	if !ok {
		return nil
	}
	conns := make([]contract.Connection, 0, len(members))
	for _, conn := range members {
		conns = append(conns, conn)
	}
	return conns
}
