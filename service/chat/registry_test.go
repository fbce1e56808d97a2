package chat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type notifyRecorder struct {
	mu    sync.Mutex
	sets  [][]string
	conns [][]*Client
}

func (n *notifyRecorder) hook(online []string, conns []*Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sets = append(n.sets, append([]string(nil), online...))
	n.conns = append(n.conns, conns)
}

func (n *notifyRecorder) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sets)
}

func (n *notifyRecorder) last() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sets) == 0 {
		return nil
	}
	return n.sets[len(n.sets)-1]
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	r := NewRegistry()
	rec := &notifyRecorder{}
	r.OnChange(rec.hook)

	c := NewClient("conn-1", "alice", nil, 1)
	r.Register(c)
	r.Register(c)

	require.Equal(t, []string{"alice"}, r.Snapshot())
	require.Equal(t, 1, rec.count(), "re-registering the same connection must not broadcast")
}

func TestRegistryUnregisterAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	rec := &notifyRecorder{}
	r.OnChange(rec.hook)

	r.Unregister(NewClient("ghost", "alice", nil, 1))
	require.Empty(t, r.Snapshot())
	require.Zero(t, rec.count())
}

func TestRegistryOnlineUntilLastConnGone(t *testing.T) {
	r := NewRegistry()

	c1 := NewClient("conn-1", "alice", nil, 1)
	c2 := NewClient("conn-2", "alice", nil, 1)
	r.Register(c1)
	r.Register(c2)
	require.Equal(t, []string{"alice"}, r.Snapshot())
	require.Len(t, r.ListByUser("alice"), 2)

	r.Unregister(c1)
	require.Equal(t, []string{"alice"}, r.Snapshot(), "user stays online while a connection remains")

	r.Unregister(c2)
	require.Empty(t, r.Snapshot())
	require.Nil(t, r.ListByUser("alice"))
}

func TestRegistryBroadcastsFullSortedSet(t *testing.T) {
	r := NewRegistry()
	rec := &notifyRecorder{}
	r.OnChange(rec.hook)

	bob := NewClient("conn-b", "bob", nil, 1)
	alice := NewClient("conn-a", "alice", nil, 1)
	r.Register(bob)
	r.Register(alice)
	require.Equal(t, []string{"alice", "bob"}, rec.last(), "every broadcast carries the complete set")

	r.Unregister(bob)
	require.Equal(t, []string{"alice"}, rec.last())
	require.Equal(t, 3, rec.count())
}

func TestClientDeliverDropsWhenFullOrClosed(t *testing.T) {
	c := NewClient("conn-1", "alice", nil, 1)

	require.True(t, c.deliver([]byte("a")))
	require.False(t, c.deliver([]byte("b")), "full queue drops instead of blocking")

	c.Close()
	c.Close() // idempotent
	require.False(t, c.deliver([]byte("c")))
}
