package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPresenceEventSortsAndRoundTrips(t *testing.T) {
	raw := BuildPresenceEvent([]string{"carol", "alice", "bob"})

	ev, err := ParseEvent(raw)
	require.NoError(t, err)
	require.Equal(t, EventPresenceChanged, ev.Type)
	require.Equal(t, []string{"alice", "bob", "carol"}, ev.OnlineUsers)
	require.NotZero(t, ev.Ts)
}

func TestBuildPresenceEventEmptySet(t *testing.T) {
	ev, err := ParseEvent(BuildPresenceEvent(nil))
	require.NoError(t, err)
	require.Empty(t, ev.OnlineUsers)
}

func TestParseEventRejectsGarbage(t *testing.T) {
	_, err := ParseEvent([]byte("{not json"))
	require.Error(t, err)

	_, err = ParseEvent([]byte(`{"onlineUsers":["a"]}`))
	require.Error(t, err, "a frame without a type is not an event")
}
