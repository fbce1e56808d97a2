package client

import (
	"context"
	"sync"
	"testing"
	"time"

	msgmodel "QChat/module/message/model"
	usermodel "QChat/module/user/model"

	"github.com/stretchr/testify/require"
)

// fakeGateway is an in-memory Gateway with injectable failures and call
// counters.
type fakeGateway struct {
	mu sync.Mutex

	peers  []usermodel.Summary
	unseen map[string]int64
	msgs   map[string][]msgmodel.Message

	peersErr error
	msgsErr  error
	sendErr  error

	listPeersCalls    int
	listMessagesCalls int

	onListMessages func() // runs inside ListMessages, before returning
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		unseen: map[string]int64{},
		msgs:   map[string][]msgmodel.Message{},
	}
}

func (f *fakeGateway) ListPeers(ctx context.Context) (PeerDirectory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listPeersCalls++
	if f.peersErr != nil {
		return PeerDirectory{}, f.peersErr
	}
	unseen := make(map[string]int64, len(f.unseen))
	for k, v := range f.unseen {
		unseen[k] = v
	}
	return PeerDirectory{
		Peers:  append([]usermodel.Summary(nil), f.peers...),
		Unseen: unseen,
	}, nil
}

func (f *fakeGateway) ListMessages(ctx context.Context, peerID string) ([]msgmodel.Message, error) {
	f.mu.Lock()
	hook := f.onListMessages
	f.listMessagesCalls++
	err := f.msgsErr
	out := append([]msgmodel.Message(nil), f.msgs[peerID]...)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeGateway) SendMessage(ctx context.Context, peerID string, content msgmodel.Content) (msgmodel.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return msgmodel.Message{}, f.sendErr
	}
	m := msgmodel.Message{
		MsgID:      "m-sent",
		SenderID:   "me",
		RecvID:     peerID,
		Text:       content.Text,
		Image:      content.Image,
		CreateTime: time.Now().UnixMilli(),
	}
	f.msgs[peerID] = append(f.msgs[peerID], m)
	return m, nil
}

func (f *fakeGateway) set(fn func(f *fakeGateway)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGateway) calls() (peers, messages int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listPeersCalls, f.listMessagesCalls
}

// quietSession builds a session whose ticker will not fire during the test.
func quietSession(t *testing.T, gw Gateway) *Session {
	t.Helper()
	s := NewSession(Options{Gateway: gw, Interval: time.Hour})
	t.Cleanup(s.Close)
	return s
}

func TestSelectZeroesUnseenBeforeFetch(t *testing.T) {
	gw := newFakeGateway()
	gw.set(func(f *fakeGateway) {
		f.unseen["bob"] = 7
		f.msgs["bob"] = []msgmodel.Message{{MsgID: "m1", SenderID: "bob", RecvID: "me", Text: "hi"}}
	})
	s := quietSession(t, gw)

	// Seed local unseen state as a resync would.
	s.mu.Lock()
	s.unseen["bob"] = 7
	s.mu.Unlock()

	var unseenAtFetch int64 = -1
	gw.set(func(f *fakeGateway) {
		f.onListMessages = func() { unseenAtFetch = s.UnseenFor("bob") }
	})

	require.NoError(t, s.Select(context.Background(), "bob"))
	require.Zero(t, unseenAtFetch, "unseen must already be zero when the fetch runs")
	require.Equal(t, "bob", s.Selected())
	require.Len(t, s.Messages(), 1)
}

func TestSelectFetchFailureKeepsSelection(t *testing.T) {
	gw := newFakeGateway()
	gw.set(func(f *fakeGateway) { f.msgsErr = context.DeadlineExceeded })
	s := quietSession(t, gw)

	err := s.Select(context.Background(), "bob")
	require.Error(t, err)
	require.Equal(t, "bob", s.Selected(), "the selection takes effect even when the fetch fails")
	require.Empty(t, s.Messages())
}

func TestResyncWholesaleReplace(t *testing.T) {
	gw := newFakeGateway()
	gw.set(func(f *fakeGateway) {
		f.peers = []usermodel.Summary{{UserID: "bob"}}
		f.unseen["bob"] = 2
	})
	s := NewSession(Options{Gateway: gw, Interval: 20 * time.Millisecond})
	t.Cleanup(s.Close)

	require.Eventually(t, func() bool {
		return len(s.Peers()) == 1 && s.UnseenFor("bob") == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Server state moves on; the mirror follows with no merging.
	gw.set(func(f *fakeGateway) {
		f.peers = []usermodel.Summary{{UserID: "bob"}, {UserID: "carol"}}
		f.unseen = map[string]int64{"carol": 1}
	})
	require.Eventually(t, func() bool {
		return len(s.Peers()) == 2 && s.UnseenFor("bob") == 0 && s.UnseenFor("carol") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestResyncFailuresAreIndependent(t *testing.T) {
	gw := newFakeGateway()
	gw.set(func(f *fakeGateway) {
		f.peers = []usermodel.Summary{{UserID: "bob"}}
		f.msgs["bob"] = []msgmodel.Message{{MsgID: "m1", Text: "hi"}}
	})
	s := NewSession(Options{Gateway: gw, Interval: 20 * time.Millisecond})
	t.Cleanup(s.Close)
	require.NoError(t, s.Select(context.Background(), "bob"))

	// Peer fetch breaks; the conversation branch must keep updating.
	gw.set(func(f *fakeGateway) {
		f.peersErr = context.DeadlineExceeded
		f.msgs["bob"] = append(f.msgs["bob"], msgmodel.Message{MsgID: "m2", Text: "again"})
	})
	require.Eventually(t, func() bool {
		return len(s.Messages()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Len(t, s.Peers(), 1, "stale peer list survives the failed fetch")

	// And the other way around.
	gw.set(func(f *fakeGateway) {
		f.peersErr = nil
		f.msgsErr = context.DeadlineExceeded
		f.peers = []usermodel.Summary{{UserID: "bob"}, {UserID: "carol"}}
	})
	require.Eventually(t, func() bool {
		return len(s.Peers()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Len(t, s.Messages(), 2, "stale conversation survives the failed fetch")
}

func TestSendAppendsOnceAndDedups(t *testing.T) {
	gw := newFakeGateway()
	s := quietSession(t, gw)
	require.NoError(t, s.Select(context.Background(), "bob"))

	m, err := s.Send(context.Background(), msgmodel.Content{Text: "hello"})
	require.NoError(t, err)
	require.Len(t, s.Messages(), 1)

	// A resync already delivered the canonical record: appending again is a
	// no-op.
	s.mu.Lock()
	n := len(s.messages)
	s.mu.Unlock()
	require.Equal(t, 1, n)

	s.mu.Lock()
	s.messages = append(s.messages[:0], msgmodel.Message{MsgID: m.MsgID, Text: m.Text})
	s.mu.Unlock()
	_, err = s.Send(context.Background(), msgmodel.Content{Text: "hello"})
	require.NoError(t, err)
	require.Len(t, s.Messages(), 1, "a message id never appears twice")
}

func TestSendRequiresSelection(t *testing.T) {
	gw := newFakeGateway()
	s := quietSession(t, gw)

	_, err := s.Send(context.Background(), msgmodel.Content{Text: "hello"})
	require.Error(t, err)
	require.Empty(t, s.Messages())
}

func TestSendFailureLeavesStateUntouched(t *testing.T) {
	gw := newFakeGateway()
	gw.set(func(f *fakeGateway) { f.sendErr = context.DeadlineExceeded })
	s := quietSession(t, gw)
	require.NoError(t, s.Select(context.Background(), "bob"))

	_, err := s.Send(context.Background(), msgmodel.Content{Text: "hello"})
	require.Error(t, err)
	require.Empty(t, s.Messages())
}

func TestDeselectStopsConversationFetchOnly(t *testing.T) {
	gw := newFakeGateway()
	s := NewSession(Options{Gateway: gw, Interval: 20 * time.Millisecond})
	t.Cleanup(s.Close)
	require.NoError(t, s.Select(context.Background(), "bob"))

	require.Eventually(t, func() bool {
		_, m := gw.calls()
		return m > 2
	}, 2*time.Second, 10*time.Millisecond)

	s.Deselect()
	require.Empty(t, s.Selected())

	// Conversation fetches stop; peer fetches continue.
	time.Sleep(60 * time.Millisecond)
	pBefore, mBefore := gw.calls()
	time.Sleep(100 * time.Millisecond)
	pAfter, mAfter := gw.calls()
	require.Equal(t, mBefore, mAfter)
	require.Greater(t, pAfter, pBefore)
}

func TestCloseIsIdempotentAndStopsTicks(t *testing.T) {
	gw := newFakeGateway()
	s := NewSession(Options{Gateway: gw, Interval: 20 * time.Millisecond})

	require.Eventually(t, func() bool {
		p, _ := gw.calls()
		return p > 0
	}, 2*time.Second, 10*time.Millisecond)

	s.Close()
	s.Close()

	p1, _ := gw.calls()
	time.Sleep(100 * time.Millisecond)
	p2, _ := gw.calls()
	require.Equal(t, p1, p2, "no fetch runs after Close")
}

func TestOnlineSetIsWholesale(t *testing.T) {
	gw := newFakeGateway()
	s := quietSession(t, gw)

	s.setOnline([]string{"alice", "bob"}, 100)
	require.True(t, s.IsOnline("alice"))
	require.True(t, s.IsOnline("bob"))

	s.setOnline([]string{"bob"}, 200)
	require.False(t, s.IsOnline("alice"), "each broadcast replaces the whole set")
	require.True(t, s.IsOnline("bob"))
}

func TestOnlineSetIgnoresReorderedBroadcasts(t *testing.T) {
	gw := newFakeGateway()
	s := quietSession(t, gw)

	s.setOnline([]string{"bob"}, 200)

	// Concurrent fanout workers can deliver an older broadcast after a newer
	// one; the stale set must not win.
	s.setOnline([]string{"alice", "bob"}, 100)
	require.False(t, s.IsOnline("alice"))
	require.True(t, s.IsOnline("bob"))

	// Equal timestamps apply; the stream has caught up.
	s.setOnline([]string{"carol"}, 200)
	require.True(t, s.IsOnline("carol"))
	require.False(t, s.IsOnline("bob"))
}
