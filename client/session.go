package client

import (
	"context"
	"sync"
	"time"

	"QChat/logger"
	msgmodel "QChat/module/message/model"
	usermodel "QChat/module/user/model"
	"QChat/tools/errs"

	"golang.org/x/sync/errgroup"
)

const defaultResyncInterval = 2 * time.Second

type Options struct {
	Gateway  Gateway
	Interval time.Duration // resync period; default 2s
}

// Session owns one client's local mirror of server state and keeps it
// consistent through the periodic resync cycle.
//
// Exactly one resync timer exists per session: it starts in NewSession and is
// cancelled exactly once in Close. Selecting or deselecting a peer never
// touches the timer; it only changes what a tick fetches.
type Session struct {
	gw       Gateway
	interval time.Duration

	mu       sync.RWMutex
	peers    []usermodel.Summary
	unseen   map[string]int64
	selected string // empty = no peer selected
	messages []msgmodel.Message
	online   map[string]struct{}
	onlineTs int64 // timestamp of the last applied presence broadcast

	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(opts Options) *Session {
	if opts.Interval <= 0 {
		opts.Interval = defaultResyncInterval
	}
	s := &Session{
		gw:       opts.Gateway,
		interval: opts.Interval,
		unseen:   map[string]int64{},
		online:   map[string]struct{}{},
		done:     make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
	return s
}

// Close stops the resync timer and releases the session. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.resyncOnce(ctx)
		}
	}
}

// resyncOnce is one tick of the sync engine. The peer/unseen fetch always
// runs; the conversation fetch runs only while a peer is selected. The two
// fetches run concurrently and succeed or fail independently; local state is
// mutated only after both have finished. Failures are swallowed: state stays
// stale until a later tick succeeds.
func (s *Session) resyncOnce(ctx context.Context) {
	selected := s.Selected()

	var (
		dir     PeerDirectory
		dirErr  error
		msgs    []msgmodel.Message
		msgsErr error
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		dir, dirErr = s.gw.ListPeers(ctx)
		return nil
	})
	if selected != "" {
		g.Go(func() error {
			msgs, msgsErr = s.gw.ListMessages(ctx, selected)
			return nil
		})
	}
	_ = g.Wait()

	if dirErr != nil {
		logger.Warnf("[sync] peer resync skipped: %v", dirErr)
	}
	if msgsErr != nil {
		logger.Warnf("[sync] conversation resync skipped: %v", msgsErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dirErr == nil {
		// Wholesale replace: the server is authoritative, no merging.
		s.peers = dir.Peers
		s.unseen = dir.Unseen
	}
	if selected != "" && msgsErr == nil && s.selected == selected {
		s.messages = msgs
	}
}

// Select makes peerID the active conversation. The local unseen count for the
// peer drops to zero synchronously, before the one-shot conversation fetch is
// even issued. The fetch error, if any, propagates to the caller; the
// selection itself always takes effect.
func (s *Session) Select(ctx context.Context, peerID string) error {
	if peerID == "" {
		return errs.New("empty peer id")
	}

	s.mu.Lock()
	s.selected = peerID
	s.unseen[peerID] = 0
	s.mu.Unlock()

	msgs, err := s.gw.ListMessages(ctx, peerID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.selected == peerID {
		s.messages = msgs
	}
	s.mu.Unlock()
	return nil
}

// Deselect clears the active conversation. The peer/unseen resync continues;
// only the conversation branch of each tick stops.
func (s *Session) Deselect() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// Send submits a message to the selected peer and, on success, appends the
// server's canonical record to the local sequence.
//
// Dedup-by-identifier: if a resync landed between the gateway call and the
// append, the canonical message is already present and the append is a no-op,
// so no later tick can duplicate it. Failed sends leave local state untouched
// and are never retried automatically.
func (s *Session) Send(ctx context.Context, content msgmodel.Content) (msgmodel.Message, error) {
	peerID := s.Selected()
	if peerID == "" {
		return msgmodel.Message{}, errs.New("no peer selected")
	}

	m, err := s.gw.SendMessage(ctx, peerID, content)
	if err != nil {
		return msgmodel.Message{}, err
	}

	s.mu.Lock()
	if s.selected == peerID && !containsMsg(s.messages, m.MsgID) {
		s.messages = append(s.messages, m)
	}
	s.mu.Unlock()
	return m, nil
}

func containsMsg(msgs []msgmodel.Message, id string) bool {
	for i := range msgs {
		if msgs[i].MsgID == id {
			return true
		}
	}
	return false
}

// --- read-side accessors; all return copies ---

func (s *Session) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

func (s *Session) Peers() []usermodel.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]usermodel.Summary(nil), s.peers...)
}

func (s *Session) Messages() []msgmodel.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]msgmodel.Message(nil), s.messages...)
}

func (s *Session) Unseen() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.unseen))
	for k, v := range s.unseen {
		out[k] = v
	}
	return out
}

func (s *Session) UnseenFor(peerID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unseen[peerID]
}

// IsOnline reflects the latest presence broadcast.
func (s *Session) IsOnline(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[userID]
	return ok
}

// setOnline replaces the online set; the push channel payload is always the
// complete set, never a delta. Broadcast workers may race on consecutive
// events, so anything older than the last applied timestamp is dropped
// instead of overwriting newer state.
func (s *Session) setOnline(users []string, ts int64) {
	next := make(map[string]struct{}, len(users))
	for _, u := range users {
		next[u] = struct{}{}
	}
	s.mu.Lock()
	if ts >= s.onlineTs {
		s.online = next
		s.onlineTs = ts
	}
	s.mu.Unlock()
}
