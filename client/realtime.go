package client

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"QChat/logger"
	"QChat/service/chat"
	"QChat/tools/errs"
	"QChat/tools/safe"

	"github.com/gorilla/websocket"
)

// PresenceListener holds the push channel open and feeds every presence
// broadcast into the session's online set. It is read-only: the server never
// expects frames from this side.
type PresenceListener struct {
	ws      *websocket.Conn
	session *Session

	// OnPresence, if set before Start, also receives each full online set.
	OnPresence func(online []string)

	closeOnce sync.Once
	done      chan struct{}
}

// DialPresence connects to the push channel of baseURL for userID and binds
// the stream to session.
func DialPresence(baseURL, userID string, session *Session) (*PresenceListener, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errs.WrapMsg(err, "parse base url")
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = "user_id=" + url.QueryEscape(userID)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("dial push channel: " + err.Error())
	}

	l := &PresenceListener{
		ws:      ws,
		session: session,
		done:    make(chan struct{}),
	}
	return l, nil
}

// Start runs the read loop until the connection drops or Close is called.
func (l *PresenceListener) Start() {
	safe.Go(l.readLoop)
}

// Close tears down the push connection. Idempotent.
func (l *PresenceListener) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		_ = l.ws.Close()
	})
}

func (l *PresenceListener) Done() <-chan struct{} { return l.done }

func (l *PresenceListener) readLoop() {
	defer l.Close()

	for {
		_, raw, err := l.ws.ReadMessage()
		if err != nil {
			select {
			case <-l.done:
			default:
				logger.Infof("[presence] push channel closed: %v", err)
			}
			return
		}

		ev, err := chat.ParseEvent(raw)
		if err != nil {
			// Unknown frame, skip it; the stream itself is still healthy.
			logger.Warnf("[presence] bad push frame: %v", err)
			continue
		}
		if ev.Type != chat.EventPresenceChanged {
			continue
		}

		if l.session != nil {
			l.session.setOnline(ev.OnlineUsers, ev.Ts)
		}
		if l.OnPresence != nil {
			l.OnPresence(ev.OnlineUsers)
		}
	}
}
