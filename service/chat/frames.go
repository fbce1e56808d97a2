package chat

import (
	"encoding/json"
	"sort"
	"time"

	"QChat/tools/errs"
)

// EventPresenceChanged is the only event type on the push channel. Its payload
// is the complete set of online user IDs, never a delta: a client that missed
// a broadcast is corrected by the next one.
const EventPresenceChanged = "presenceChanged"

type Event struct {
	Type        string   `json:"type"`
	OnlineUsers []string `json:"onlineUsers"`
	Ts          int64    `json:"ts"`
}

// BuildPresenceEvent encodes the full online set. IDs are sorted so payloads
// are stable for logging and tests.
func BuildPresenceEvent(online []string) []byte {
	sorted := append([]string(nil), online...)
	sort.Strings(sorted)
	b, _ := json.Marshal(Event{
		Type:        EventPresenceChanged,
		OnlineUsers: sorted,
		Ts:          time.Now().UnixMilli(),
	})
	return b
}

func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, errs.WrapMsg(err, "unmarshal push event")
	}
	if ev.Type == "" {
		return nil, errs.New("push event missing type")
	}
	return &ev, nil
}
