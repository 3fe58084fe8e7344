package sync

import (
	"time"

	"artdiscover/internal/discover"
)

const (
	EventWelcome = "welcome"
	EventState   = "session.state"
)

// StateEvent carries a session snapshot to its subscribers.
type StateEvent struct {
	Type  string         `json:"type"`
	State discover.State `json:"state"`
	At    time.Time      `json:"at"`
}

func NewStateEvent(st discover.State) StateEvent {
	return StateEvent{Type: EventState, State: st, At: time.Now().UTC()}
}

// WelcomeEvent is the first message on every connection. It includes the
// state at subscription time so a client never starts blank.
type WelcomeEvent struct {
	Type      string         `json:"type"`
	Transport string         `json:"transport"`
	State     discover.State `json:"state"`
}
