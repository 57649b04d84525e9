package notifications

import (
	"context"
	"encoding/json"

	"snapfeed/internal/models"
	"snapfeed/internal/observability"
	"snapfeed/internal/store"
)

// Frame types sent to clients.
const (
	FrameState  = "state"
	FrameError  = "error"
	FrameResync = "resync"
)

// Frame is one outbound websocket message.
type Frame struct {
	Type    string           `json:"type"`
	Seq     uint64           `json:"seq,omitempty"`
	Intent  string           `json:"intent,omitempty"`
	State   *store.RootState `json:"state,omitempty"`
	Message string           `json:"message,omitempty"`
}

var resyncNotice = mustMarshal(Frame{Type: FrameResync, Message: "buffer_full"})

// Source is the store the relay mirrors.
type Source interface {
	Dispatch(intent store.Intent)
	GetState() store.RootState
	Seq() uint64
	Subscribe(l store.Listener) func()
}

// Relay mirrors every store change to the hub's clients and dispatches the
// intents they send back.
type Relay struct {
	hub         *Hub
	source      Source
	unsubscribe func()
}

// NewRelay creates a relay and its hub.
func NewRelay(source Source) *Relay {
	r := &Relay{source: source}
	r.hub = NewHub(r.handleIncoming)
	return r
}

// Hub returns the hub clients register with.
func (r *Relay) Hub() *Hub { return r.hub }

// Start subscribes to the store.
func (r *Relay) Start() {
	if r.unsubscribe != nil {
		return
	}
	r.unsubscribe = r.source.Subscribe(func(c store.Change) {
		state := c.State
		data, err := json.Marshal(Frame{Type: FrameState, Seq: c.Seq, Intent: c.Intent, State: &state})
		if err != nil {
			observability.GlobalLogger.Error("failed to encode state frame", "error", err, "intent", c.Intent)
			return
		}
		r.hub.BroadcastAll(data)
	})
}

// Stop unsubscribes from the store and closes every connection.
func (r *Relay) Stop(ctx context.Context) error {
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
	return r.hub.Shutdown(ctx)
}

// Welcome sends the current state to a newly registered client.
func (r *Relay) Welcome(c *Client) {
	state := r.source.GetState()
	c.TrySend(mustMarshal(Frame{Type: FrameState, Seq: r.source.Seq(), State: &state}))
}

func (r *Relay) handleIncoming(c *Client, message []byte) {
	var action store.Action
	if err := json.Unmarshal(message, &action); err != nil {
		c.TrySend(ErrorFrame(models.NewValidationError("Invalid message")))
		return
	}
	intent, err := store.DecodeAction(action)
	if err != nil {
		c.TrySend(ErrorFrame(err))
		return
	}
	r.source.Dispatch(intent)
}

// ErrorFrame encodes err as an error frame carrying its user message.
func ErrorFrame(err error) []byte {
	return mustMarshal(Frame{Type: FrameError, Message: models.UserMessage(err)})
}

func mustMarshal(f Frame) []byte {
	data, err := json.Marshal(f)
	if err != nil {
		panic(err)
	}
	return data
}
