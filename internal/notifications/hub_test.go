package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"snapfeed/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testEventuallyTimeout = time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreCurrent())
}

func readFrame(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		return f
	case <-time.After(testEventuallyTimeout):
		t.Fatal("no frame received")
		return Frame{}
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()

	a, err := hub.Register(ctx, nil)
	require.NoError(t, err)
	b, err := hub.Register(ctx, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, hub.Count())

	hub.UnregisterClient(a)
	hub.UnregisterClient(a)
	assert.Equal(t, 1, hub.Count())
	_, open := <-a.Send
	assert.False(t, open)

	require.NoError(t, hub.Shutdown(ctx))
	assert.Equal(t, 0, hub.Count())
	_, err = hub.Register(ctx, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_ConnectionLimit(t *testing.T) {
	hub := NewHub(nil)
	ctx := context.Background()
	for i := 0; i < maxConns; i++ {
		_, err := hub.Register(ctx, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(ctx, nil)
	assert.ErrorIs(t, err, ErrConnectionLimit)
	require.NoError(t, hub.Shutdown(ctx))
}

func TestClient_TrySendBackpressure(t *testing.T) {
	hub := NewHub(nil)
	c, err := hub.Register(context.Background(), nil)
	require.NoError(t, err)

	const overflow = 5
	for i := 0; i < sendBuffer+overflow; i++ {
		c.TrySend([]byte(`{"type":"state"}`))
	}
	require.Len(t, c.Send, sendBuffer)

	var types []string
	for len(c.Send) > 0 {
		var f Frame
		require.NoError(t, json.Unmarshal(<-c.Send, &f))
		types = append(types, f.Type)
	}
	assert.Equal(t, FrameState, types[0])
	assert.Equal(t, FrameResync, types[len(types)-1], "the resync notice is queued after an overflow")
	resyncs := 0
	for _, typ := range types {
		if typ == FrameResync {
			resyncs++
		}
	}
	assert.Equal(t, overflow, resyncs)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.NotPanics(t, func() { c.TrySend([]byte("late")) }, "sending to a closed client is absorbed")
}

func TestRelay_BroadcastsChanges(t *testing.T) {
	st := store.New()
	relay := NewRelay(st)
	relay.Start()
	defer func() { _ = relay.Stop(context.Background()) }()

	c, err := relay.Hub().Register(context.Background(), nil)
	require.NoError(t, err)

	relay.Welcome(c)
	welcome := readFrame(t, c)
	assert.Equal(t, FrameState, welcome.Type)
	assert.Equal(t, uint64(0), welcome.Seq)
	require.NotNil(t, welcome.State)

	st.Dispatch(store.AuthStart{})
	f := readFrame(t, c)
	assert.Equal(t, FrameState, f.Type)
	assert.Equal(t, uint64(1), f.Seq)
	assert.Equal(t, "user/signInStart", f.Intent)
	assert.True(t, f.State.User.Loading)
}

func TestRelay_DispatchesIncomingActions(t *testing.T) {
	st := store.New()
	relay := NewRelay(st)
	relay.Start()
	defer func() { _ = relay.Stop(context.Background()) }()

	c, err := relay.Hub().Register(context.Background(), nil)
	require.NoError(t, err)

	c.IncomingHandler(c, []byte(`{"type":"user/signInFailure","payload":"Invalid credentials"}`))
	f := readFrame(t, c)
	assert.Equal(t, "user/signInFailure", f.Intent)
	assert.Equal(t, "Invalid credentials", st.GetState().User.Error)

	c.IncomingHandler(c, []byte(`not json`))
	f = readFrame(t, c)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, "Invalid message", f.Message)

	c.IncomingHandler(c, []byte(`{"type":"persist/REHYDRATE"}`))
	f = readFrame(t, c)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, uint64(1), st.Seq(), "rejected actions are not dispatched")
}

func TestRelay_StopUnsubscribes(t *testing.T) {
	st := store.New()
	relay := NewRelay(st)
	relay.Start()
	c, err := relay.Hub().Register(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, relay.Stop(context.Background()))
	assert.NotPanics(t, func() { st.Dispatch(store.Logout{}) })

	_, open := <-c.Send
	assert.False(t, open)
}
