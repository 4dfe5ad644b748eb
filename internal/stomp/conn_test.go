// internal/stomp/conn_test.go
package stomp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jason-s-yu/belatro/internal/stomp"
	"github.com/jason-s-yu/belatro/internal/stomp/stomptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, b *stomptest.Broker) *stomp.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := stomp.Dial(ctx, stomp.Options{
		URL:       b.URL(),
		HeartBeat: 10 * time.Second,
		Header: map[string]string{
			"Authorization": "Bearer tok",
			"X-Player-Name": "ana",
			"X-Match-ID":    "g1",
		},
	})
	require.NoError(t, err)
	return c
}

func TestConnectSubscribeSend(t *testing.T) {
	b := stomptest.NewBroker()
	defer b.Close()

	c := dial(t, b)
	ctx := context.Background()

	connects := b.Connects()
	require.Len(t, connects, 1)
	assert.Equal(t, "Bearer tok", connects[0].Get("Authorization"))
	assert.Equal(t, "ana", connects[0].Get("X-Player-Name"))
	assert.Equal(t, "g1", connects[0].Get("X-Match-ID"))
	assert.Equal(t, "10000,10000", connects[0].Get("heart-beat"))
	assert.Equal(t, "1.2", c.Version)

	got := make(chan string, 1)
	_, err := c.Subscribe(ctx, "/topic/games/g1", func(f stomp.Frame) {
		got <- string(f.Body)
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.Subscribed("/topic/games/g1") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Publish(ctx, "/topic/games/g1", []byte(`{"gameId":"g1"}`)))
	select {
	case body := <-got:
		assert.Equal(t, `{"gameId":"g1"}`, body)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	require.NoError(t, c.Send(ctx, "/app/games/g1/refresh", nil))
	require.NoError(t, c.Heartbeat(ctx))
	require.Eventually(t, func() bool {
		return len(b.SentTo("/app/games/g1/refresh")) == 1 && b.Heartbeats() == 1
	}, 2*time.Second, 10*time.Millisecond)

	dctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, c.Disconnect(dctx))

	select {
	case <-c.Done():
	default:
		t.Fatal("Done not closed after Disconnect")
	}
	assert.ErrorIs(t, c.Err(), stomp.ErrClosed)
	assert.ErrorIs(t, c.Send(ctx, "/app/x", nil), stomp.ErrClosed)
}

func TestConnectRejected(t *testing.T) {
	b := stomptest.NewBroker()
	b.Reject = "invalid token"
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := stomp.Dial(ctx, stomp.Options{URL: b.URL()})

	var se *stomp.ServerError
	require.True(t, errors.As(err, &se), "expected ServerError, got %v", err)
	assert.Equal(t, "invalid token", se.Message)
}

func TestTransportLossClosesConnection(t *testing.T) {
	b := stomptest.NewBroker()
	defer b.Close()

	c := dial(t, b)
	b.DropAll()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not notice transport loss")
	}
	require.Error(t, c.Err())
	assert.False(t, errors.Is(c.Err(), stomp.ErrClosed))
}

func TestDialUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := stomp.Dial(ctx, stomp.Options{URL: "ws://127.0.0.1:1/ws/websocket"})
	assert.Error(t, err)
}
