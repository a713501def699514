package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesSubscribers(t *testing.T) {
	h := NewHub()
	client := make(Client, 1)
	h.Subscribe(7, client)

	h.Broadcast(7, Event{Type: "game.ended", Payload: map[string]uint64{"game_id": 7}})

	select {
	case msg := <-client:
		assert.JSONEq(t, `{"type":"game.ended","payload":{"game_id":7}}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast message")
	}
}

func TestBroadcastIsScopedToGame(t *testing.T) {
	h := NewHub()
	client := make(Client, 1)
	h.Subscribe(7, client)

	h.Broadcast(8, Event{Type: "game.created"})

	select {
	case msg := <-client:
		t.Fatalf("unexpected message: %s", msg)
	default:
	}
}

func TestUnsubscribeClosesClient(t *testing.T) {
	h := NewHub()
	client := make(Client, 1)
	h.Subscribe(7, client)
	assert.Equal(t, 1, h.Subscribers(7))

	h.Unsubscribe(7, client)
	assert.Equal(t, 0, h.Subscribers(7))

	_, ok := <-client
	require.False(t, ok)

	// broadcasting after the last client left is a no-op
	h.Broadcast(7, Event{Type: "game.ended"})
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	h := NewHub()
	full := make(Client) // unbuffered and never read
	h.Subscribe(7, full)

	done := make(chan struct{})
	go func() {
		h.Broadcast(7, Event{Type: "player.joined"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow client")
	}
}
