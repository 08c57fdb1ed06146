package ws

import (
	"encoding/json"
	"testing"
)

func newTestClient(hub *Hub, target string, buffer int) *Client {
	return &Client{
		hub:    hub,
		send:   make(chan []byte, buffer),
		target: target,
	}
}

func TestNotifyDelivers(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "user-1", 4)
	hub.Register(client)

	if !hub.Notify("user-1", "user_authed", map[string]string{"name": "Анна"}) {
		t.Fatal("expected delivery to a registered client")
	}

	select {
	case raw := <-client.send:
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("unmarshaling envelope: %v", err)
		}
		if env.Event != "user_authed" {
			t.Errorf("wrong event: %q", env.Event)
		}
	default:
		t.Fatal("nothing queued on the client")
	}
}

func TestNotifyNoListener(t *testing.T) {
	hub := NewHub()
	if hub.Notify("user-1", "user_authed", nil) {
		t.Fatal("expected no delivery without listeners")
	}

	other := newTestClient(hub, "user-2", 4)
	hub.Register(other)
	if hub.Notify("user-1", "user_authed", nil) {
		t.Fatal("expected no delivery to a different target")
	}
	if len(other.send) != 0 {
		t.Error("other target must not receive the event")
	}
}

func TestNotifyDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := newTestClient(hub, "user-1", 1)
	hub.Register(slow)

	if !hub.Notify("user-1", "first", nil) {
		t.Fatal("first event must be accepted")
	}
	// Buffer is full now, the second event evicts the client.
	if hub.Notify("user-1", "second", nil) {
		t.Fatal("second event should not be delivered")
	}

	if hub.Notify("user-1", "third", nil) {
		t.Fatal("the slow client must be unregistered")
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, "user-1", 1)
	hub.Register(client)
	hub.Unregister(client)
	hub.Unregister(client) // must not panic on double close

	if hub.Notify("user-1", "event", nil) {
		t.Fatal("unregistered client must not receive events")
	}
}
