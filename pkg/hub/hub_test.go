package hub

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func quietHub() *Hub {
	return New("test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClient is a client without a connection; tests read its send queue.
func fakeClient(h *Hub, id string, buf int) *Client {
	c := &Client{ID: id, hub: h, send: make(chan Message, buf)}
	h.register <- c
	return c
}

func waitCount(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != n && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := h.ClientCount(); got != n {
		t.Fatalf("ClientCount() = %d, want %d", got, n)
	}
}

func recv(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case m, ok := <-c.send:
		return m, ok
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID)
		return Message{}, false
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := quietHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	a := fakeClient(h, "a", 4)
	b := fakeClient(h, "b", 4)
	waitCount(t, h, 2)

	if err := h.BroadcastJSON("state", map[string]string{"type": "state"}); err != nil {
		t.Fatalf("BroadcastJSON() error = %v", err)
	}

	for _, c := range []*Client{a, b} {
		m, ok := recv(t, c)
		if !ok || m.Kind != "state" || string(m.Data) != `{"type":"state"}` {
			t.Errorf("client %s got %+v (open=%v)", c.ID, m, ok)
		}
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	h := quietHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	slow := fakeClient(h, "slow", 1)
	h.Broadcast(NewMessage("test", []byte(`1`)))
	h.Broadcast(NewMessage("test", []byte(`2`)))

	waitCount(t, h, 0)

	if m, ok := recv(t, slow); !ok || string(m.Data) != "1" {
		t.Errorf("first message = %q (open=%v)", m.Data, ok)
	}
	if _, ok := recv(t, slow); ok {
		t.Error("send channel should be closed after drop")
	}
	if slow.Send(NewMessage("test", []byte(`3`))) {
		t.Error("Send() on a dropped client should fail")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := quietHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c := fakeClient(h, "c", 1)
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() {
		t.Error("IsRunning() should be false after stop")
	}
	if _, ok := recv(t, c); ok {
		t.Error("client channel should be closed on stop")
	}

	// Registration after stop must not block.
	late := &Client{ID: "late", hub: h, send: make(chan Message, 1)}
	select {
	case h.register <- late:
		t.Error("register accepted after stop")
	case <-h.Done():
	}
}

func TestSendWhileHubStops(t *testing.T) {
	h := quietHub()
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	c := fakeClient(h, "c", 4)
	waitCount(t, h, 1)
	go func() {
		for range c.send {
		}
	}()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					c.Send(NewMessage("test", []byte(`{}`)))
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-h.Done()

	if c.Send(NewMessage("test", []byte(`{}`))) {
		t.Error("Send() after stop should fail")
	}
	close(stop)
	wg.Wait()
}
