package hub

import (
	"testing"
	"time"
)

func startHub(t *testing.T, opts ...Option) *Hub {
	t.Helper()
	h := New("test", opts...)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func fakeClient(h *Hub, buf int) *Client {
	return &Client{hub: h, send: make(chan Message, buf)}
}

func recv(t *testing.T, c *Client) (Message, bool) {
	t.Helper()
	select {
	case m, ok := <-c.send:
		return m, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}, false
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBroadcastReachesClients(t *testing.T) {
	h := startHub(t)
	a, b := fakeClient(h, 4), fakeClient(h, 4)
	h.join(a)
	h.join(b)
	waitClients(t, h, 2)

	if err := h.BroadcastJSON(map[string]int{"n": 1}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*Client{a, b} {
		m, ok := recv(t, c)
		if !ok || string(m.Data) != `{"n":1}` || m.Type != JSONMessage {
			t.Errorf("got %q (ok=%v)", m.Data, ok)
		}
	}

	h.leave(a)
	waitClients(t, h, 1)
	if _, ok := recv(t, a); ok {
		t.Error("send channel not closed after leave")
	}
}

func TestReplayLastMessage(t *testing.T) {
	h := startHub(t, WithReplay())
	first := fakeClient(h, 4)
	h.join(first)
	h.BroadcastJSON("state-1")
	h.BroadcastJSON("state-2")
	recv(t, first)
	recv(t, first)

	late := fakeClient(h, 4)
	h.join(late)
	m, _ := recv(t, late)
	if string(m.Data) != `"state-2"` {
		t.Errorf("replayed %q, want latest state", m.Data)
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := startHub(t)
	slow := fakeClient(h, 1)
	fast := fakeClient(h, 16)
	h.join(slow)
	h.join(fast)
	waitClients(t, h, 2)

	for i := 0; i < 3; i++ {
		h.Broadcast(NewBinaryMessage([]byte{byte(i)}))
		recv(t, fast)
	}
	waitClients(t, h, 1)

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("slow client channel should be closed")
	}
}

func TestStop(t *testing.T) {
	h := New("stop")
	go h.Run()
	c := fakeClient(h, 1)
	h.join(c)
	waitClients(t, h, 1)

	h.Stop()
	h.Stop()
	if _, ok := recv(t, c); ok {
		t.Error("Stop should close client channels")
	}
	if h.join(fakeClient(h, 1)) {
		t.Error("join after Stop should fail")
	}
	if st := h.GetStats(); st.Name != "stop" || st.Clients != 0 {
		t.Errorf("stats = %+v", st)
	}
}
