package redis

import (
	"io"
	"net"
	"testing"
	"time"
)

// pipeConn returns a Conn whose transport is the client half of a
// net.Pipe, plus the server half for the test to drive directly. A
// background goroutine drains (and discards) everything the client
// writes, so Submit's writes never block on an unread pipe.
func pipeConn(t *testing.T, onDisconnect func()) (*Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	drained := make(chan struct{})
	go func() {
		io.Copy(io.Discard, server)
		close(drained)
	}()
	c := newConn("pipe", client, onDisconnect)
	t.Cleanup(func() {
		server.Close()
		<-drained
	})
	return c, server
}

// TestConnPipelineFIFO verifies that replies are delivered to callbacks
// in the same order their requests were submitted, regardless of any
// interleaving on the wire.
func TestConnPipelineFIFO(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := newConn("pipe", client, nil)

	// A net.Pipe write blocks until the other end reads it, so the
	// submits run in their own goroutine while the server side drains.
	results := make(chan int64, 3)
	submitted := make(chan error, 1)
	go func() {
		for i := 1; i <= 3; i++ {
			if err := c.Submit([]Arg{"INCR", "n"}, func(r *Reply) {
				results <- r.Int
			}); err != nil {
				submitted <- err
				return
			}
		}
		submitted <- nil
	}()

	// Drain the three framed requests off the server side so the
	// client's writes (serialized under its own mutex) all complete.
	frameLen := len(encodeRequest([]Arg{"INCR", "n"}))
	buf := make([]byte, 4096)
	total := 0
	for total < frameLen*3 {
		n, err := server.Read(buf[total:])
		if err != nil {
			t.Fatalf("server read: %v", err)
		}
		total += n
	}
	if err := <-submitted; err != nil {
		t.Fatalf("Submit: %v", err)
	}

	server.Write([]byte(":1\r\n:2\r\n:3\r\n"))

	for i, want := range []int64{1, 2, 3} {
		select {
		case got := <-results:
			if got != want {
				t.Fatalf("reply %d = %d, want %d", i, got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for reply %d", i)
		}
	}
}

// TestConnSubscribeMode verifies that once a connection enters
// subscription mode, ordinary commands are rejected and even the
// (un)subscribe acks are routed to the subscription callback instead of
// the pending FIFO.
func TestConnSubscribeMode(t *testing.T) {
	c, server := pipeConn(t, nil)

	msgs := make(chan *Reply, 4)
	if err := c.Subscribe([]string{"news"}, func(r *Reply) { msgs <- r }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := c.Submit([]Arg{"GET", "k"}, nil); err != ErrMisuseInSubscribeMode {
		t.Fatalf("Submit after Subscribe: got %v, want ErrMisuseInSubscribeMode", err)
	}

	if err := c.Unsubscribe(nil); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	server.Write([]byte("*3\r\n$11\r\nunsubscribe\r\n$4\r\nnews\r\n$1\r\n0\r\n"))

	select {
	case r := <-msgs:
		if r.Kind != Array || len(r.Elems) != 3 || r.Elems[0].Kind != BulkString || string(r.Elems[0].Bulk) != "unsubscribe" {
			t.Fatalf("got %+v, want unsubscribe push array", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for unsubscribe ack")
	}
}

func TestConnSubscribeCallbackConflict(t *testing.T) {
	c, _ := pipeConn(t, nil)

	if err := c.Subscribe([]string{"a"}, func(*Reply) {}); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	if err := c.Subscribe([]string{"b"}, func(*Reply) {}); err != ErrSubscribeCallbackConflict {
		t.Fatalf("second Subscribe with new callback: got %v, want ErrSubscribeCallbackConflict", err)
	}
	if err := c.Subscribe([]string{"b"}, nil); err != nil {
		t.Fatalf("second Subscribe with nil callback: %v", err)
	}
}

// TestConnDisconnectDrain verifies that a closed stream drains every
// outstanding callback with the nil sentinel and invokes OnDisconnect
// exactly once.
func TestConnDisconnectDrain(t *testing.T) {
	client, server := net.Pipe()
	go io.Copy(io.Discard, server)

	disconnected := make(chan struct{})
	c := newConn("pipe", client, func() { close(disconnected) })

	const n = 5
	replies := make(chan *Reply, n)
	for i := 0; i < n; i++ {
		if err := c.Submit([]Arg{"BLPOP", "list", "0"}, func(r *Reply) {
			replies <- r
		}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}

	server.Close()

	for i := 0; i < n; i++ {
		select {
		case r := <-replies:
			if r != nil {
				t.Fatalf("callback %d got %+v, want nil sentinel", i, r)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for drained callback %d", i)
		}
	}

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatalf("OnDisconnect was never invoked")
	}

	if c.IsConnected() {
		t.Fatalf("IsConnected() = true after disconnect")
	}
	if err := c.Submit([]Arg{"PING"}, nil); err != ErrClosed {
		t.Fatalf("Submit after disconnect: got %v, want ErrClosed", err)
	}
}
