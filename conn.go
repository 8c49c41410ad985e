package redis

import (
	"bufio"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Server Limits
const (
	// SizeMax is the upper boundary for byte sizes.
	// A string value can be at most 512 MiB in length.
	SizeMax = 512 << 20

	// ElementMax is the upper boundary for element counts.
	// Every hash, list, set, and sorted set, can hold 2³² − 1 elements.
	ElementMax = 1<<32 - 1
)

// Fixed Settings
const (
	// IPv6 minimum MTU of 1280 bytes, minus a 40 byte IP header,
	// minus a 32 byte TCP header (with timestamps).
	conservativeMSS = 1208
)

// ReplyFunc receives exactly one Reply per invocation. A nil Reply means
// the connection is gone and this command will never complete. Panics
// inside a ReplyFunc are recovered and logged; see safeInvoke.
type ReplyFunc func(*Reply)

func isUnixAddr(s string) bool {
	return len(s) != 0 && s[0] == '/'
}

func normalizeAddr(s string) string {
	if isUnixAddr(s) {
		return filepath.Clean(s)
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		host = s
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}
	return net.JoinHostPort(host, port)
}

func firstVerb(args []Arg) string {
	if len(args) == 0 {
		return ""
	}
	switch v := args[0].(type) {
	case string:
		return strings.ToUpper(v)
	case []byte:
		return strings.ToUpper(string(v))
	default:
		return ""
	}
}

func isSubVerb(verb string) bool {
	switch verb {
	case "SUBSCRIBE", "PSUBSCRIBE", "UNSUBSCRIBE", "PUNSUBSCRIBE":
		return true
	}
	return false
}

// Conn owns one TCP (or Unix domain) stream to one endpoint. It frames
// and writes requests, and runs a dedicated reader goroutine that feeds
// inbound bytes to the RESP parser and delivers each reply to the
// callback at the head of the pending FIFO, or to the subscription
// callback once the connection has entered subscription mode.
//
// Multiple goroutines may call Submit concurrently; Conn serializes
// writes and pending-queue mutation with an internal mutex so that
// replies are delivered to pending callbacks in submit order end to
// end.
//
// A Conn never reconnects. Once its stream closes, it is done; callers
// that pool connections must create a new one.
type Conn struct {
	// Addr is the normalized endpoint in use. Read-only after Dial.
	Addr string

	// OnDisconnect, if set, is invoked exactly once after the pending
	// drain and subscription-callback notification that follow stream
	// closure.
	OnDisconnect func()

	netConn net.Conn
	br      *bufio.Reader

	mu          sync.Mutex
	closed      bool
	pending     []ReplyFunc
	subCallback ReplyFunc
	subMode     bool
}

// Dial opens a stream to addr (host:port, or an absolute path for a Unix
// domain socket) and begins the read loop. A zero dialTimeout defaults to
// one second. onDisconnect, if non-nil, becomes the Conn's OnDisconnect
// hook before any bytes can arrive, eliminating the race of setting it
// after Dial returns.
func Dial(addr string, dialTimeout time.Duration, onDisconnect func()) (*Conn, error) {
	addr = normalizeAddr(addr)
	if dialTimeout == 0 {
		dialTimeout = time.Second
	}
	network := "tcp"
	if isUnixAddr(addr) {
		network = "unix"
	}

	nc, err := net.DialTimeout(network, addr, dialTimeout)
	if err != nil {
		return nil, wrapTransport(addr, err)
	}
	if tcp, ok := nc.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}

	c := newConn(addr, nc, onDisconnect)
	return c, nil
}

// newConn wraps an already-established stream and starts its read loop.
// Factored out of Dial so tests can drive a Conn over net.Pipe without a
// real listener.
func newConn(addr string, nc net.Conn, onDisconnect func()) *Conn {
	c := &Conn{
		Addr:         addr,
		OnDisconnect: onDisconnect,
		netConn:      nc,
		br:           bufio.NewReaderSize(nc, conservativeMSS),
	}
	go c.readLoop()
	return c
}

// IsIdle reports whether the connection has zero outstanding replies.
func (c *Conn) IsIdle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) == 0
}

// PendingLen returns the current pipeline depth.
func (c *Conn) PendingLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// IsConnected reports whether the stream is still open.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Submit frames args, writes them to the stream, and enqueues cb (which
// may be nil) to receive the reply. It fails synchronously with
// ErrMisuseInSubscribeMode if the connection has entered subscription
// mode and the verb is not one of the four (un)subscribe commands.
func (c *Conn) Submit(args []Arg, cb ReplyFunc) error {
	if len(args) == 0 {
		return errors.New("redis: empty request")
	}
	verb := firstVerb(args)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.subMode && !isSubVerb(verb) {
		return ErrMisuseInSubscribeMode
	}

	if _, err := c.netConn.Write(encodeRequest(args)); err != nil {
		werr := wrapTransport(c.Addr, err)
		go c.fail(werr)
		return werr
	}

	// Once subscribed, every reply is routed to subCallback regardless
	// of which command produced it; a pending slot here would never be
	// popped. See enterAndSend.
	if !c.subMode {
		c.pending = append(c.pending, cb)
	}
	return nil
}

// Subscribe sets the subscription callback on first call and submits
// SUBSCRIBE for channels. On any later call on the same Conn, cb must
// be nil — the already-registered callback keeps receiving messages
// for the newly added channels too. Passing a non-nil cb on a later
// call returns ErrSubscribeCallbackConflict; see DESIGN.md for the
// reasoning behind this rule.
func (c *Conn) Subscribe(channels []string, cb ReplyFunc) error {
	return c.enterAndSend("SUBSCRIBE", channels, cb)
}

// PSubscribe is the pattern-matching counterpart of Subscribe.
func (c *Conn) PSubscribe(patterns []string, cb ReplyFunc) error {
	return c.enterAndSend("PSUBSCRIBE", patterns, cb)
}

func (c *Conn) enterAndSend(verb string, names []string, cb ReplyFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.subCallback == nil {
		if cb == nil {
			return errors.Errorf("redis: %s requires a callback on the first call", verb)
		}
		c.subCallback = cb
		c.subMode = true
	} else if cb != nil {
		return ErrSubscribeCallbackConflict
	}

	args := make([]Arg, 0, len(names)+1)
	args = append(args, verb)
	for _, n := range names {
		args = append(args, n)
	}
	if _, err := c.netConn.Write(encodeRequest(args)); err != nil {
		werr := wrapTransport(c.Addr, err)
		go c.fail(werr)
		return werr
	}
	// Not appended to pending: the ack itself flows to subCallback.
	return nil
}

// Unsubscribe submits UNSUBSCRIBE for channels (all channels if empty).
// Its reply reaches the subscription callback once one is registered;
// otherwise it behaves like any other normal command.
func (c *Conn) Unsubscribe(channels []string) error {
	return c.subUnsubCommand("UNSUBSCRIBE", channels)
}

// PUnsubscribe is the pattern-matching counterpart of Unsubscribe.
func (c *Conn) PUnsubscribe(patterns []string) error {
	return c.subUnsubCommand("PUNSUBSCRIBE", patterns)
}

func (c *Conn) subUnsubCommand(verb string, names []string) error {
	args := make([]Arg, 0, len(names)+1)
	args = append(args, verb)
	for _, n := range names {
		args = append(args, n)
	}
	return c.Submit(args, nil)
}

// Close submits QUIT and closes the stream. Pending callbacks, including
// QUIT's own (discarded, as it carries no callback), are resolved by the
// ensuing close sequence.
func (c *Conn) Close() error {
	_ = c.Submit([]Arg{"QUIT"}, nil)

	c.mu.Lock()
	already := c.closed
	c.mu.Unlock()
	if already {
		return nil
	}
	return c.netConn.Close()
}

// readLoop feeds inbound bytes to the parser and dispatches each
// complete reply, until the stream errors or reaches EOF.
func (c *Conn) readLoop() {
	for {
		reply, err := parseReply(c.br)
		if err != nil {
			c.fail(err)
			return
		}
		c.dispatch(reply)
	}
}

func (c *Conn) dispatch(reply *Reply) {
	c.mu.Lock()
	if c.subCallback != nil {
		cb := c.subCallback
		c.mu.Unlock()
		safeInvoke(cb, reply)
		return
	}
	if len(c.pending) > 0 {
		cb := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()
		if cb != nil {
			safeInvoke(cb, reply)
		}
		return
	}
	c.mu.Unlock()
	logrus.WithField("reply", reply).Debug("redis: discarded reply; no pending callback and no subscription")
}

// fail runs the disconnect sequence exactly once: drain pending with the
// "connection gone" sentinel (nil Reply), notify the subscription
// callback the same way, close the stream, and invoke OnDisconnect.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = nil
	sub := c.subCallback
	c.subCallback = nil
	c.mu.Unlock()

	logrus.WithError(err).WithField("addr", c.Addr).Debug("redis: connection lost")

	for _, cb := range pending {
		if cb != nil {
			safeInvoke(cb, nil)
		}
	}
	if sub != nil {
		safeInvoke(sub, nil)
	}

	c.netConn.Close()

	if c.OnDisconnect != nil {
		c.OnDisconnect()
	}
}

// safeInvoke guards every callback invocation: a panicking callback must
// never crash the read loop.
func safeInvoke(cb ReplyFunc, r *Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithField("panic", rec).Error("redis: callback panicked")
		}
	}()
	cb(r)
}
