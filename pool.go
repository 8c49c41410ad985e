package redis

import (
	"sync"
	"time"
)

// Pool maintains up to MaxClients connections to a single endpoint and
// selects one per request using a load-aware policy.
//
// A fresh connection is primed with AUTH (if Password is set) and SELECT
// DB, both pipelined without awaiting their replies — the next caller's
// command rides immediately behind them, relying on per-connection FIFO
// ordering for correctness. Not waiting on AUTH/SELECT here is
// intentional: it keeps pool growth non-blocking under load.
type Pool struct {
	Addr        string
	DB          int64
	Password    string
	MaxClients  int
	DialTimeout time.Duration

	mu      sync.Mutex
	clients []*Conn // front = most recently created
}

// NewPool constructs a pool for one endpoint. MaxClients <= 0 is treated
// as a default of 100.
func NewPool(addr string, db int64, password string, maxClients int) *Pool {
	if maxClients <= 0 {
		maxClients = 100
	}
	return &Pool{
		Addr:       normalizeAddr(addr),
		DB:         db,
		Password:   password,
		MaxClients: maxClients,
	}
}

// Acquire selects the connection used for the next command, following
// this selection policy:
//
//  1. empty pool -> create
//  2. find the minimum-pipeline-depth connection
//  3. if it is idle, use it
//  4. else, if under MaxClients, create a new one
//  5. else, reuse the least-loaded connection from step 2
//
// Ties for least-loaded are broken by position in clients: the first
// tied entry wins. clients is ordered newest-first, so ties resolve to
// the most recently created connection among those tied.
func (p *Pool) Acquire() (*Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.clients) == 0 {
		return p.createLocked()
	}

	best := p.clients[0]
	bestDepth := best.PendingLen()
	for _, c := range p.clients[1:] {
		if d := c.PendingLen(); d < bestDepth {
			best, bestDepth = c, d
		}
	}

	if bestDepth == 0 {
		return best, nil
	}
	if len(p.clients) < p.MaxClients {
		return p.createLocked()
	}
	return best, nil
}

// createLocked dials a new connection, inserts it at the front of
// clients (newest preferred on the next empty-pipeline lookup), and
// primes it with AUTH/SELECT. p.mu must be held.
func (p *Pool) createLocked() (*Conn, error) {
	c, err := Dial(p.Addr, p.DialTimeout, nil)
	if err != nil {
		return nil, err
	}

	if p.Password != "" {
		_ = c.Submit([]Arg{"AUTH", p.Password}, nil)
	}
	_ = c.Submit([]Arg{"SELECT", p.DB}, nil)

	p.clients = append([]*Conn{c}, p.clients...)
	return c, nil
}

// Size returns the current connection count.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Submit acquires a connection per the selection policy and forwards the
// request to it, implementing CommandSender for direct (unsharded) use.
func (p *Pool) Submit(args []Arg, cb ReplyFunc) error {
	c, err := p.Acquire()
	if err != nil {
		return err
	}
	return c.Submit(args, cb)
}

// Close closes every connection currently in the pool. It does not stop
// new connections from being created by a concurrent Acquire; callers
// that want a hard stop should discard the Pool after Close.
func (p *Pool) Close() error {
	p.mu.Lock()
	clients := p.clients
	p.clients = nil
	p.mu.Unlock()

	var firstErr error
	for _, c := range clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
