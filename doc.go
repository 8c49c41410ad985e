// Package redis provides a non-blocking client core for Redis-compatible
// key/value servers. See <https://redis.io/topics/introduction> for the
// concept.
//
// The core frames commands into the RESP wire protocol, parses replies
// from a byte stream, correlates each request with the callback that must
// receive its reply, multiplexes request/response traffic with long-lived
// publish/subscribe delivery on the same connection, pools connections
// against a single endpoint, and shards keys across a fixed set of
// endpoints with consistent hashing.
//
// Connections do not reconnect automatically: a closed connection is
// terminal for its pending work. Callers that need reconnect behavior, or
// a synchronous façade, should build it on top of this core.
package redis
