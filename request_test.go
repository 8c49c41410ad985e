package redis

import (
	"bufio"
	"bytes"
	"testing"
)

// TestEncodeRequestPing verifies the minimal one-argument request frame.
func TestEncodeRequestPing(t *testing.T) {
	got := encodeRequest([]Arg{"PING"})
	want := "*1\r\n$4\r\nPING\r\n"
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEncodeRequestIntegerArg(t *testing.T) {
	got := encodeRequest([]Arg{"EXPIRE", "k", int64(60)})
	want := "*3\r\n$6\r\nEXPIRE\r\n$1\r\nk\r\n$2\r\n60\r\n"
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// TestEncodeRequestRoundTrip verifies that parsing an encoded request
// yields an Array of BulkStrings, one per argument, in order.
func TestEncodeRequestRoundTrip(t *testing.T) {
	args := []Arg{"SET", "key", []byte("value"), 42, -7}
	wire := encodeRequest(args)

	br := bufio.NewReader(bytes.NewReader(wire))
	r, err := parseReply(br)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if r.Kind != Array || len(r.Elems) != len(args) {
		t.Fatalf("got %+v, want %d-element array", r, len(args))
	}
	want := [][]byte{[]byte("SET"), []byte("key"), []byte("value"), []byte("42"), []byte("-7")}
	for i, elem := range r.Elems {
		if elem.Kind != BulkString || !bytes.Equal(elem.Bulk, want[i]) {
			t.Fatalf("elem %d = %q, want %q", i, elem.Bulk, want[i])
		}
	}
}

// TestEncodeRequestBinarySafe verifies that a bulk argument containing
// \r\n\x00 survives encode+parse byte-identically, because length
// prefixes are authoritative and no escaping is performed.
func TestEncodeRequestBinarySafe(t *testing.T) {
	payload := []byte("\r\n\x00\xff binary")
	wire := encodeRequest([]Arg{"SET", "k", payload})

	br := bufio.NewReader(bytes.NewReader(wire))
	r, err := parseReply(br)
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if !bytes.Equal(r.Elems[2].Bulk, payload) {
		t.Fatalf("got %q, want %q", r.Elems[2].Bulk, payload)
	}
}
