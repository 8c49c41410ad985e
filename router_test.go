package redis

import (
	"net"
	"reflect"
	"strconv"
	"strings"
	"testing"
)

func sampleNodes() []NodeConfig {
	return []NodeConfig{
		{Name: "shard-a", Host: "10.0.0.1", Port: 6379, Replicas: 10},
		{Name: "shard-b", Host: "10.0.0.2", Port: 6379, Replicas: 10},
		{Name: "shard-c", Host: "10.0.0.3", Port: 6379, Replicas: 10},
	}
}

// TestRouterRouteDeterministic verifies that with fixed nodes and a
// fixed replica count, Route is a pure function of the key, and two
// independently built routers from the same config agree on every key.
func TestRouterRouteDeterministic(t *testing.T) {
	r1 := NewRouter(sampleNodes())
	r2 := NewRouter(sampleNodes())

	keys := []string{"user:1", "user:2", "session:abc", "cart:42", "", "x"}
	for _, k := range keys {
		n1 := nodeNameOf(r1, k)
		n2 := nodeNameOf(r2, k)
		if n1 != n2 {
			t.Fatalf("Route(%q): router1 -> %s, router2 -> %s", k, n1, n2)
		}
		// Repeated calls on the same router must also agree with themselves.
		if again := nodeNameOf(r1, k); again != n1 {
			t.Fatalf("Route(%q) not stable across calls: %s then %s", k, n1, again)
		}
	}
}

func nodeNameOf(r *Router, key string) string {
	p := r.Route(key)
	for name, pool := range r.pools {
		if pool == p {
			return name
		}
	}
	return ""
}

func TestRouterRingCoversAllNodes(t *testing.T) {
	r := NewRouter(sampleNodes())
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		seen[nodeNameOf(r, strings.Repeat("k", i+1))] = true
	}
	if len(seen) != 3 {
		t.Fatalf("keys landed on %d distinct nodes, want 3: %v", len(seen), seen)
	}
}

func TestLoadNodeConfig(t *testing.T) {
	doc := `
default_max_clients: 50
default_replicas: 20
nodes:
  - name: shard-a
    host: 127.0.0.1
    port: 6379
  - name: shard-b
    host: 127.0.0.1
    port: 6380
    max_clients: 5
    replicas: 1
`
	nodes, err := LoadNodeConfig(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadNodeConfig: %v", err)
	}
	want := []NodeConfig{
		{Name: "shard-a", Host: "127.0.0.1", Port: 6379, MaxClients: 50, Replicas: 20},
		{Name: "shard-b", Host: "127.0.0.1", Port: 6380, MaxClients: 5, Replicas: 1},
	}
	if !reflect.DeepEqual(nodes, want) {
		t.Fatalf("got %+v, want %+v", nodes, want)
	}
}

func TestCheckNodes(t *testing.T) {
	srv := newTestServer(t)
	host, portStr, err := net.SplitHostPort(srv.addr())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi: %v", err)
	}
	router := NewRouter([]NodeConfig{
		{Name: "only", Host: host, Port: port, Replicas: 4, MaxClients: 2},
	})

	go func() {
		waitFor(t, func() bool { return srv.count() >= 1 })
		// +OK answers the pool's priming SELECT; :1 answers SETNX.
		srv.reply(0, "+OK\r\n:1\r\n")
	}()

	results := router.CheckNodes("healthcheck")
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if err, ok := results["only"]; !ok || err != nil {
		t.Fatalf("results[only] = %v, want nil error", err)
	}
}
