package redis

import (
	"fmt"
	"hash/crc32"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// defaultMaxClients and defaultReplicas are the fallbacks applied when a
// NodeConfig omits the corresponding field.
const (
	defaultMaxClients = 100
	defaultReplicas   = 100
)

// NodeConfig describes one backend endpoint on the hash ring.
type NodeConfig struct {
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	UnixSocket string `yaml:"unix_socket"`
	DB         int64  `yaml:"db"`
	Password   string `yaml:"password"`
	MaxClients int    `yaml:"max_clients"`
	Replicas   int    `yaml:"replicas"`
}

func (n NodeConfig) addr() string {
	if n.UnixSocket != "" {
		return n.UnixSocket
	}
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// nodeConfigFile is the on-disk shape loaded by LoadNodeConfig: a list of
// nodes plus the two router-wide defaults.
type nodeConfigFile struct {
	DefaultMaxClients int          `yaml:"default_max_clients"`
	DefaultReplicas   int          `yaml:"default_replicas"`
	Nodes             []NodeConfig `yaml:"nodes"`
}

// LoadNodeConfig parses a YAML node list, applying
// DefaultMaxClients/DefaultReplicas to any node that omits its own
// max_clients/replicas.
func LoadNodeConfig(r io.Reader) ([]NodeConfig, error) {
	var file nodeConfigFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, err
	}

	maxClients := file.DefaultMaxClients
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}
	replicas := file.DefaultReplicas
	if replicas <= 0 {
		replicas = defaultReplicas
	}

	for i := range file.Nodes {
		if file.Nodes[i].MaxClients <= 0 {
			file.Nodes[i].MaxClients = maxClients
		}
		if file.Nodes[i].Replicas <= 0 {
			file.Nodes[i].Replicas = replicas
		}
	}
	return file.Nodes, nil
}

// ringEntry is one virtual replica on the hash ring.
type ringEntry struct {
	hash uint32
	node NodeConfig
	pool *Pool
}

// Router owns one Pool per configured node and maps each key to exactly
// one pool via CRC32 consistent hashing with virtual replicas.
type Router struct {
	ring  []ringEntry
	pools map[string]*Pool // by node name, for CheckNodes and introspection
}

// hashFunc is the unsigned IEEE CRC32 variant (polynomial 0xEDB88320
// reflected), fixed so ring placement is bit-identical across
// independently constructed routers given the same node configuration.
func hashFunc(s string) uint32 {
	return crc32.ChecksumIEEE([]byte(s))
}

// NewRouter builds the ring from nodes in the given order: for each node,
// its replicas are hashed in ascending index order, and later insertions
// win on a 32-bit hash collision.
func NewRouter(nodes []NodeConfig) *Router {
	byHash := make(map[uint32]ringEntry)
	pools := make(map[string]*Pool, len(nodes))

	for _, n := range nodes {
		replicas := n.Replicas
		if replicas <= 0 {
			replicas = defaultReplicas
		}
		maxClients := n.MaxClients
		if maxClients <= 0 {
			maxClients = defaultMaxClients
		}

		pool := NewPool(n.addr(), n.DB, n.Password, maxClients)
		pools[n.Name] = pool

		for rep := 0; rep < replicas; rep++ {
			h := hashFunc(fmt.Sprintf("%s: %d", n.Name, rep))
			byHash[h] = ringEntry{hash: h, node: n, pool: pool}
		}
	}

	ring := make([]ringEntry, 0, len(byHash))
	for _, e := range byHash {
		ring = append(ring, e)
	}
	sort.Slice(ring, func(i, j int) bool { return ring[i].hash < ring[j].hash })

	return &Router{ring: ring, pools: pools}
}

// Route maps key to its owning pool via lower-bound binary search over
// the ring, wrapping to the first entry past the maximum hash.
func (r *Router) Route(key string) *Pool {
	h := hashFunc(key)
	idx := sort.Search(len(r.ring), func(i int) bool { return r.ring[i].hash >= h })
	if idx == len(r.ring) {
		idx = 0
	}
	return r.ring[idx].pool
}

// Submit routes args by key to its pool and forwards the command, giving
// the thin command surface a sharded-deployment entry point.
func (r *Router) Submit(key string, args []Arg, cb ReplyFunc) error {
	return r.Route(key).Submit(args, cb)
}

// Pool returns the pool for a configured node name, or nil if unknown.
func (r *Router) Pool(name string) *Pool {
	return r.pools[name]
}

// CheckNodes submits `SETNX <db> <name>` on one connection per pool,
// concurrently, stamping each backend database with a human-readable
// node identifier and surfacing reachability. It returns once every
// pool has replied or failed.
func (r *Router) CheckNodes(dbKey string) map[string]error {
	results := make(map[string]error, len(r.pools))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, pool := range r.pools {
		name, pool := name, pool
		wg.Add(1)
		go func() {
			defer wg.Done()
			done := make(chan *Reply, 1)
			if err := pool.Submit([]Arg{"SETNX", dbKey, name}, func(reply *Reply) {
				done <- reply
			}); err != nil {
				mu.Lock()
				results[name] = err
				mu.Unlock()
				return
			}
			reply := <-done
			var err error
			switch {
			case reply == nil:
				err = ErrConnLost
			case reply.Kind == Error:
				err = reply.AsError()
			}
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}
