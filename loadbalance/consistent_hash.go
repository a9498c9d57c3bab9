package loadbalance

import (
	"fmt"
	"hash/crc32"
	"mini-ttt/registry"
	"sort"
	"strings"
	"sync"
)

// ConsistentHashBalancer maps a key to an instance using a hash ring.
// The same key always maps to the same instance until the ring changes. Clients use
// their identity as the key, so a restarted client goes back to the same server.
//
// Virtual nodes: each real instance is mapped to N virtual nodes on the ring,
// which keeps the share of keys per instance close to even.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	              ╱       ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	              ╲       ╱
//	                ╲   ╱
type ConsistentHashBalancer struct {
	key      string
	replicas int // Virtual nodes per real instance

	mu      sync.Mutex
	ring    []uint32                           // Sorted hash values on the ring
	nodes   map[uint32]registry.ServerInstance // Hash value → instance mapping
	members string                             // instance ids the ring was built from
}

// NewConsistentHashBalancer creates a ring with 100 virtual nodes per instance.
// Pick looks up key.
func NewConsistentHashBalancer(key string) *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		key:      key,
		replicas: 100,
		nodes:    make(map[uint32]registry.ServerInstance),
	}
}

// add places an instance onto the ring with N virtual nodes hashed from "{id}#{i}".
func (b *ConsistentHashBalancer) add(instance registry.ServerInstance) {
	for i := 0; i < b.replicas; i++ {
		hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", instance.ID(), i)))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = instance
	}
	sort.Slice(b.ring, func(i, j int) bool {
		return b.ring[i] < b.ring[j]
	})
}

// lookup finds the instance responsible for key: the first node clockwise from
// the key's hash, wrapping around past the largest.
func (b *ConsistentHashBalancer) lookup(key string) (*registry.ServerInstance, error) {
	if len(b.ring) == 0 {
		return nil, ErrNoInstances
	}
	hash := crc32.ChecksumIEEE([]byte(key))

	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}

	inst := b.nodes[b.ring[idx]]
	return &inst, nil
}

// Pick rebuilds the ring when the instance set changed, then looks up the
// balancer's key.
func (b *ConsistentHashBalancer) Pick(instances []registry.ServerInstance) (*registry.ServerInstance, error) {
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID()
	}
	sort.Strings(ids)
	members := strings.Join(ids, "\n")

	b.mu.Lock()
	defer b.mu.Unlock()

	if members != b.members {
		b.ring = b.ring[:0]
		clear(b.nodes)
		for _, inst := range instances {
			b.add(inst)
		}
		b.members = members
	}
	return b.lookup(b.key)
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
