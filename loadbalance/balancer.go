// Package loadbalance picks one game server when discovery returns several.
//
// Three strategies are implemented:
//   - RoundRobin:      spread successive clients evenly
//   - WeightedRandom:  servers advertise different capacities
//   - ConsistentHash:  a client identity keeps landing on the same server
package loadbalance

import (
	"errors"
	"fmt"
	"mini-ttt/registry"
	"strings"
)

var ErrNoInstances = errors.New("no instances available")

// Balancer is the interface for load balancing strategies.
// The client calls Pick() once per Dial to select a rendezvous.
type Balancer interface {
	// Pick selects one instance from the available list. Must be goroutine-safe.
	Pick(instances []registry.ServerInstance) (*registry.ServerInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// ByName returns the strategy called name. key is the affinity key used by
// the consistent hash and ignored by the others.
func ByName(name, key string) (Balancer, error) {
	switch strings.ToLower(name) {
	case "", "roundrobin", "round-robin":
		return &RoundRobinBalancer{}, nil
	case "random", "weighted", "weightedrandom":
		return &WeightedRandomBalancer{}, nil
	case "hash", "consistenthash":
		return NewConsistentHashBalancer(key), nil
	default:
		return nil, fmt.Errorf("unknown balancer %q", name)
	}
}
