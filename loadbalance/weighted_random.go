package loadbalance

import (
	"math/rand/v2"
	"mini-ttt/registry"
)

// WeightedRandomBalancer picks an instance with probability proportional to its
// Weight. A weight below 1 counts as 1.
type WeightedRandomBalancer struct{}

func weightOf(inst registry.ServerInstance) int {
	return max(inst.Weight, 1)
}

func (b *WeightedRandomBalancer) Pick(instances []registry.ServerInstance) (*registry.ServerInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}

	totalWeight := 0
	for _, v := range instances {
		totalWeight += weightOf(v)
	}

	r := rand.IntN(totalWeight)
	for i := range instances {
		r -= weightOf(instances[i])
		if r < 0 {
			return &instances[i], nil
		}
	}
	return &instances[len(instances)-1], nil
}

func (b *WeightedRandomBalancer) Name() string {
	return "WeightedRandom"
}
