// Package registry lets game servers advertise their rendezvous channel and lets
// clients find one without being told the path.
//
// The etcd layout:
//
//	Key:   /mini-ttt/{Name}/{Host}:{Rendezvous}
//	Value: JSON-encoded ServerInstance
//
// Registration uses TTL-based leases: if the server crashes, the lease expires
// and the entry is removed, so clients never dial a rendezvous nobody reads.
package registry

import (
	"context"
	"mini-ttt/codec"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/mini-ttt/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)
	codec  codec.Codec

	mu     sync.Mutex
	leases map[string]clientv3.LeaseID // key → lease, so Deregister can revoke it
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{
		client: c,
		codec:  codec.GetCodec(codec.CodecTypeJSON),
		leases: make(map[string]clientv3.LeaseID),
	}, nil
}

func instanceKey(instance ServerInstance) string {
	return keyPrefix + instance.Name + "/" + instance.ID()
}

// Register stores instance under a lease of ttl seconds and keeps the lease alive
// until Deregister or Close.
//
// Flow:
//  1. Create a lease with the given TTL
//  2. Put the key-value pair with the lease attached
//  3. Start KeepAlive, bound to the client's lifetime rather than ctx
func (r *EtcdRegistry) Register(ctx context.Context, instance ServerInstance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := r.codec.Encode(instance)
	if err != nil {
		return err
	}

	key := instanceKey(instance)
	if _, err = r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(r.client.Ctx(), lease.ID)
	if err != nil {
		return err
	}
	// Consume KeepAlive responses to prevent the channel from filling up
	go func() {
		for range ch {
		}
	}()

	r.mu.Lock()
	r.leases[key] = lease.ID
	r.mu.Unlock()
	return nil
}

// Deregister removes the instance. Revoking the lease also stops its KeepAlive.
// Called during graceful shutdown before the rendezvous is closed.
func (r *EtcdRegistry) Deregister(ctx context.Context, instance ServerInstance) error {
	key := instanceKey(instance)

	r.mu.Lock()
	id, ok := r.leases[key]
	delete(r.leases, key)
	r.mu.Unlock()

	if ok {
		_, err := r.client.Revoke(ctx, id)
		return err
	}
	_, err := r.client.Delete(ctx, key)
	return err
}

// Watch emits the full instance list for name every time it changes, until ctx is done.
func (r *EtcdRegistry) Watch(ctx context.Context, name string) <-chan []ServerInstance {
	ch := make(chan []ServerInstance, 1)
	prefix := keyPrefix + name + "/"

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			// On any change, re-fetch the full instance list
			instances, err := r.Discover(ctx, name)
			if err != nil {
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Discover returns every instance currently registered under name.
func (r *EtcdRegistry) Discover(ctx context.Context, name string) ([]ServerInstance, error) {
	resp, err := r.client.Get(ctx, keyPrefix+name+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ServerInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServerInstance
		if err := r.codec.Decode(kv.Value, &instance); err != nil {
			continue // Skip malformed entries
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Close stops all keep-alives and closes the etcd connection. Leases left behind
// expire on their own.
func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
