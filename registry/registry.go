package registry

import (
	"context"
	"os"
	"time"
)

// ServerInstance describes one running game server. Rendezvous is a filesystem path, so
// an instance is only reachable from the host it registered on.
type ServerInstance struct {
	Name       string // channel name tag, protocol.DefaultName unless overridden
	Rendezvous string // path of the rendezvous FIFO
	Host       string // hostname of the server
	Pid        int    // server process id
	Weight     int    // Weight for load balancing
	Version    string
	StartedAt  time.Time
}

// ID identifies the instance within its name.
func (s ServerInstance) ID() string {
	return s.Host + ":" + s.Rendezvous
}

// Registry advertises server instances. Servers Register and Deregister; clients
// Discover, and Watch while waiting for a dead instance's entry to be replaced or to
// expire.
type Registry interface {
	Register(ctx context.Context, instance ServerInstance, ttl int64) error
	Deregister(ctx context.Context, instance ServerInstance) error
	Discover(ctx context.Context, name string) ([]ServerInstance, error)
	// Watch emits the full instance list after each change until ctx is done, then
	// closes the channel.
	Watch(ctx context.Context, name string) <-chan []ServerInstance
	Close() error
}

// Local keeps the instances registered on this host.
func Local(instances []ServerInstance) []ServerInstance {
	host, _ := os.Hostname()
	local := make([]ServerInstance, 0, len(instances))
	for _, inst := range instances {
		if inst.Host == host {
			local = append(local, inst)
		}
	}
	return local
}
