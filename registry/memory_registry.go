package registry

import (
	"context"
	"sync"
)

// MemoryRegistry keeps instances in process memory. It backs tests and single-host
// setups where running etcd is not worth it. TTLs are ignored.
type MemoryRegistry struct {
	mu        sync.Mutex
	instances map[string][]ServerInstance
	watchers  map[string][]chan []ServerInstance
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		instances: make(map[string][]ServerInstance),
		watchers:  make(map[string][]chan []ServerInstance),
	}
}

func (m *MemoryRegistry) Register(_ context.Context, inst ServerInstance, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	insts := m.instances[inst.Name]
	for i := range insts {
		if insts[i].ID() == inst.ID() {
			insts[i] = inst
			m.notify(inst.Name)
			return nil
		}
	}
	m.instances[inst.Name] = append(insts, inst)
	m.notify(inst.Name)
	return nil
}

func (m *MemoryRegistry) Deregister(_ context.Context, inst ServerInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	insts := m.instances[inst.Name]
	for i := range insts {
		if insts[i].ID() == inst.ID() {
			m.instances[inst.Name] = append(insts[:i:i], insts[i+1:]...)
			m.notify(inst.Name)
			break
		}
	}
	return nil
}

func (m *MemoryRegistry) Discover(_ context.Context, name string) ([]ServerInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ServerInstance(nil), m.instances[name]...), nil
}

// Watch emits the instance list after every change. A slow reader only sees the
// latest list.
func (m *MemoryRegistry) Watch(ctx context.Context, name string) <-chan []ServerInstance {
	ch := make(chan []ServerInstance, 1)

	m.mu.Lock()
	m.watchers[name] = append(m.watchers[name], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		ws := m.watchers[name]
		for i, w := range ws {
			if w == ch {
				m.watchers[name] = append(ws[:i:i], ws[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (m *MemoryRegistry) Close() error {
	return nil
}

// notify must be called with mu held.
func (m *MemoryRegistry) notify(name string) {
	snapshot := append([]ServerInstance(nil), m.instances[name]...)
	for _, ch := range m.watchers[name] {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}
