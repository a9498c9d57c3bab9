package registry

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// etcdEndpoints skips the test unless TTT_ETCD_ENDPOINTS names a running etcd.
func etcdEndpoints(t *testing.T) []string {
	t.Helper()
	v := os.Getenv("TTT_ETCD_ENDPOINTS")
	if v == "" {
		t.Skip("TTT_ETCD_ENDPOINTS not set")
	}
	return strings.Split(v, ",")
}

func TestEtcdRegisterAndDiscover(t *testing.T) {
	reg, err := NewEtcdRegistry(etcdEndpoints(t))
	require.NoError(t, err)
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := "test-" + time.Now().Format("150405.000000")
	inst1 := ServerInstance{Name: name, Rendezvous: "/tmp/TICTACTOE_A", Host: "h1", Weight: 10}
	inst2 := ServerInstance{Name: name, Rendezvous: "/tmp/TICTACTOE_B", Host: "h1", Weight: 5}

	require.NoError(t, reg.Register(ctx, inst1, 10))
	require.NoError(t, reg.Register(ctx, inst2, 10))

	instances, err := reg.Discover(ctx, name)
	require.NoError(t, err)
	assert.Len(t, instances, 2)

	require.NoError(t, reg.Deregister(ctx, inst1))

	instances, err = reg.Discover(ctx, name)
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, inst2.Rendezvous, instances[0].Rendezvous)

	reg.Deregister(ctx, inst2)
}

func TestEtcdWatch(t *testing.T) {
	reg, err := NewEtcdRegistry(etcdEndpoints(t))
	require.NoError(t, err)
	defer reg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := "watch-" + time.Now().Format("150405.000000")
	updates := reg.Watch(ctx, name)
	time.Sleep(100 * time.Millisecond)

	inst := ServerInstance{Name: name, Rendezvous: "/tmp/TICTACTOE_W", Host: "h1"}
	require.NoError(t, reg.Register(ctx, inst, 10))
	defer reg.Deregister(context.Background(), inst)

	select {
	case got := <-updates:
		require.Len(t, got, 1)
		assert.Equal(t, inst.Rendezvous, got[0].Rendezvous)
	case <-ctx.Done():
		t.Fatal("no watch update")
	}
}
