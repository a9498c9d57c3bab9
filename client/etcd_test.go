package client

import (
	"context"
	"mini-ttt/loadbalance"
	"mini-ttt/message"
	"mini-ttt/registry"
	"mini-ttt/server"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func etcdRegistry(t *testing.T) *registry.EtcdRegistry {
	t.Helper()
	v := os.Getenv("TTT_ETCD_ENDPOINTS")
	if v == "" {
		t.Skip("TTT_ETCD_ENDPOINTS not set")
	}
	reg, err := registry.NewEtcdRegistry(strings.Split(v, ","))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestPlayDiscoveredThroughEtcd(t *testing.T) {
	reg := etcdRegistry(t)
	name := "it-" + filepath.Base(t.TempDir())
	svr := startServer(t, server.Options{Name: name, Registry: reg})

	c := dial(t, Options{Name: name, Registry: reg, ID: 1})
	assert.Equal(t, svr.Rendezvous(), c.Rendezvous())

	resp, err := c.Exchange(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, message.Move{Status: message.StatusOK, Row: 0, Col: 0}, resp)
}

func TestClientsSpreadOverServers(t *testing.T) {
	reg := etcdRegistry(t)
	name := "it-" + filepath.Base(t.TempDir())
	a := startServer(t, server.Options{Name: name, Registry: reg})
	b := startServer(t, server.Options{Name: name, Registry: reg})

	bal := &loadbalance.RoundRobinBalancer{}
	seen := make(map[string]int)
	for id := 1; id <= 4; id++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		c, err := Dial(ctx, Options{Name: name, Registry: reg, Balancer: bal, ID: id, ChannelDir: t.TempDir()})
		cancel()
		require.NoError(t, err)

		_, err = c.Exchange(context.Background(), 1, 1)
		require.NoError(t, err)
		seen[c.Rendezvous()]++
		c.Close()
	}
	assert.Equal(t, 2, seen[a.Rendezvous()])
	assert.Equal(t, 2, seen[b.Rendezvous()])

	require.NoError(t, a.Shutdown(2*time.Second))
	insts, err := reg.Discover(context.Background(), name)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, b.Rendezvous(), insts[0].Rendezvous)
}
