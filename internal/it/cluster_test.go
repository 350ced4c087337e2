package it

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"localgroup/internal/config"
	"localgroup/internal/element"
	"localgroup/internal/inspect"
	"localgroup/internal/journal"
)

func clusterConfig() config.Config {
	c := config.Default()
	c.Elements = []element.Point{{X: 0, Y: 0}, {X: 500, Y: 500}}
	c.AdvertInterval = 20 * time.Millisecond
	c.PruneInterval = 60 * time.Millisecond
	c.HeartbeatTimeout = 200 * time.Millisecond
	c.ProximityInterval = 20 * time.Millisecond
	return c
}

func waitConverged(t *testing.T, c *Cluster, e uint8) {
	t.Helper()
	require.Eventually(t, func() bool {
		ok, err := c.Converged(context.Background(), e)
		return err == nil && ok
	}, 10*time.Second, 20*time.Millisecond)
}

func TestCluster_ConvergesOnSharedElement(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf syncBuffer
	sink := journal.NewWriter(&buf)
	c := NewCluster(clusterConfig(), nil, sink)
	for id := uint32(1); id <= 4; id++ {
		c.AddNode(id, float64(id)*0.5, 0)
	}
	c.Start()
	defer c.Stop()

	waitConverged(t, c, 0)

	states, err := c.Snapshots(context.Background())
	require.NoError(t, err)
	for id, s := range states {
		assert.False(t, s.Elements[1].Stamp.Initialized(), "node %d touched a far element", id)
		assert.Len(t, s.Peers, 3, "node %d local group", id)
	}

	c.Stop()
	require.NoError(t, sink.Err())
	events, err := journal.Read(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	sum := journal.Summarize(events)
	assert.True(t, sum.Converged())
	assert.Len(t, sum.Nodes, 4)

	var acks int
	for _, n := range sum.Nodes {
		acks += n.Acks
	}
	assert.Positive(t, acks)
}

func TestCluster_PartitionHeals(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCluster(clusterConfig(), nil, nil)
	for id := uint32(1); id <= 4; id++ {
		c.AddNode(id, 0, 0)
	}
	c.Partition(map[uint32]int{1: 0, 2: 0, 3: 1, 4: 1})
	c.Start()
	defer c.Stop()

	time.Sleep(200 * time.Millisecond)
	ok, err := c.Converged(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, ok, "split groups cannot agree on all four nodes")

	c.Heal()
	waitConverged(t, c, 0)
}

func TestCluster_LateArrival(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewCluster(clusterConfig(), nil, nil)
	c.AddNode(1, 0, 0)
	c.AddNode(2, 1, 1)
	walker := c.AddNode(3, 200, 200)
	c.Start()
	defer c.Stop()

	require.Eventually(t, func() bool {
		s, err := walker.Snapshot(context.Background())
		return err == nil && len(s.Peers) == 2
	}, 5*time.Second, 10*time.Millisecond)

	s, err := walker.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, s.Nearby)
	assert.False(t, s.Elements[0].Stamp.Initialized(), "out of range: no agreement yet")

	walker.Pos.Set(0.5, 0.5)
	waitConverged(t, c, 0)

	n, err := testutil.GatherAndCount(c.Registry, "localgroup_messages_sent_total")
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestCluster_Inspector(t *testing.T) {
	c := NewCluster(clusterConfig(), nil, nil)
	a := c.AddNode(1, 0, 0)
	c.AddNode(2, 0, 0)
	c.Start()
	defer c.Stop()
	waitConverged(t, c, 0)

	lis := bufconn.Listen(1 << 20)
	srv := inspect.NewServer(a, nil)
	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	cm := inspect.NewClientManager(
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	defer cm.Close()

	client, err := cm.Get("passthrough:///node-1")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := client.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), s.Node)
	assert.Equal(t, []uint32{1, 2}, s.Elements[0].Agreeing)
	require.Len(t, s.Peers, 1)
	assert.Equal(t, uint32(2), s.Peers[0].ID)
}
