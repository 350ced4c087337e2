package inspect

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"localgroup/internal/clock"
	"localgroup/internal/element"
	"localgroup/internal/engine"
	"localgroup/internal/gossip"
	"localgroup/internal/wire"
)

type fakeSource struct {
	state engine.State
	err   error
}

func (f *fakeSource) Snapshot(context.Context) (engine.State, error) {
	return f.state, f.err
}

func sampleState() engine.State {
	return engine.State{
		Node:   3,
		Nearby: []uint8{0, 2},
		Elements: []element.Record{
			{Stamp: clock.Stamp{Version: 1, Round: 4}, Location: element.Point{X: 0.25, Y: -1}, Agreeing: []uint32{1, 3}},
			{Location: element.Point{X: 10, Y: 10}, Agreeing: []uint32{}},
			{Stamp: clock.Stamp{Round: 4}, Agreeing: []uint32{3}},
		},
		Peers: []gossip.PeerRecord{{
			ID:       1,
			Address:  wire.Addr(0x0a000001),
			LastSeen: time.Date(2024, 5, 1, 12, 0, 0, 500, time.UTC),
			Stamps:   []clock.Stamp{{Version: 1, Round: 4}, {}, {Round: 2}},
		}},
	}
}

func TestConvertRoundTrip(t *testing.T) {
	want := sampleState()
	pb, err := stateToStruct(want)
	require.NoError(t, err)

	got, err := structToState(pb)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func startServer(t *testing.T, src Snapshotter) *ClientManager {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(src, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	cm := NewClientManager(
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	t.Cleanup(func() { _ = cm.Close() })
	return cm
}

func TestServer_Snapshot(t *testing.T) {
	cm := startServer(t, &fakeSource{state: sampleState()})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := cm.Get("passthrough:///bufnet")
	require.NoError(t, err)
	again, err := cm.Get("passthrough:///bufnet")
	require.NoError(t, err)
	assert.Same(t, c, again, "clients are cached per address")

	got, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	ok, err := c.Healthy(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServer_SnapshotError(t *testing.T) {
	cm := startServer(t, &fakeSource{err: errors.New("node: stopped")})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := cm.Get("passthrough:///bufnet")
	require.NoError(t, err)
	_, err = c.Snapshot(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unavailable")
}

func TestServeAfterStop(t *testing.T) {
	srv := NewServer(&fakeSource{}, nil)
	srv.Stop()

	lis := bufconn.Listen(1024)
	assert.NoError(t, srv.Serve(lis))
}
