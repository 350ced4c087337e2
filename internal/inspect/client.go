package inspect

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"localgroup/internal/engine"
)

// Client talks to one node's inspector.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// Raw fetches the node's state as the wire Struct.
func (c *Client) Raw(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, snapshotMethod, &emptypb.Empty{}, out); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return out, nil
}

// Snapshot fetches the node's state.
func (c *Client) Snapshot(ctx context.Context) (engine.State, error) {
	out, err := c.Raw(ctx)
	if err != nil {
		return engine.State{}, err
	}
	return structToState(out)
}

// Healthy reports whether the inspector service is serving.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return false, fmt.Errorf("health check: %w", err)
	}
	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

// ClientManager manages inspector clients to many nodes.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[string]*Client
	opts    []grpc.DialOption
}

// NewClientManager creates a client manager. Without options connections
// are insecure.
func NewClientManager(opts ...grpc.DialOption) *ClientManager {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	return &ClientManager{
		clients: make(map[string]*Client),
		opts:    opts,
	}
}

// Get returns a client for the given address.
// Creates a new connection if one doesn't exist.
func (cm *ClientManager) Get(addr string) (*Client, error) {
	cm.mu.RLock()
	client, exists := cm.clients[addr]
	cm.mu.RUnlock()

	if exists {
		return client, nil
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Double-check after acquiring write lock
	if client, exists := cm.clients[addr]; exists {
		return client, nil
	}

	conn, err := grpc.NewClient(addr, cm.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	client = &Client{conn: conn, health: healthpb.NewHealthClient(conn)}
	cm.clients[addr] = client
	return client, nil
}

// Close closes all client connections.
func (cm *ClientManager) Close() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var first error
	for addr, c := range cm.clients {
		if err := c.conn.Close(); err != nil && first == nil {
			first = err
		}
		delete(cm.clients, addr)
	}
	return first
}
