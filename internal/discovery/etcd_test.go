package discovery

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localgroup/internal/config"
)

const prefix = "/localgroup/nodes/"

func TestKey(t *testing.T) {
	assert.Equal(t, "/localgroup/nodes/42", Key(prefix, 42))

	id, err := parseKey(prefix, Key(prefix, 42))
	require.NoError(t, err)
	assert.Equal(t, uint32(42), id)
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		want    config.Peer
		wantErr bool
	}{
		{"valid", prefix + "7", "10.0.0.7", config.Peer{ID: 7, Addr: netip.MustParseAddr("10.0.0.7")}, false},
		{"other prefix", "/other/7", "10.0.0.7", config.Peer{}, true},
		{"bad id", prefix + "seven", "10.0.0.7", config.Peer{}, true},
		{"bad address", prefix + "7", "10.0.0", config.Peer{}, true},
		{"ipv6", prefix + "7", "fe80::1", config.Peer{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEntry(prefix, tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeerSet(t *testing.T) {
	s := make(peerSet)
	require.NoError(t, s.put(prefix, prefix+"9", "10.0.0.9"))
	require.NoError(t, s.put(prefix, prefix+"2", "10.0.0.2"))
	require.NoError(t, s.put(prefix, prefix+"9", "10.0.0.19"))
	require.Error(t, s.put(prefix, prefix+"x", "10.0.0.1"))

	assert.Equal(t, []config.Peer{
		{ID: 2, Addr: netip.MustParseAddr("10.0.0.2")},
		{ID: 9, Addr: netip.MustParseAddr("10.0.0.19")},
	}, s.list())

	s.remove(prefix, prefix+"2")
	s.remove(prefix, "/elsewhere")
	assert.Len(t, s.list(), 1)
}
