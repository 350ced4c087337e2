package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localgroup/internal/config"
	"localgroup/internal/element"
)

func parse(t *testing.T, args ...string) (config.Config, error) {
	t.Helper()
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	addRunFlags(flags)
	require.NoError(t, flags.Parse(args))
	return parseRunFlags(flags)
}

func TestParseRunFlags(t *testing.T) {
	c, err := parse(t,
		"--id", "7",
		"--elements", "0:0,10:10",
		"--seed", "random",
		"--advert-interval", "500ms",
		"--peers", "1=10.0.0.1,7=10.0.0.7",
		"--vx", "1.5",
	)
	require.NoError(t, err)

	assert.Equal(t, uint32(7), c.NodeID)
	assert.Equal(t, []element.Point{{X: 0, Y: 0}, {X: 10, Y: 10}}, c.Elements)
	assert.Equal(t, "random", c.Seed)
	assert.Equal(t, 500*time.Millisecond, c.AdvertInterval)
	assert.Equal(t, 10*time.Second, c.HeartbeatTimeout)
	assert.Len(t, c.Transport.Peers, 2)
	assert.Len(t, c.PeerAddrs(), 1)
	assert.Equal(t, 1.5, c.Mobility.VX)
	assert.Equal(t, 61021, c.Transport.Port)
}

func TestParseRunFlags_Layout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("radius: 3\nelements:\n  - {x: 1, y: 1}\n"), 0o644))

	c, err := parse(t, "--layout", path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, c.Radius)
	assert.Len(t, c.Elements, 1)

	c, err = parse(t, "--layout", path, "--radius", "5")
	require.NoError(t, err)
	assert.Equal(t, 5.0, c.Radius, "flag wins over layout")
}

func TestParseRunFlags_Invalid(t *testing.T) {
	_, err := parse(t)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig), "no elements: %v", err)

	_, err = parse(t, "--elements", "0:0", "--radius", "-1")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = parse(t, "--elements", "zero")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--elements")
}
