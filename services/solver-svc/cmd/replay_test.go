package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery/pkg/apperror"
	"lottery/services/solver-svc/internal/network"
)

func writeDump(t *testing.T, net *network.Network) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dump.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = net.Snapshot().WriteTo(f)
	require.NoError(t, err)
	return path
}

func TestReplay_Converged(t *testing.T) {
	net, err := network.New(3)
	require.NoError(t, err)
	net.AddEdge(0, 1, 2, 1)
	net.AddEdge(1, 2, 3, 1)
	net.SetFlow(0, 1, 1)
	net.SetFlow(1, 2, 1)

	meta := map[string]any{}
	require.NoError(t, replay(writeDump(t, net), meta))

	assert.Equal(t, 3, meta["nodes"])
	assert.Equal(t, int64(1), meta["flow"])
	assert.NotContains(t, meta, "negative_cycle")
}

func TestReplay_NegativeCycle(t *testing.T) {
	net, err := network.New(4)
	require.NoError(t, err)
	net.AddEdge(0, 1, 0, 1)
	net.AddEdge(1, 2, -5, 1)
	net.AddEdge(2, 1, 1, 1)
	net.AddEdge(2, 3, 0, 1)

	meta := map[string]any{}
	require.NoError(t, replay(writeDump(t, net), meta))

	assert.Contains(t, meta, "negative_cycle")
}

func TestReplay_MissingDump(t *testing.T) {
	err := replay(filepath.Join(t.TempDir(), "missing.bin"), map[string]any{})
	require.Error(t, err)
	assert.Equal(t, apperror.ExitInput, apperror.ExitCode(err))
}

func TestReplay_CorruptDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	err := replay(path, map[string]any{})
	assert.True(t, apperror.Is(err, apperror.CodeInvalidSnapshot))
}

func TestJoinNodes(t *testing.T) {
	assert.Equal(t, "", joinNodes(nil))
	assert.Equal(t, "1 -> 2 -> 1", joinNodes([]int{1, 2, 1}))
}
