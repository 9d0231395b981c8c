package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery/services/solver-svc/internal/network"
)

type arc struct {
	u, v     int
	cost     int64
	capacity int64
}

func buildNetwork(t *testing.T, nodes int, arcs []arc) *network.Network {
	t.Helper()
	net, err := network.New(nodes)
	require.NoError(t, err)
	for _, a := range arcs {
		net.AddEdge(a.u, a.v, a.cost, a.capacity)
	}
	return net
}

func TestBellmanFord(t *testing.T) {
	tests := []struct {
		name          string
		nodes         int
		arcs          []arc
		flows         [][3]int64 // u, v, flow applied before the call
		wantDistance  int64
		wantDistances []int64
		wantParents   []int
	}{
		{
			name:          "linear",
			nodes:         4,
			arcs:          []arc{{0, 1, 1, 1}, {1, 2, 2, 1}, {2, 3, 3, 1}},
			wantDistance:  6,
			wantDistances: []int64{0, 1, 3, 6},
			wantParents:   []int{network.NoParent, 0, 1, 2},
		},
		{
			name:          "cheaper of two paths",
			nodes:         4,
			arcs:          []arc{{0, 1, 2, 1}, {0, 2, 1, 1}, {1, 3, 3, 1}, {2, 3, 3, 1}},
			wantDistance:  4,
			wantDistances: []int64{0, 2, 1, 4},
			wantParents:   []int{network.NoParent, 0, 0, 2},
		},
		{
			name:          "tie keeps insertion order",
			nodes:         4,
			arcs:          []arc{{0, 1, 1, 1}, {0, 2, 1, 1}, {1, 3, 1, 1}, {2, 3, 1, 1}},
			wantDistance:  2,
			wantDistances: []int64{0, 1, 1, 2},
			wantParents:   []int{network.NoParent, 0, 0, 1},
		},
		{
			name:          "negative arc",
			nodes:         4,
			arcs:          []arc{{0, 1, 5, 1}, {0, 2, 1, 1}, {1, 3, -4, 1}, {2, 3, 2, 1}},
			wantDistance:  1,
			wantDistances: []int64{0, 5, 1, 1},
			wantParents:   []int{network.NoParent, 0, 0, 1},
		},
		{
			name:          "saturated arc is skipped",
			nodes:         3,
			arcs:          []arc{{0, 1, 1, 1}, {1, 2, 1, 1}},
			flows:         [][3]int64{{0, 1, 1}, {1, 2, 1}},
			wantDistance:  network.Infinity,
			wantDistances: []int64{0, network.Infinity, network.Infinity},
			wantParents:   []int{network.NoParent, network.NoParent, network.NoParent},
		},
		{
			name:  "residual arc has inverted cost",
			nodes: 4,
			arcs: []arc{
				{0, 1, 1, 1}, {0, 2, 10, 1}, {1, 3, 10, 1}, {1, 2, 1, 1}, {2, 3, 1, 1},
			},
			flows:         [][3]int64{{0, 1, 1}, {1, 2, 1}, {2, 3, 1}},
			wantDistance:  19,
			wantDistances: []int64{0, 9, 10, 19},
			wantParents:   []int{network.NoParent, 2, 0, 1},
		},
		{
			name:          "unreachable sink",
			nodes:         3,
			arcs:          []arc{{0, 1, 1, 1}},
			wantDistance:  network.Infinity,
			wantDistances: []int64{0, 1, network.Infinity},
			wantParents:   []int{network.NoParent, 0, network.NoParent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := buildNetwork(t, tt.nodes, tt.arcs)
			for _, f := range tt.flows {
				net.SetFlow(int(f[0]), int(f[1]), f[2])
			}

			res := BellmanFord(net)

			assert.Equal(t, tt.wantDistance, res.Distance)
			assert.Equal(t, net.Sink(), res.Node)
			assert.False(t, res.HasNegativeCycle())
			assert.Equal(t, tt.wantDistance == network.Infinity, res.Converged())
			assert.LessOrEqual(t, res.Passes, tt.nodes)

			for u := 0; u < tt.nodes; u++ {
				assert.Equal(t, tt.wantDistances[u], net.Distance(u), "distance of %d", u)
				assert.Equal(t, tt.wantParents[u], net.Parent(u), "parent of %d", u)
			}
		})
	}
}

func TestBellmanFord_EarlyExit(t *testing.T) {
	net := buildNetwork(t, 4, []arc{{0, 1, 1, 1}, {1, 2, 1, 1}, {2, 3, 1, 1}})

	res := BellmanFord(net)

	// nodes are relaxed in index order, so one pass settles the chain and
	// the second one sees no update
	assert.Equal(t, 2, res.Passes)
}

func TestBellmanFord_ResetsScratch(t *testing.T) {
	net := buildNetwork(t, 3, []arc{{0, 1, 1, 1}})
	net.SetDistance(2, -7)
	net.SetParent(2, 1)

	res := BellmanFord(net)

	assert.True(t, res.Converged())
	assert.Equal(t, network.Infinity, net.Distance(2))
	assert.Equal(t, network.NoParent, net.Parent(2))
}

func TestBellmanFord_NegativeCycle(t *testing.T) {
	net := buildNetwork(t, 4, []arc{
		{0, 1, 0, 1},
		{1, 2, -5, 1},
		{2, 1, 1, 1},
		{2, 3, 0, 1},
	})

	res := BellmanFord(net)

	require.True(t, res.HasNegativeCycle())
	assert.Equal(t, network.NegativeInfinity, res.Distance)
	assert.Equal(t, net.NumNodes()+1, res.Passes)
	assert.ElementsMatch(t, []int{1, 2}, res.Cycle)
	assert.Contains(t, res.Cycle, res.Node)
	assert.Equal(t, res.Node, res.Cycle[len(res.Cycle)-1])
}
