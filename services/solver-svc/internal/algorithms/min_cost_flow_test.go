package algorithms

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lottery/pkg/apperror"
	"lottery/services/solver-svc/internal/network"
)

type recorderFunc func(d Decision)

func (f recorderFunc) Record(d Decision) { f(d) }

type decisions []Decision

func (d *decisions) Record(dec Decision) { *d = append(*d, dec) }

func TestSolve(t *testing.T) {
	tests := []struct {
		name              string
		nodes             int
		arcs              []arc
		wantCost          int64
		wantAugmentations int
		wantFlows         [][3]int64
	}{
		{
			name:              "diamond",
			nodes:             4,
			arcs:              []arc{{0, 1, 2, 1}, {0, 2, 5, 1}, {1, 3, 1, 1}, {2, 3, 1, 1}},
			wantCost:          9,
			wantAugmentations: 2,
			wantFlows:         [][3]int64{{0, 1, 1}, {0, 2, 1}, {1, 3, 1}, {2, 3, 1}},
		},
		{
			name:  "second path cancels the first",
			nodes: 4,
			arcs: []arc{
				{0, 1, 1, 1}, {0, 2, 10, 1}, {1, 3, 10, 1}, {1, 2, 1, 1}, {2, 3, 1, 1},
			},
			wantCost:          22,
			wantAugmentations: 2,
			wantFlows:         [][3]int64{{0, 1, 1}, {0, 2, 1}, {1, 3, 1}, {1, 2, 0}, {2, 3, 1}},
		},
		{
			name:              "capacity two on one arc",
			nodes:             3,
			arcs:              []arc{{0, 1, 3, 2}, {1, 2, -1, 5}},
			wantCost:          4,
			wantAugmentations: 2,
			wantFlows:         [][3]int64{{0, 1, 2}, {1, 2, 2}},
		},
		{
			name:              "no path",
			nodes:             3,
			arcs:              []arc{{0, 1, 1, 1}},
			wantCost:          0,
			wantAugmentations: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := buildNetwork(t, tt.nodes, tt.arcs)

			res, err := Solve(context.Background(), net, WithVerify(true))
			require.NoError(t, err)

			assert.Equal(t, tt.wantCost, res.TotalCost)
			assert.Equal(t, tt.wantAugmentations, res.Augmentations)
			assert.Equal(t, int64(tt.wantAugmentations), res.Flow)
			assert.Equal(t, tt.wantCost, RecomputeCost(net))
			for _, f := range tt.wantFlows {
				assert.Equal(t, f[2], net.Flow(int(f[0]), int(f[1])), "flow on (%d, %d)", f[0], f[1])
			}
		})
	}
}

func TestSolve_RecordsDecisions(t *testing.T) {
	net := buildNetwork(t, 4, []arc{
		{0, 1, 1, 1}, {0, 2, 10, 1}, {1, 3, 10, 1}, {1, 2, 1, 1}, {2, 3, 1, 1},
	})

	var log decisions
	_, err := Solve(context.Background(), net, WithRecorder(&log))
	require.NoError(t, err)

	require.Len(t, log, 2)
	assert.Equal(t, Decision{Step: 1, Path: []int{0, 1, 2, 3}, FlowDelta: 1, CostDelta: 3}, log[0])
	assert.Equal(t, Decision{Step: 2, Path: []int{0, 2, 1, 3}, FlowDelta: 1, CostDelta: 19}, log[1])
}

func TestSolve_NegativeCycleIsFatal(t *testing.T) {
	net := buildNetwork(t, 4, []arc{
		{0, 1, 0, 1},
		{1, 2, -5, 1},
		{2, 1, 1, 1},
		{2, 3, 0, 1},
	})

	var log decisions
	res, err := Solve(context.Background(), net, WithRecorder(&log))
	require.Error(t, err)
	assert.Nil(t, res)

	var fe *network.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, apperror.CodeNegativeCycle, fe.Code())
	require.NotNil(t, fe.Snapshot)
	assert.Equal(t, net.NumNodes(), fe.Snapshot.NumNodes)

	require.Len(t, log, 1)
	assert.True(t, log[0].Cycle)
	assert.ElementsMatch(t, []int{1, 2}, log[0].Path)
}

func TestSolve_Progress(t *testing.T) {
	net := buildNetwork(t, 4, []arc{{0, 1, 2, 1}, {0, 2, 5, 1}, {1, 3, 1, 1}, {2, 3, 1, 1}})

	var reports []Progress
	_, err := Solve(context.Background(), net,
		WithExpectedFlow(2),
		WithProgress(func(p Progress) { reports = append(reports, p) }, time.Nanosecond),
	)
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, int64(2), last.Done)
	assert.InDelta(t, 100.0, last.Percent(), 1e-9)
	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i].Done, reports[i-1].Done)
	}
}

func TestProgress_Percent(t *testing.T) {
	assert.InDelta(t, 25.0, Progress{Done: 1, Expected: 4}.Percent(), 1e-9)
	assert.InDelta(t, 100.0, Progress{Done: 0, Expected: 0}.Percent(), 1e-9)
}

// randomLottery builds a layered network shaped like an encoded lottery:
// persons with up to three choices and a withdraw arc, categories with three
// capacity bands.
func randomLottery(t *testing.T, seed uint64) *network.Network {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	const persons, categories = 12, 4
	withdraw := 1 + persons + categories
	firstTier := withdraw + 1
	nodes := firstTier + 3*categories + 1
	sink := nodes - 1

	net, err := network.New(nodes)
	require.NoError(t, err)

	for p := 1; p <= persons; p++ {
		capacity := int64(1)
		if rng.IntN(4) == 0 {
			capacity = 2
		}
		net.AddEdge(0, p, int64(rng.IntN(5))*12, capacity)

		for _, c := range rng.Perm(categories)[:1+rng.IntN(3)] {
			net.AddEdge(p, 1+persons+c, int64(rng.IntN(40)-3), 1)
		}
		net.AddEdge(p, withdraw, 200, 1)
	}

	for c := 0; c < categories; c++ {
		node := 1 + persons + c
		minimum := int64(rng.IntN(2))
		standard := int64(1 + rng.IntN(2))
		overflow := int64(rng.IntN(2))
		for band, capacity := range []int64{minimum, standard, overflow} {
			tier := firstTier + 3*c + band
			net.AddEdge(node, tier, []int64{0, 1, 50}[band], capacity)
			net.AddEdge(tier, sink, 0, network.Unbounded)
		}
	}
	net.AddEdge(withdraw, sink, 0, network.Unbounded)

	return net
}

func TestSolve_ConservationAfterEveryAugmentation(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		net := randomLottery(t, seed)

		checked := 0
		rec := recorderFunc(func(d Decision) {
			require.NoError(t, CheckConservation(net), "seed %d step %d", seed, d.Step)
			checked++
		})

		res, err := Solve(context.Background(), net, WithRecorder(rec))
		require.NoError(t, err, "seed %d", seed)

		assert.Equal(t, res.Augmentations, checked)
		assert.Equal(t, res.TotalCost, RecomputeCost(net), "seed %d", seed)
		assert.Equal(t, int64(res.Augmentations), res.Flow)
	}
}

func TestSolve_Deterministic(t *testing.T) {
	for seed := uint64(1); seed <= 5; seed++ {
		first := randomLottery(t, seed)
		second := randomLottery(t, seed)

		r1, err := Solve(context.Background(), first)
		require.NoError(t, err)
		r2, err := Solve(context.Background(), second)
		require.NoError(t, err)

		assert.Equal(t, r1.TotalCost, r2.TotalCost)
		assert.Equal(t, r1.Augmentations, r2.Augmentations)
		assert.Equal(t, first.Snapshot().Flow, second.Snapshot().Flow)
	}
}

func TestSolve_MaxFlow(t *testing.T) {
	// every person can always reach the sink through withdraw, so a max
	// flow routes at least one unit per person and leaves the sink unreachable
	for seed := uint64(1); seed <= 10; seed++ {
		net := randomLottery(t, seed)

		_, err := Solve(context.Background(), net)
		require.NoError(t, err)

		for _, p := range net.Neighbors(net.Source()) {
			assert.GreaterOrEqual(t, net.Flow(net.Source(), p), int64(1), "seed %d person %d", seed, p)
		}

		oracle := BellmanFord(net)
		assert.True(t, oracle.Converged(), "seed %d", seed)
	}
}
