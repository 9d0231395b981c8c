package algorithms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lottery/pkg/apperror"
	"lottery/pkg/logger"
	"lottery/services/solver-svc/internal/network"
)

// =============================================================================
// Successive Shortest Augmenting Path
// =============================================================================
//
// Solve pushes one unit of flow along the oracle's shortest path until the
// sink becomes unreachable. Every person arc has capacity 1 or 2 and every
// person holds at most two units, so unit pushes are exact and the number
// of augmentations equals the final flow.
//
// Time Complexity: O(F * V * E) with F the max flow
// =============================================================================

// DefaultProgressInterval is the minimum time between two progress reports.
const DefaultProgressInterval = 200 * time.Millisecond

// Decision describes one solver step.
type Decision struct {
	// Step is the 1-based step number.
	Step int
	// Path lists the nodes from source to sink, or the cycle nodes.
	Path []int
	// FlowDelta is the flow pushed, always 1.
	FlowDelta int64
	// CostDelta is the signed cost change of the step.
	CostDelta int64
	// Cycle marks the attempted step that hit a negative cycle.
	Cycle bool
}

// Recorder receives every completed step and every attempted cycle.
type Recorder interface {
	Record(d Decision)
}

// Progress is passed to the progress callback.
type Progress struct {
	Done     int64
	Expected int64
	Elapsed  time.Duration
}

// Percent returns Done as a percentage of Expected.
func (p Progress) Percent() float64 {
	if p.Expected <= 0 {
		return 100
	}
	return float64(p.Done) / float64(p.Expected) * 100
}

// ProgressFunc is called at most once per progress interval.
type ProgressFunc func(p Progress)

// Result is the outcome of a converged solve.
type Result struct {
	TotalCost     int64
	Augmentations int
	Passes        int
	Flow          int64
	Duration      time.Duration
}

// Option configures Solve.
type Option func(*options)

type options struct {
	verify   bool
	recorder Recorder
	progress ProgressFunc
	interval time.Duration
	expected int64
	logger   *slog.Logger
}

// WithVerify checks conservation after every augmentation.
func WithVerify(verify bool) Option {
	return func(o *options) {
		o.verify = verify
	}
}

// WithRecorder hands every decision to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithProgress reports progress to fn at most once per interval.
// A non-positive interval selects DefaultProgressInterval.
func WithProgress(fn ProgressFunc, interval time.Duration) Option {
	return func(o *options) {
		o.progress = fn
		if interval > 0 {
			o.interval = interval
		}
	}
}

// WithExpectedFlow sets the flow progress is measured against.
func WithExpectedFlow(expected int64) Option {
	return func(o *options) {
		o.expected = expected
	}
}

// WithLogger sets the logger for solver diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

type discardRecorder struct{}

func (discardRecorder) Record(Decision) {}

// Solve runs the solver on net until convergence. net is mutated in place.
//
// The solve is not cancellable; ctx only carries the active span. Failures
// are *network.FatalError values carrying a snapshot of net.
func Solve(ctx context.Context, net *network.Network, opts ...Option) (res *Result, err error) {
	o := &options{
		recorder: discardRecorder{},
		interval: DefaultProgressInterval,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, network.FromPanic(r, net)
		}
	}()

	span := trace.SpanFromContext(ctx)
	start := time.Now()
	lastReport := start
	res = &Result{}

	for {
		oracle := BellmanFord(net)
		res.Passes += oracle.Passes

		if oracle.Converged() {
			break
		}

		if oracle.HasNegativeCycle() || oracle.Node != net.Sink() {
			o.recorder.Record(Decision{
				Step:  res.Augmentations + 1,
				Path:  oracle.Cycle,
				Cycle: true,
			})
			span.AddEvent("negative cycle", trace.WithAttributes(
				attribute.Int("lottery.cycle.node", oracle.Node),
				attribute.Int("lottery.cycle.length", len(oracle.Cycle)),
			))
			o.logger.Error("negative cost cycle in residual graph",
				"node", oracle.Node, "cycle", oracle.Cycle, "step", res.Augmentations+1)

			return nil, network.NewFatal(apperror.CodeNegativeCycle,
				fmt.Sprintf("negative cost cycle through node %d", oracle.Node), net).
				WithDetails("cycle", oracle.Cycle)
		}

		path, err := tracePath(net)
		if err != nil {
			return nil, err
		}

		delta := augment(net, path)
		res.TotalCost += delta
		res.Augmentations++

		if o.verify {
			if err := CheckConservation(net); err != nil {
				o.logger.Error("flow conservation violated", "step", res.Augmentations, "error", err)
				return nil, err
			}
		}

		o.recorder.Record(Decision{
			Step:      res.Augmentations,
			Path:      path,
			FlowDelta: 1,
			CostDelta: delta,
		})

		if o.progress != nil && time.Since(lastReport) >= o.interval {
			lastReport = time.Now()
			o.progress(Progress{Done: int64(res.Augmentations), Expected: o.expected, Elapsed: lastReport.Sub(start)})
		}
	}

	res.Flow = sourceOutflow(net)
	res.Duration = time.Since(start)

	if o.progress != nil {
		o.progress(Progress{Done: int64(res.Augmentations), Expected: o.expected, Elapsed: res.Duration})
	}

	span.AddEvent("solve converged", trace.WithAttributes(
		attribute.Int("lottery.solver.augmentations", res.Augmentations),
		attribute.Int("lottery.solver.passes", res.Passes),
		attribute.Int64("lottery.solver.total_cost", res.TotalCost),
	))
	o.logger.Debug("solve converged",
		"augmentations", res.Augmentations,
		"passes", res.Passes,
		"total_cost", res.TotalCost,
		"flow", res.Flow,
		"duration", res.Duration,
	)

	return res, nil
}

// tracePath walks parent pointers from the sink and returns the path
// source first. A walk longer than V steps means the parent tree is broken.
func tracePath(net *network.Network) ([]int, error) {
	path := []int{net.Sink()}
	for cur := net.Sink(); cur != net.Source(); {
		p := net.Parent(cur)
		if p == network.NoParent || len(path) > net.NumNodes() {
			return nil, network.NewFatal(apperror.CodeNegativeCycle,
				fmt.Sprintf("parent walk from sink does not reach the source (stuck at %d)", cur), net).
				WithDetails("path", path)
		}
		path = append(path, p)
		cur = p
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// augment pushes one unit along path and returns the cost change.
// An arc with capacity is pushed forward, any other step cancels flow on
// the opposite forward arc.
func augment(net *network.Network, path []int) int64 {
	var delta int64
	for i := 1; i < len(path); i++ {
		p, cur := path[i-1], path[i]
		if net.Capacity(p, cur) > 0 {
			net.AddFlow(p, cur, 1)
			delta += net.Cost(p, cur)
		} else {
			net.AddFlow(cur, p, -1)
			delta -= net.Cost(cur, p)
		}
	}
	return delta
}

func sourceOutflow(net *network.Network) int64 {
	var out int64
	src := net.Source()
	for _, v := range net.Neighbors(src) {
		out += net.Flow(src, v)
	}
	return out
}
