package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"lottery/pkg/apperror"
	"lottery/pkg/audit"
	"lottery/services/solver-svc/internal/algorithms"
	"lottery/services/solver-svc/internal/network"
)

var replayCmd = &cobra.Command{
	Use:   "replay <dump>",
	Short: "Inspect a diagnostic dump written by a failed solve",
	Long: `Rebuild the network from a diagnostic dump and run the shortest path
oracle on it once more.

The report shows the network size, the flow and its cost, whether flow is
conserved, and the oracle result: the sink distance, or the negative cycle
that stopped the solver.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	auditLog, err := openAudit()
	if err != nil {
		return err
	}
	defer closeAudit(auditLog)

	meta := map[string]any{"dump": args[0]}
	err = replay(args[0], meta)
	writeAudit(ctx, auditLog, cmd.Name(), audit.ActionReplay, start, err, meta)
	return err
}

func replay(path string, meta map[string]any) error {
	f, err := os.Open(path)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInputNotFound, "failed to open dump").WithDetails("path", path)
	}
	defer f.Close()

	snap, err := network.ReadSnapshot(f)
	if err != nil {
		return err
	}
	net, err := network.FromSnapshot(snap)
	if err != nil {
		return err
	}

	var flow int64
	for _, v := range net.Neighbors(net.Source()) {
		if f := net.Flow(net.Source(), v); f > 0 {
			flow += f
		}
	}

	conservation := "ok"
	if err := algorithms.CheckConservation(net); err != nil {
		conservation = err.Error()
	}

	oracle := algorithms.BellmanFord(net)

	data := pterm.TableData{
		{"Property", "Value"},
		{"Nodes", strconv.Itoa(net.NumNodes())},
		{"Arcs", strconv.Itoa(net.Arcs())},
		{"Flow", strconv.FormatInt(flow, 10)},
		{"Cost", strconv.FormatInt(algorithms.RecomputeCost(net), 10)},
		{"Conservation", conservation},
		{"Oracle passes", strconv.Itoa(oracle.Passes)},
	}

	switch {
	case oracle.HasNegativeCycle():
		data = append(data,
			[]string{"Oracle", "negative cycle"},
			[]string{"Cycle", joinNodes(oracle.Cycle)},
		)
		meta["negative_cycle"] = oracle.Cycle
	case oracle.Converged():
		data = append(data, []string{"Oracle", "converged, sink unreachable"})
	default:
		data = append(data, []string{"Oracle", "augmenting path of cost " + strconv.FormatInt(oracle.Distance, 10)})
	}

	meta["nodes"] = net.NumNodes()
	meta["flow"] = flow

	pterm.DefaultSection.Println("Replay " + path)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func joinNodes(nodes []int) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " -> ")
}
