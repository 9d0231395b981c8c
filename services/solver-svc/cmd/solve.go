package main

import (
	"context"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"lottery/pkg/audit"
	"lottery/pkg/logger"
	"lottery/pkg/metrics"
	"lottery/pkg/telemetry"
	"lottery/services/solver-svc/internal/costmodel"
	"lottery/services/solver-svc/internal/export"
	"lottery/services/solver-svc/internal/loader"
	"lottery/services/solver-svc/internal/report"
	"lottery/services/solver-svc/internal/service"
)

var (
	solveDir         string
	solveSeed        int64
	solveFormats     []string
	solveOutput      string
	solveDump        string
	solveDecisionLog string
	solveVerify      bool
	solveMaxUnenroll int
	solveNoProgress  bool
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run the lottery on the input directory",
	Long: `Run the lottery on the dancers, classes and board files of the input directory.

The input is shuffled by the seed, encoded as a flow network and solved.
Statistics are printed as tables; the assignment is written to the output
directory in every requested format.

Examples:
  lottery solve
  lottery solve --dir input --seed 42
  lottery solve --formats csv,txt,xlsx,pdf,json --output out
  lottery solve --verify --decision-log output/decisions.log`,
	Args: cobra.NoArgs,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveDir, "dir", "d", "", "Input directory (default from input.dir)")
	solveCmd.Flags().Int64VarP(&solveSeed, "seed", "s", 0, "Shuffle seed, 0 picks a random one")
	solveCmd.Flags().StringSliceVarP(&solveFormats, "formats", "f", nil, "Export formats: csv, txt, xlsx, pdf, json")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "Output directory (default from export.dir)")
	solveCmd.Flags().StringVar(&solveDump, "dump", "", "Diagnostic dump path on solver failure")
	solveCmd.Flags().StringVar(&solveDecisionLog, "decision-log", "", "Write every augmentation step to this file")
	solveCmd.Flags().BoolVar(&solveVerify, "verify", false, "Check flow conservation after every augmentation")
	solveCmd.Flags().IntVar(&solveMaxUnenroll, "max-unenroll", 0, "Maximum number of unenrolled members, 0 is unlimited")
	solveCmd.Flags().BoolVar(&solveNoProgress, "no-progress", false, "Do not show the progress bar")
}

// applySolveFlags переносит явно заданные флаги в конфигурацию
func applySolveFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Input.Dir = solveDir
	}
	if flags.Changed("seed") {
		cfg.Input.Seed = solveSeed
	}
	if flags.Changed("formats") {
		cfg.Export.Formats = solveFormats
	}
	if flags.Changed("output") {
		cfg.Export.Dir = solveOutput
	}
	if flags.Changed("dump") {
		cfg.Solver.DumpPath = solveDump
	}
	if flags.Changed("decision-log") {
		cfg.Solver.DecisionLogPath = solveDecisionLog
	}
	if flags.Changed("verify") {
		cfg.Solver.Verify = solveVerify
	}
	if flags.Changed("max-unenroll") {
		cfg.Solver.MaxUnenroll = solveMaxUnenroll
	}
}

func runSolve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	applySolveFlags(cmd)

	// Трассировка
	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg))
	if err != nil {
		logger.Warn("Failed to init telemetry, tracing disabled", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Failed to shutdown telemetry", "error", err)
			}
		}()
	}

	// Метрики
	m := metrics.New(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)
	if cfg.Metrics.Enabled && cfg.Metrics.Port > 0 {
		metricsCtx, stop := context.WithCancel(ctx)
		defer stop()
		go func() {
			if err := m.Serve(metricsCtx, cfg.Metrics.Port); err != nil {
				logger.Warn("Metrics server stopped", "error", err)
			}
		}()
	}
	defer writeMetrics(m)

	policy, err := costmodel.PolicyFromConfig(cfg.Policy)
	if err != nil {
		return err
	}

	assignments, closeCache, err := openCache()
	if err != nil {
		return err
	}
	defer closeCache()

	runs, closeDB, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	auditLog, err := openAudit()
	if err != nil {
		return err
	}
	defer closeAudit(auditLog)

	loadTimer := metrics.NewTimer(m.PhaseDuration, metrics.PhaseLoad)
	in, err := loader.New(cfg.Input).Load(ctx)
	if err != nil {
		return err
	}
	loadTimer.ObserveDuration()
	pterm.Info.Printf("Loaded %d members and %d classes (seed %d)\n", len(in.Persons), len(in.Categories), in.Seed)

	opts := []service.Option{
		service.WithAudit(auditLog),
		service.WithMetrics(m),
		service.WithCommand(cmd.Name()),
	}
	if assignments != nil {
		opts = append(opts, service.WithCache(assignments))
	}
	if runs != nil {
		opts = append(opts, service.WithRepository(runs))
	}

	var bar *report.ProgressBar
	if !solveNoProgress {
		if bar, err = report.StartProgressBar("Solving"); err != nil {
			logger.Debug("Progress bar unavailable", "error", err)
			bar = nil
		} else {
			opts = append(opts, service.WithProgress(bar.Update))
		}
	}

	svc := service.NewLotteryService(service.Settings{
		Policy:           policy,
		Verify:           cfg.Solver.Verify,
		ProgressInterval: cfg.Solver.ProgressInterval,
		MaxUnenroll:      cfg.Solver.MaxUnenroll,
		DecisionLogPath:  cfg.Solver.DecisionLogPath,
		DumpPath:         cfg.Solver.DumpPath,
	}, opts...)

	out, err := svc.Run(ctx, in)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return err
	}

	err = report.NewPrinter(os.Stdout).Render(out.Statistics, report.Summary{
		RunID:         out.RunID,
		Seed:          out.Seed,
		Persons:       len(in.Persons),
		TotalCost:     out.TotalCost,
		Augmentations: out.Augmentations,
		Cached:        out.Cached,
	})
	if err != nil {
		return err
	}
	if len(out.Unplaced) > 0 {
		pterm.Warning.Printf("Unenroll limit of %d reached, %d members have no placement\n", cfg.Solver.MaxUnenroll, len(out.Unplaced))
	}
	if out.Horizon < out.Population {
		pterm.Warning.Printf("Tier priority is guaranteed against at most %d members, %d take part\n", out.Horizon, out.Population)
	}

	exportTimer := metrics.NewTimer(m.PhaseDuration, metrics.PhaseExport)
	defer exportTimer.ObserveDuration()
	return exportOutcome(ctx, auditLog, in, out)
}

// exportOutcome пишет файлы результата и запись аудита о выгрузке
func exportOutcome(ctx context.Context, auditLog audit.Logger, in *loader.Input, out *service.Outcome) error {
	if len(cfg.Export.Formats) == 0 {
		return nil
	}

	start := time.Now()
	rep := &export.Report{
		Title:         cfg.Export.Title,
		RunID:         out.RunID,
		Seed:          out.Seed,
		InputHash:     out.InputHash,
		GeneratedAt:   start,
		Header:        in.Header.Columns(),
		Assignment:    out.Assignment,
		Statistics:    out.Statistics,
		Unplaced:      out.Unplaced,
		TotalCost:     out.TotalCost,
		Augmentations: out.Augmentations,
		Duration:      out.Duration,
	}

	paths, err := export.NewRegistry().WriteAll(ctx, rep, cfg.Export.Dir, cfg.Export.Formats)
	writeAudit(ctx, auditLog, "solve", audit.ActionExport, start, err, map[string]any{
		"run_id": out.RunID,
		"files":  paths,
	})

	for _, p := range paths {
		pterm.Success.Println("Written " + p)
	}
	return err
}

func writeMetrics(m *metrics.Metrics) {
	if cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logger.Warn("Failed to write metrics textfile", "path", cfg.Metrics.TextfilePath, "error", err)
	}
}
