package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"lottery/pkg/apperror"
	"lottery/pkg/audit"
	"lottery/pkg/cache"
)

var (
	auditAction  string
	auditOutcome string
	auditRun     string
	auditSince   time.Duration
	auditLimit   int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the audit trail of lottery commands",
	Long: `Show entries of the audit file (audit.file_path), oldest first.

Examples:
  lottery audit --action SOLVE --limit 10
  lottery audit --outcome FAILURE --since 168h
  lottery audit --run 3f0c...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter := &audit.QueryFilter{
			Action:  audit.Action(strings.ToUpper(auditAction)),
			Outcome: audit.Outcome(strings.ToUpper(auditOutcome)),
			RunID:   auditRun,
			Limit:   auditLimit,
		}
		if auditSince > 0 {
			since := time.Now().Add(-auditSince)
			filter.StartTime = &since
		}

		entries, err := audit.ReadFile(cmd.Context(), cfg.Audit.FilePath, filter)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeInputNotFound, "failed to read audit log").
				WithDetails("path", cfg.Audit.FilePath)
		}

		if len(entries) == 0 {
			pterm.Info.Println("No audit entries")
			return nil
		}

		data := pterm.TableData{{"Time", "Command", "Action", "Outcome", "Operator", "Run", "Seed", "Duration", "Error"}}
		for _, e := range entries {
			data = append(data, []string{
				e.Timestamp.Local().Format(time.DateTime),
				e.Command,
				string(e.Action),
				string(e.Outcome),
				e.Operator,
				e.RunID,
				strconv.FormatInt(e.Seed, 10),
				(time.Duration(e.DurationMs) * time.Millisecond).String(),
				e.ErrorCode,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the assignment cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show assignment cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openRawCache()
		if err != nil {
			return err
		}
		defer c.Close()

		stats, err := c.Stats(cmd.Context())
		if err != nil {
			return apperror.Wrap(err, apperror.CodeCacheFailure, "failed to read cache stats")
		}

		return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"Metric", "Value"},
			{"Backend", stats.Backend},
			{"Keys", strconv.FormatInt(stats.TotalKeys, 10)},
			{"Hits", strconv.FormatInt(stats.Hits, 10)},
			{"Misses", strconv.FormatInt(stats.Misses, 10)},
			{"Hit rate", strconv.FormatFloat(stats.HitRate*100, 'f', 1, 64) + "%"},
			{"Memory", strconv.FormatInt(stats.MemoryBytes, 10) + " B"},
		}).Render()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached assignment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := openRawCache()
		if err != nil {
			return err
		}
		defer c.Close()

		n, err := cache.NewAssignmentCache(c, cfg.Cache.DefaultTTL).InvalidateAll(cmd.Context())
		if err != nil {
			return apperror.Wrap(err, apperror.CodeCacheFailure, "failed to clear cache")
		}

		pterm.Success.Printf("Deleted %d cached assignments\n", n)
		return nil
	},
}

// openRawCache открывает кэш независимо от cache.enabled: команды cache
// работают и с выключенным для solve кэшем.
func openRawCache() (cache.Cache, error) {
	c, err := cache.New(cache.FromConfig(&cfg.Cache))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeCacheFailure, "failed to open assignment cache")
	}
	return c, nil
}

func init() {
	auditCmd.Flags().StringVar(&auditAction, "action", "", "Only entries with this action: SOLVE, REPLAY, EXPORT, MIGRATE")
	auditCmd.Flags().StringVar(&auditOutcome, "outcome", "", "Only entries with this outcome: SUCCESS, FAILURE, CACHED")
	auditCmd.Flags().StringVar(&auditRun, "run", "", "Only entries of this run")
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "Only entries newer than this duration")
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "l", 50, "Maximum number of entries")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
