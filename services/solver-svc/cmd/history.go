package main

import (
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"lottery/pkg/audit"
	"lottery/pkg/database"
	"lottery/services/solver-svc/internal/repository"
	"lottery/services/solver-svc/migrations"
)

var (
	historyLimit  int
	historyOffset int
	historyHash   string
	migrateDown   bool
	pruneKeep     int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored lottery runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runs, closeDB, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		if runs == nil {
			return errDatabaseDisabled
		}

		list, total, err := runs.List(ctx, &repository.ListOptions{
			Limit:     historyLimit,
			Offset:    historyOffset,
			InputHash: historyHash,
		})
		if err != nil {
			return asDatabaseError(err, "failed to list runs")
		}

		if len(list) == 0 {
			pterm.Info.Println("No runs stored")
			return nil
		}

		data := pterm.TableData{{"Run", "Created", "Status", "Seed", "Persons", "Placed", "Unenrolled", "Cost", "Duration"}}
		for _, r := range list {
			status := string(r.Status)
			if r.ErrorCode != "" {
				status += " (" + r.ErrorCode + ")"
			}
			data = append(data, []string{
				r.ID,
				r.CreatedAt.Local().Format(time.DateTime),
				status,
				strconv.FormatInt(r.Seed, 10),
				strconv.Itoa(r.Persons),
				strconv.Itoa(r.Placed),
				strconv.Itoa(r.Withdrawn),
				strconv.FormatInt(r.TotalCost, 10),
				(time.Duration(r.DurationMs) * time.Millisecond).String(),
			})
		}

		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
		pterm.Info.Printf("%d of %d runs\n", len(list), total)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summary of stored lottery runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runs, closeDB, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		if runs == nil {
			return errDatabaseDisabled
		}

		stats, err := runs.Statistics(ctx)
		if err != nil {
			return asDatabaseError(err, "failed to read run statistics")
		}

		last := "never"
		if stats.LastRunAt != nil {
			last = stats.LastRunAt.Local().Format(time.DateTime)
		}

		return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"Metric", "Value"},
			{"Runs", strconv.Itoa(stats.TotalRuns)},
			{"Failed", strconv.Itoa(stats.FailedRuns)},
			{"Cached", strconv.Itoa(stats.CachedRuns)},
			{"Distinct inputs", strconv.Itoa(stats.DistinctInputs)},
			{"Average duration", strconv.FormatFloat(stats.AverageDurationMs, 'f', 1, 64) + " ms"},
			{"Average unenrolled", strconv.FormatFloat(stats.AverageWithdrawn, 'f', 2, 64)},
			{"Last run", last},
		}).Render()
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored runs except the newest ones",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runs, closeDB, err := openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		if runs == nil {
			return errDatabaseDisabled
		}

		deleted, err := runs.Prune(ctx, pruneKeep)
		if err != nil {
			return asDatabaseError(err, "failed to prune runs")
		}

		pterm.Success.Printf("Deleted %d runs, kept the newest %d\n", deleted, pruneKeep)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply run history migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		start := time.Now()

		if !cfg.Database.Enabled {
			return errDatabaseDisabled
		}

		auditLog, err := openAudit()
		if err != nil {
			return err
		}
		defer closeAudit(auditLog)

		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return asDatabaseError(err, "failed to connect")
		}
		defer db.Close()

		m := database.NewMigrator(db.Pool(), migrations.FS, migrations.Dir)
		if migrateDown {
			err = m.Down(ctx)
		} else {
			err = m.Up(ctx)
		}

		var version int64
		if err == nil {
			version, err = m.Version(ctx)
		}
		writeAudit(ctx, auditLog, cmd.Name(), audit.ActionMigrate, start, err, map[string]any{
			"down":    migrateDown,
			"version": version,
		})
		if err != nil {
			return err
		}

		pterm.Success.Printf("Schema version %d\n", version)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of runs to display")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Number of runs to skip")
	historyCmd.Flags().StringVar(&historyHash, "input", "", "Only runs with this input hash")

	pruneCmd.Flags().IntVar(&pruneKeep, "keep", 100, "Number of newest runs to keep")

	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll back the last migration")
}
