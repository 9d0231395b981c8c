// Package main is the lottery command line tool.
//
// The lottery assigns the members of a dance association to dance classes.
// Every member lists up to three choices; the assignment is the minimum cost
// maximum flow of a network built from those choices, the class capacities
// and the priority tier of each member.
//
// Commands:
//
//	lottery solve            run the lottery on the files in the input directory
//	lottery replay <dump>    rerun the oracle on a diagnostic dump
//	lottery history          list stored runs (database.enabled)
//	lottery stats            summary of stored runs (database.enabled)
//	lottery prune --keep N   delete all but the newest N stored runs
//	lottery migrate          apply database migrations
//	lottery audit            show the audit trail
//	lottery cache clear      delete cached assignments (cache stats shows usage)
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Command line flags
//  2. Environment variables (prefix: LOTTERY_)
//  3. Config files (lottery.yaml, config.yaml, config/config.yaml, /etc/lottery/config.yaml)
//  4. Default values
//
// The process exit status follows the error code of the failure:
// 2 for bad input, 3 for a bad cost policy, 70 for a solver core failure
// (a diagnostic dump is written) and 74 for storage or export failures.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"lottery/pkg/apperror"
	"lottery/pkg/config"
	"lottery/pkg/logger"
)

// version задаётся при сборке через -ldflags "-X main.version=..."
var version = "dev"

var (
	configFile string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lottery",
	Short: "Fair assignment of dance association members to classes",
	Long: `lottery assigns members to dance classes by minimum cost maximum flow.

Members are placed by priority tier (board, half-year, returning, new)
and by the order of their choices. Members that cannot be placed are
unenrolled; the seed makes every run reproducible.

Examples:
  lottery solve --dir input --seed 42
  lottery solve --formats csv,xlsx,pdf
  lottery replay output/dump.bin
  lottery history --limit 10`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var opts []config.LoaderOption
		if configFile != "" {
			opts = append(opts, config.WithConfigFile(configFile))
		}

		loaded, err := config.NewLoader(opts...).Load()
		if err != nil {
			return apperror.Wrap(err, apperror.CodeInvalidArgument, "failed to load config")
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		if loaded.App.Version == "" || version != "dev" {
			loaded.App.Version = version
		}
		cfg = loaded

		logger.InitWithConfig(logger.Config{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			Output:     cfg.Log.Output,
			FilePath:   cfg.Log.FilePath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	pterm.Error.Println(err)

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		for k, v := range appErr.Details {
			pterm.Println(fmt.Sprintf("  %s: %v", k, v))
		}
	}

	os.Exit(apperror.ExitCode(err))
}
