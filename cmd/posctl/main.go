package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go-pos-ledger/internal/app"
	"go-pos-ledger/internal/config"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/export"
	"go-pos-ledger/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	backupDir string
	outPath   string

	rootCmd = &cobra.Command{
		Use:          "posctl",
		Short:        "Maintenance commands for the POS ledger",
		SilenceUsage: true,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and report the schema version",
		RunE:  runMigrate,
	}

	backupCmd = &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the SQLite store",
		RunE:  runBackup,
	}

	restoreCmd = &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace products, customers, sales and repairs with a backup's contents",
		Args:  cobra.ExactArgs(1),
		RunE:  runRestore,
	}

	dashboardCmd = &cobra.Command{
		Use:   "dashboard",
		Short: "Print today's dashboard figures as JSON",
		RunE:  runDashboard,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Export every sale to an xlsx workbook",
		RunE:  runExport,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stdout")
	backupCmd.Flags().StringVar(&backupDir, "dir", "", "backup directory (defaults to backup_dir from config)")
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (defaults to sales_<timestamp>.xlsx)")

	rootCmd.AddCommand(migrateCmd, backupCmd, restoreCmd, dashboardCmd, exportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// open loads config and builds the app. Logs are discarded unless --verbose,
// so command output stays machine readable.
func open() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	var log *logrus.Logger
	if verbose {
		log = config.NewLogger(cfg.LogLevel)
	} else {
		log = config.DiscardLogger()
	}
	return app.New(cfg, log)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	pos, err := open()
	if err != nil {
		return err
	}
	defer pos.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (latest %d)\n", pos.Schema.Version, database.LatestVersion())
	if pos.Schema.Capabilities.LegacyRepairDateIn {
		fmt.Fprintln(cmd.OutOrStdout(), "legacy repairs.date_in column present")
	}
	return nil
}

func runBackup(cmd *cobra.Command, args []string) error {
	pos, err := open()
	if err != nil {
		return err
	}
	defer pos.Close()

	dir := backupDir
	if dir == "" {
		dir = pos.Config.BackupDir
	}
	path, err := database.Backup(pos.DB.WithContext(cmd.Context()), dir, utils.GetDeviceID())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	pos, err := open()
	if err != nil {
		return err
	}
	defer pos.Close()

	ctx := cmd.Context()
	if err := database.Restore(pos.DB.WithContext(ctx), args[0]); err != nil {
		return err
	}
	// A shared Redis cache may still hold figures from before the restore.
	if err := pos.Handler.Reports.Invalidate(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored from %s\n", args[0])
	return nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	pos, err := open()
	if err != nil {
		return err
	}
	defer pos.Close()

	ctx := cmd.Context()
	stats, err := pos.Handler.Reports.DashboardStats(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func runExport(cmd *cobra.Command, args []string) error {
	pos, err := open()
	if err != nil {
		return err
	}
	defer pos.Close()

	ctx := cmd.Context()
	txns, err := pos.Handler.Sales.ListTransactions(ctx)
	if err != nil {
		return err
	}

	loc := pos.Handler.Reports.Location()
	path := outPath
	if path == "" {
		path = export.FileName(time.Now().In(loc))
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteTransactions(f, txns, loc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d sales written to %s\n", len(txns), path)
	return nil
}
