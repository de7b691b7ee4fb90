package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Matcry12/careervr/pkg/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Backfill missing fields on stored posts",
	RunE:  runMigrate,
}

var repairCmd = &cobra.Command{
	Use:   "repair-ownership",
	Short: "Make ownerActor and authorUsername agree on stored posts",
	RunE:  runRepair,
}

var syncJobsCmd = &cobra.Command{
	Use:   "sync-jobs",
	Short: "Replace the job catalog with a JSON list",
	RunE:  runSyncJobs,
}

var (
	repairDryRun   bool
	repairLimit    int
	syncFile       string
	syncAllowEmpty bool
)

func init() {
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", true, "Report what would change without writing")
	repairCmd.Flags().IntVar(&repairLimit, "limit", 0, "Change at most this many posts (0 means no limit)")
	syncJobsCmd.Flags().StringVarP(&syncFile, "file", "f", "", "Path to the catalog JSON, - for stdin (required)")
	syncJobsCmd.Flags().BoolVar(&syncAllowEmpty, "allow-empty", false, "Accept an empty catalog")
	_ = syncJobsCmd.MarkFlagRequired("file")
}

// printReport writes v as indented JSON and turns a failed result into an
// error so the process exits non-zero.
func printReport(w io.Writer, v any, res repository.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("%s: %s", res.Kind, res.Reason)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, res := a.migrator.NormalizeSchema(ctx)
	return printReport(cmd.OutOrStdout(), rep, res)
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, res := a.migrator.RepairOwnership(ctx, repairDryRun, repairLimit)
	return printReport(cmd.OutOrStdout(), rep, res)
}

func runSyncJobs(cmd *cobra.Command, args []string) error {
	payload, err := readCatalog(cmd.InOrStdin(), syncFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.repos.Jobs.SyncJobs(ctx, payload, syncAllowEmpty)
	return printReport(cmd.OutOrStdout(), res, res)
}

func readCatalog(stdin io.Reader, path string) (any, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var payload any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return payload, nil
}
