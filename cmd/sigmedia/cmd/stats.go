package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"sigmedia/internal/attachment"
	"sigmedia/internal/backupdb"
)

var statsCmd = &cobra.Command{
	Use:   "stats <backup-dir>",
	Short: "Show summary statistics for a backup",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	backupDir := args[0]

	dbPath, err := metadataPath(backupDir)
	if err != nil {
		return err
	}
	db, err := backupdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetStats()
	if err != nil {
		return err
	}
	store, err := attachment.ScanDir(backupDir)
	if err != nil {
		return err
	}

	mode := "minimal (flat export)"
	if db.Schema.Full {
		mode = "full (per-conversation export)"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Schema:            %s\n", mode)
	fmt.Fprintf(out, "Messages:          %d\n", stats.MessageCount)
	fmt.Fprintf(out, "Threads:           %d\n", stats.ThreadCount)
	fmt.Fprintf(out, "Attachment rows:   %d\n", stats.PartCount)
	fmt.Fprintf(out, "Attachment blobs:  %d (%s)\n", store.Len(), formatBytes(store.TotalSize()))
	return nil
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
