package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sigmedia/internal/backupdb"
)

var listThreadsCmd = &cobra.Command{
	Use:   "list-threads <backup-dir>",
	Short: "List conversations in a backup with their thread ids",
	Long: `List every conversation thread in a decrypted backup, with the id
usable as a --thread filter for dump-media and the resolved chat partner
name. Requires a complete backup; incomplete backups carry no thread table.`,
	Args: cobra.ExactArgs(1),
	RunE: runListThreads,
}

func runListThreads(cmd *cobra.Command, args []string) error {
	dbPath, err := metadataPath(args[0])
	if err != nil {
		return err
	}
	db, err := backupdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	threads, err := db.ListThreads()
	if errors.Is(err, backupdb.ErrMinimalSchema) {
		return fmt.Errorf("cannot list threads: %w", err)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCONVERSATION\tMESSAGES")
	for _, t := range threads {
		name := t.ChatPartner
		if name == "" {
			name = fmt.Sprintf("Contact %d", t.ID)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\n", t.ID, name, t.MessageCount)
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(listThreadsCmd)
}
