package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"sigmedia/internal/attachment"
	"sigmedia/internal/backupdb"
	"sigmedia/internal/mediaexport"
)

var (
	dumpMediaOutput     string
	dumpMediaThreads    []int64
	dumpMediaDateRanges []string
	dumpMediaOverwrite  bool
)

var dumpMediaCmd = &cobra.Command{
	Use:   "dump-media <backup-dir>",
	Short: "Export all attachments as individual files, organized by conversation",
	Long: `Export every attachment of a decrypted backup to an output directory.

With a complete backup, files land in {conversation}/{sent|received}/
subdirectories named after the chat partner; incomplete backups without the
message and thread tables are exported flat. Existing files are never
overwritten — colliding names get a " (2)"-style counter suffix.

Each file's modification time is set to the message timestamp.

Examples:
  sigmedia dump-media ./decrypted -o ~/signal-media
  sigmedia dump-media ./decrypted --thread 4 --thread 11
  sigmedia dump-media ./decrypted --daterange "2023-01-01,2023-06-30"`,
	Args: cobra.ExactArgs(1),
	RunE: runDumpMedia,
}

func runDumpMedia(cmd *cobra.Command, args []string) error {
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

	store, err := attachment.ScanDir(backupDir)
	if err != nil {
		return err
	}
	if store.Len() == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No attachments in this backup.")
		return nil
	}

	ranges, err := parseDateRangeFlags(dumpMediaDateRanges)
	if err != nil {
		return err
	}
	filter := backupdb.CompileFilter(db.Schema, dumpMediaThreads, ranges, logger)

	outputDir := dumpMediaOutput
	if outputDir == "" {
		outputDir = cfg.Export.OutputDir
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	exporter := &mediaexport.Exporter{
		DB:      db,
		BaseDir: outputDir,
		Filter:  filter,
		Logger:  logger,
	}
	if err := exporter.PrepareBaseDir(dumpMediaOverwrite || cfg.Export.Overwrite); err != nil {
		return err
	}

	logger.Info("dumping media", "backup", backupDir, "output", outputDir,
		"attachments", store.Len(), "full_schema", db.Schema.Full)

	stats := exporter.Run(store)

	fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d of %d attachment(s) (%s) to %s\n",
		stats.Saved, store.Len(), formatBytes(stats.Bytes), outputDir)
	if stats.Filtered > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d attachment(s) excluded by thread/date filters\n", stats.Filtered)
	}
	if stats.Skipped > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d attachment(s) skipped due to errors:\n", stats.Skipped)
		for _, e := range stats.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e)
		}
	}

	return nil
}

// parseDateRangeFlags splits each repeated --daterange value on its comma
// into a (start, end) pair. Pair syntax errors are fatal here; ranges that
// parse as dates but are invalid are dropped later with a warning.
func parseDateRangeFlags(flags []string) ([][2]string, error) {
	var ranges [][2]string
	for _, f := range flags {
		start, end, ok := strings.Cut(f, ",")
		if !ok {
			return nil, fmt.Errorf(`bad --daterange %q: want "start,end"`, f)
		}
		ranges = append(ranges, [2]string{strings.TrimSpace(start), strings.TrimSpace(end)})
	}
	return ranges, nil
}

// formatBytes formats a byte count with binary units.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func init() {
	rootCmd.AddCommand(dumpMediaCmd)
	dumpMediaCmd.Flags().StringVarP(&dumpMediaOutput, "output", "o", "",
		"Output directory (default from config, else ./media)")
	dumpMediaCmd.Flags().Int64SliceVar(&dumpMediaThreads, "thread", nil,
		"Only export attachments from this thread id (repeatable)")
	dumpMediaCmd.Flags().StringArrayVar(&dumpMediaDateRanges, "daterange", nil,
		`Only export attachments received in "start,end" (repeatable)`)
	dumpMediaCmd.Flags().BoolVar(&dumpMediaOverwrite, "overwrite", false,
		"Allow exporting into a non-empty output directory")
}
