package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sigmedia/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sigmedia",
	Short: "Export media from decrypted Signal backups",
	Long: `sigmedia reads a decrypted Signal backup directory (the metadata
database plus its attachment blob files) and writes every media attachment
to disk as an individual file, organized by conversation.

The backup directory is the output of a backup decryptor: a database.sqlite
file next to one Attachment_<rowid>_<uniqueid>.bin file per attachment.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// metadataPath returns the path of the metadata database inside a decrypted
// backup directory, verifying the directory actually exists first.
func metadataPath(backupDir string) (string, error) {
	info, err := os.Stat(backupDir)
	if err != nil {
		return "", fmt.Errorf("backup directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", backupDir)
	}
	return filepath.Join(backupDir, "database.sqlite"), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.sigmedia/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
