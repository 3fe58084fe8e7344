package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"artdiscover/internal/journal"
	"artdiscover/pkg/database"
	"artdiscover/pkg/utils"
)

func newJournalCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the local catalog request journal",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", utils.DefaultConfig().Database.Path, "journal database")

	openRepo := func(cmd *cobra.Command) (*journal.Repo, func(), error) {
		db, err := database.Open(cmd.Context(), database.Config{Path: dbPath})
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(cmd.Context(), db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return journal.NewRepo(db), func() { _ = db.Close() }, nil
	}

	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every journal entry as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeDB, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := repo.ExportCSV(cmd.Context(), w)
			if err != nil {
				return fmt.Errorf("export journal: %w", err)
			}
			if w != cmd.OutOrStdout() {
				fmt.Fprintf(os.Stderr, "exported %d entries to %s\n", n, out)
			}
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&out, "out", "o", "-", "output CSV path, - for stdout")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeDB, err := openRepo(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			s, err := repo.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(s)
		},
	}

	cmd.AddCommand(exportCmd, statsCmd)
	return cmd
}
