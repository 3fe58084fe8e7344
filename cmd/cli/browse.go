package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"artdiscover/internal/catalog"
	"artdiscover/internal/discover"
	"artdiscover/internal/journal"
	"artdiscover/internal/tui"
	"artdiscover/pkg/database"
	"artdiscover/pkg/utils"
)

func newBrowseCmd() *cobra.Command {
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse paintings interactively in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := utils.LoadConfig(configPath)
			if err != nil {
				return err
			}
			// the terminal belongs to the UI
			log := zap.NewNop()

			var rec catalog.Recorder
			if !noJournal {
				db, err := database.Open(cmd.Context(), database.Config{Path: cfg.Database.Path})
				if err != nil {
					return err
				}
				defer db.Close()
				if err := database.Migrate(cmd.Context(), db); err != nil {
					return err
				}
				rec = journal.NewRepo(db)
			}

			feed := tui.NewFeed()
			s := discover.NewSession(uuid.NewString(), catalog.FromConfig(cfg, rec, log), discover.Options{
				Guard:        guardFor(cfg),
				FetchTimeout: utils.Duration(cfg.Catalog.FetchTimeout, discover.DefaultFetchTimeout),
				Logger:       log,
				OnChange:     feed.Publish,
			})
			defer s.Close()

			p := tea.NewProgram(tui.New(s, feed, tui.DefaultStyles()),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not record catalog requests")
	return cmd
}
