package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"artdiscover/internal/bans"
	"artdiscover/internal/catalog"
	"artdiscover/pkg/models"
)

func newDiscoverCmd() *cobra.Command {
	var (
		artists   []string
		centuries []string
		cultures  []string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Print one random painting that passes the given bans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			reg := bans.NewRegistry(guardFor(cfg))
			for kind, values := range map[models.BanKind][]string{
				models.BanArtist:  artists,
				models.BanCentury: centuries,
				models.BanCulture: cultures,
			} {
				for _, v := range values {
					if !reg.Bannable(v) {
						log.Warn("ignoring ban on placeholder value", zap.String("kind", string(kind)), zap.String("value", v))
						continue
					}
					if !reg.IsBanned(kind, v) {
						reg.Toggle(kind, v)
					}
				}
			}

			client := catalog.FromConfig(cfg, nil, log)
			art, err := client.FetchArtwork(cmd.Context(), reg.Entries())
			if errors.Is(err, catalog.ErrNoResults) {
				return fmt.Errorf("%w (%d bans)", err, reg.Len())
			}
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(art)
			}
			printArtwork(cmd.OutOrStdout(), art)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&artists, "ban-artist", nil, "artist to exclude (repeatable)")
	cmd.Flags().StringSliceVar(&centuries, "ban-century", nil, "century to exclude (repeatable)")
	cmd.Flags().StringSliceVar(&cultures, "ban-culture", nil, "culture to exclude (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the artwork as JSON")
	return cmd
}

func printArtwork(w io.Writer, art models.Artwork) {
	fmt.Fprintln(w, art.Title)
	fmt.Fprintf(w, "  Artist:  %s\n", art.Artist)
	fmt.Fprintf(w, "  Century: %s\n", art.Century)
	fmt.Fprintf(w, "  Culture: %s\n", art.Culture)
	if art.HasImage() {
		fmt.Fprintf(w, "  Image:   %s\n", art.ImageURL)
	} else {
		fmt.Fprintln(w, "  No image available")
	}
}
