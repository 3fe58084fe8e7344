package catalog

import (
	"strings"

	"artdiscover/pkg/models"
)

// ToArtwork maps a catalog record to its display form, substituting the
// placeholders for missing fields. Only the first listed person is kept.
func ToArtwork(r models.CatalogRecord) models.Artwork {
	a := models.Artwork{
		ID:       r.ID,
		Title:    orDefault(r.Title, models.UntitledTitle),
		Artist:   models.UnknownArtist,
		Century:  orDefault(r.Century, models.UnknownCentury),
		Culture:  orDefault(r.Culture, models.UnknownCulture),
		ImageURL: strings.TrimSpace(r.PrimaryImageURL),
	}
	if len(r.People) > 0 {
		a.Artist = orDefault(r.People[0].Name, models.UnknownArtist)
	}
	return a
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
