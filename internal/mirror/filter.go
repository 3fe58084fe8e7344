package mirror

import (
	"strings"

	"github.com/gin-gonic/gin"

	"artdiscover/internal/catalog"
	"artdiscover/pkg/models"
)

// term is one "|"-separated alternative of a filter parameter.
type term struct {
	value  string
	negate bool
}

type filter struct {
	hasImage       bool
	classification string
	person         []term
	century        []term
	culture        []term
}

func filterFrom(c *gin.Context) filter {
	return filter{
		hasImage:       c.Query("hasimage") == "1",
		classification: c.Query("classification"),
		person:         parseTerms(c.Query(catalog.FilterParam(models.BanArtist))),
		century:        parseTerms(c.Query(catalog.FilterParam(models.BanCentury))),
		culture:        parseTerms(c.Query(catalog.FilterParam(models.BanCulture))),
	}
}

func parseTerms(raw string) []term {
	values, negate := catalog.ParseNegatedTerm(raw)
	out := make([]term, len(values))
	for i := range values {
		out[i] = term{value: values[i], negate: negate[i]}
	}
	return out
}

// match applies every parameter. Within a parameter, negated terms exclude
// any record carrying the value and positive terms are OR-ed.
func (f filter) match(r models.CatalogRecord) bool {
	if f.hasImage && strings.TrimSpace(r.PrimaryImageURL) == "" {
		return false
	}
	if f.classification != "" && f.classification != "Paintings" {
		return false
	}
	names := make([]string, 0, len(r.People))
	for _, p := range r.People {
		names = append(names, p.Name)
	}
	return matchTerms(f.person, names) &&
		matchTerms(f.century, []string{r.Century}) &&
		matchTerms(f.culture, []string{r.Culture})
}

func matchTerms(terms []term, have []string) bool {
	if len(terms) == 0 {
		return true
	}
	positive, hit := false, false
	for _, t := range terms {
		found := contains(have, t.value)
		if t.negate {
			if found {
				return false
			}
			continue
		}
		positive = true
		hit = hit || found
	}
	return !positive || hit
}

func contains(have []string, v string) bool {
	for _, h := range have {
		if strings.EqualFold(h, v) {
			return true
		}
	}
	return false
}
