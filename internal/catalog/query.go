package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"artdiscover/pkg/models"
)

// DefaultBaseURL is the Harvard Art Museums object search endpoint.
const DefaultBaseURL = "https://api.harvardartmuseums.org/object"

// filterParams maps a ban kind to the catalog query parameter it filters.
var filterParams = map[models.BanKind]string{
	models.BanArtist:  "person",
	models.BanCentury: "century",
	models.BanCulture: "culture",
}

// FilterParam returns the query parameter used to filter kind.
func FilterParam(kind models.BanKind) string {
	return filterParams[kind]
}

// BuildQuery returns the search URL for one random image-bearing painting
// on the given page, excluding every banned value.
//
// Values of the same kind are OR-ed: person=!a|!b excludes records whose
// person matches a or b. The "!" and "|" operators are written unescaped;
// only the values themselves are percent-encoded.
func BuildQuery(baseURL, apiKey string, page int, bans []models.Ban) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("catalog: parse base url: %w", err)
	}

	q := u.Query()
	q.Set("apikey", apiKey)
	q.Set("size", "1")
	q.Set("page", strconv.Itoa(page))
	q.Set("hasimage", "1")
	q.Set("classification", "Paintings")
	q.Set("sort", "random")

	raw := q.Encode()
	for _, kind := range models.BanKinds {
		values := valuesOf(bans, kind)
		if len(values) == 0 {
			continue
		}
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = url.QueryEscape(v)
		}
		raw += "&" + filterParams[kind] + "=" + NegatedTerm(escaped)
	}

	u.RawQuery = raw
	return u.String(), nil
}

// NegatedTerm joins values as "!v1|!v2". It returns "" for no values.
func NegatedTerm(values []string) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = "!" + v
	}
	return strings.Join(parts, "|")
}

// ParseNegatedTerm is the inverse of NegatedTerm. Terms without the "!"
// prefix are returned with negate=false.
func ParseNegatedTerm(term string) (values []string, negate []bool) {
	if term == "" {
		return nil, nil
	}
	for _, p := range strings.Split(term, "|") {
		neg := strings.HasPrefix(p, "!")
		values = append(values, strings.TrimPrefix(p, "!"))
		negate = append(negate, neg)
	}
	return values, negate
}

// countTerms returns how many filter parameters a query will carry.
func countTerms(bans []models.Ban) int {
	n := 0
	for _, kind := range models.BanKinds {
		if len(valuesOf(bans, kind)) > 0 {
			n++
		}
	}
	return n
}

func valuesOf(bans []models.Ban, kind models.BanKind) []string {
	var out []string
	for _, b := range bans {
		if b.Kind == kind {
			out = append(out, b.Value)
		}
	}
	return out
}

// redact strips the API key from a catalog URL so it can be logged.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("apikey") {
		q.Set("apikey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
