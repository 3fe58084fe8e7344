package models

// BanKind names the artwork attribute a ban applies to.
type BanKind string

const (
	BanArtist  BanKind = "artist"
	BanCentury BanKind = "century"
	BanCulture BanKind = "culture"
)

// BanKinds lists every kind in the order filters are emitted.
var BanKinds = []BanKind{BanArtist, BanCentury, BanCulture}

// Ban excludes one attribute value from future results.
type Ban struct {
	Kind  BanKind `json:"kind"`
	Value string  `json:"value"`
}

// Attribute returns the value of the artwork attribute matching kind.
func (a Artwork) Attribute(kind BanKind) string {
	switch kind {
	case BanArtist:
		return a.Artist
	case BanCentury:
		return a.Century
	case BanCulture:
		return a.Culture
	default:
		return ""
	}
}
