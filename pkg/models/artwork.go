package models

// Placeholders shown when a catalog record leaves a field empty.
const (
	UntitledTitle  = "Untitled"
	UnknownArtist  = "Unknown artist"
	UnknownCentury = "Unknown period"
	UnknownCulture = "Unknown culture"
)

// Artwork is the display form of one catalog record. It is replaced
// wholesale on every successful fetch and never stored.
type Artwork struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Century  string `json:"century"`
	Culture  string `json:"culture"`
	ImageURL string `json:"image_url,omitempty"`
}

// HasImage reports whether the record came with a primary image.
func (a Artwork) HasImage() bool {
	return a.ImageURL != ""
}
