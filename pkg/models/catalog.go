package models

// CatalogResponse is the subset of the Harvard Art Museums /object
// response consumed by the client and produced by the mirror.
type CatalogResponse struct {
	Info    *CatalogInfo    `json:"info,omitempty"`
	Records []CatalogRecord `json:"records"`
}

type CatalogInfo struct {
	TotalRecords int `json:"totalrecords"`
	Pages        int `json:"pages"`
	Page         int `json:"page"`
}

// CatalogRecord is one object as returned by the catalog. Every field is
// optional on the wire.
type CatalogRecord struct {
	ID              int             `json:"id"`
	Title           string          `json:"title,omitempty"`
	People          []CatalogPerson `json:"people,omitempty"`
	Century         string          `json:"century,omitempty"`
	Culture         string          `json:"culture,omitempty"`
	PrimaryImageURL string          `json:"primaryimageurl,omitempty"`
}

type CatalogPerson struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}
