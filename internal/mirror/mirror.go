// Package mirror serves a local fixture through the catalog's object search
// contract, for offline development and tests.
package mirror

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"artdiscover/pkg/models"
)

const defaultSize = 10

//go:embed fixture.json
var defaultFixture []byte

// Default returns the bundled fixture.
func Default() []models.CatalogRecord {
	recs, err := Parse(defaultFixture)
	if err != nil {
		panic(err)
	}
	return recs
}

// Load reads a fixture file holding a JSON array of catalog records, or an
// object with a "records" array.
func Load(path string) ([]models.CatalogRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mirror: read %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) ([]models.CatalogRecord, error) {
	var recs []models.CatalogRecord
	if err := json.Unmarshal(b, &recs); err == nil {
		return recs, nil
	}
	var resp models.CatalogResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, fmt.Errorf("mirror: invalid fixture: %w", err)
	}
	return resp.Records, nil
}

type Handler struct {
	Records []models.CatalogRecord
	// APIKey, when set, must match the apikey parameter.
	APIKey string
	Log    *zap.Logger
}

func NewHandler(recs []models.CatalogRecord, apiKey string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Records: recs, APIKey: apiKey, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/object", h.search)
}

// search filters, then pages. The sort parameter is ignored: records come
// back in fixture order so results are reproducible.
func (h *Handler) search(c *gin.Context) {
	if h.APIKey != "" && c.Query("apikey") != h.APIKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
		return
	}

	size, err := positive(c.Query("size"), defaultSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return
	}
	page, err := positive(c.Query("page"), 1)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}

	f := filterFrom(c)
	var matched []models.CatalogRecord
	for _, r := range h.Records {
		if f.match(r) {
			matched = append(matched, r)
		}
	}

	pages := len(matched) / size
	if len(matched)%size != 0 {
		pages++
	}
	resp := models.CatalogResponse{
		Info: &models.CatalogInfo{
			TotalRecords: len(matched),
			Pages:        pages,
			Page:         page,
		},
		Records: []models.CatalogRecord{},
	}
	// page <= pages keeps (page-1)*size below len(matched)
	if page <= pages {
		start := (page - 1) * size
		resp.Records = matched[start:min(start+size, len(matched))]
	}

	h.Log.Debug("mirror search",
		zap.Int("page", page),
		zap.Int("size", size),
		zap.Int("matched", len(matched)),
		zap.Int("returned", len(resp.Records)))
	c.JSON(http.StatusOK, resp)
}

func positive(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}
