package journal

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"artdiscover/internal/auth"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes mounts the journal routes. rg must already carry
// auth.SessionMiddleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /journal
	rg.GET("/stats", h.stats) // GET /journal/stats
}

// list only ever returns the caller's own requests.
func (h *Handler) list(c *gin.Context) {
	s := auth.MustGetSession(c)
	if s == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q := ListQuery{
		SessionID: s.ID,
		Limit:     parseInt(c.Query("limit"), 50),
	}
	items, err := h.Repo.Recent(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"limit": q.Limit,
		"items": items,
	})
}

func (h *Handler) stats(c *gin.Context) {
	s, err := h.Repo.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
