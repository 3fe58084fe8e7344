// Package web is the browser presenter: an HTML page plus a JSON API over
// the caller's discovery session.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"artdiscover/internal/auth"
	"artdiscover/internal/bans"
	"artdiscover/internal/discover"
	"artdiscover/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates for gin's HTML renderer.
func Templates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

type Handler struct {
	Log *zap.Logger
}

func NewHandler(log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Log: log}
}

// RegisterRoutes mounts the page and API routes. rg must already carry
// auth.SessionMiddleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.page)
	rg.POST("/discover", h.discoverForm)
	rg.POST("/bans/toggle", h.toggleForm)

	api := rg.Group("/api")
	api.GET("/session", h.session)
	api.GET("/state", h.state)
	api.POST("/discover", h.discover)
	api.POST("/bans", h.toggle)
}

type attributeView struct {
	Kind     models.BanKind
	Label    string
	Value    string
	Banned   bool
	Bannable bool
}

type pageView struct {
	State      discover.State
	Attributes []attributeView
}

var attributeLabels = map[models.BanKind]string{
	models.BanArtist:  "Artist",
	models.BanCentury: "Century",
	models.BanCulture: "Culture",
}

func buildPage(s *discover.Session) pageView {
	st := s.Snapshot()
	v := pageView{State: st}
	if st.Artwork == nil {
		return v
	}
	for _, kind := range models.BanKinds {
		value := st.Artwork.Attribute(kind)
		v.Attributes = append(v.Attributes, attributeView{
			Kind:     kind,
			Label:    attributeLabels[kind],
			Value:    value,
			Banned:   st.IsBanned(kind, value),
			Bannable: st.IsBanned(kind, value) || s.Bannable(value),
		})
	}
	return v
}

// page starts the session's first fetch on first render.
func (h *Handler) page(c *gin.Context) {
	s := auth.MustGetSession(c)
	s.Start()
	c.HTML(http.StatusOK, "index.html", buildPage(s))
}

func (h *Handler) discoverForm(c *gin.Context) {
	s := auth.MustGetSession(c)
	if _, err := s.Discover(); err != nil && !errors.Is(err, discover.ErrBusy) {
		h.Log.Warn("discover failed", zap.String("session", s.ID), zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) toggleForm(c *gin.Context) {
	s := auth.MustGetSession(c)
	kind, err := bans.ParseKind(c.PostForm("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.Toggle(kind, c.PostForm("value"))
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) session(c *gin.Context) {
	s := auth.MustGetSession(c)
	c.JSON(http.StatusOK, gin.H{
		"session_id": s.ID,
		"token":      auth.Token(c),
	})
}

func (h *Handler) state(c *gin.Context) {
	c.JSON(http.StatusOK, auth.MustGetSession(c).Snapshot())
}

func (h *Handler) discover(c *gin.Context) {
	s := auth.MustGetSession(c)
	st, err := s.Discover()
	switch {
	case errors.Is(err, discover.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": st})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, st)
	}
}

type toggleReq struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (h *Handler) toggle(c *gin.Context) {
	s := auth.MustGetSession(c)

	var req toggleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	kind, err := bans.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st, changed := s.Toggle(kind, req.Value)
	c.JSON(http.StatusOK, gin.H{
		"changed": changed,
		"state":   st,
	})
}
