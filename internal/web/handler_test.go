package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"artdiscover/internal/auth"
	"artdiscover/internal/catalog"
	"artdiscover/internal/discover"
	"artdiscover/pkg/models"
)

type stubFetcher struct {
	art models.Artwork
}

func (f stubFetcher) FetchArtwork(context.Context, []models.Ban) (models.Artwork, error) {
	return f.art, nil
}

type countingFetcher struct {
	calls *atomic.Int32
}

func (f countingFetcher) FetchArtwork(context.Context, []models.Ban) (models.Artwork, error) {
	f.calls.Add(1)
	return models.Artwork{ID: 5}, nil
}

type blockingFetcher struct{}

func (blockingFetcher) FetchArtwork(ctx context.Context, _ []models.Ban) (models.Artwork, error) {
	<-ctx.Done()
	return models.Artwork{}, ctx.Err()
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newTestServer(t *testing.T, f discover.Fetcher) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := discover.NewManager(f, discover.Options{})
	t.Cleanup(m.Close)
	tokens := auth.TokenService{Secret: []byte("k"), Issuer: "test", Duration: time.Hour}

	r := gin.New()
	r.SetHTMLTemplate(Templates())
	g := r.Group("/")
	g.Use(auth.SessionMiddleware(tokens, m, zap.NewNop()), SanitizeInput())
	NewHandler(zap.NewNop()).RegisterRoutes(g)

	return &testServer{t: t, router: r}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			s.cookie = c
		}
	}
	return w
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *testServer) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

// open renders the page, which starts the first fetch, and waits for it.
func (s *testServer) open() discover.State {
	s.t.Helper()
	require.Equal(s.t, http.StatusOK, s.get("/").Code)
	return s.settled()
}

// settled polls the state endpoint until no fetch is running.
func (s *testServer) settled() discover.State {
	s.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		w := s.get("/api/state")
		require.Equal(s.t, http.StatusOK, w.Code)
		var st discover.State
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &st))
		if !st.Loading {
			return st
		}
		if time.Now().After(deadline) {
			s.t.Fatal("fetch never settled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPage_RendersArtworkAndBanToggles(t *testing.T) {
	s := newTestServer(t, stubFetcher{art: models.Artwork{
		ID: 1, Title: "Sunflowers", Artist: "Vincent van Gogh",
		Century: "19th century", Culture: models.UnknownCulture,
	}})

	s.open()
	require.NotNil(t, s.cookie)

	w := s.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Sunflowers")
	assert.Contains(t, body, "Artist: Vincent van Gogh")
	assert.Contains(t, body, "No image available")
	assert.Contains(t, body, "No items banned yet")
	assert.Contains(t, body, `<span class="attribute">Culture: Unknown culture</span>`)

	w = s.postForm("/bans/toggle", url.Values{"kind": {"artist"}, "value": {"Vincent van Gogh"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	s.settled()

	body = s.get("/").Body.String()
	assert.Contains(t, body, "Vincent van Gogh (artist)")
	assert.Contains(t, body, `class="attribute banned"`)
}

func TestAPI_CatalogErrorIsShown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	client := catalog.NewClient("k")
	client.BaseURL = upstream.URL
	s := newTestServer(t, client)

	st := s.open()
	assert.Equal(t, discover.StatusError, st.Status)
	assert.NotEmpty(t, st.Error)
	assert.Nil(t, st.Artwork)
	assert.False(t, st.Loading)

	body := s.get("/").Body.String()
	assert.Contains(t, body, `class="error"`)
	assert.NotContains(t, body, "artwork-container")
	assert.Contains(t, body, "Discover")
}

func TestAPI_ToggleSanitisesAndParsesAliases(t *testing.T) {
	s := newTestServer(t, stubFetcher{art: models.Artwork{ID: 2}})
	s.open()

	w := s.postJSON("/api/bans", `{"kind":"people","value":"<b>Rembrandt</b>"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Changed bool           `json:"changed"`
		State   discover.State `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, []models.Ban{{Kind: models.BanArtist, Value: "Rembrandt"}}, resp.State.Bans)

	w = s.postJSON("/api/bans", `{"kind":"culture","value":"Dutch & Flemish"}`)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.State.IsBanned(models.BanCulture, "Dutch & Flemish"))
}

func TestAPI_ToggleRejections(t *testing.T) {
	s := newTestServer(t, stubFetcher{art: models.Artwork{ID: 3}})
	s.open()

	w := s.postJSON("/api/bans", `{"kind":"medium","value":"Oil"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.postJSON("/api/bans", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.postJSON("/api/bans", `{"kind":"culture","value":"Unknown culture"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"changed":false`)
}

func TestAPI_DiscoverWhileLoadingConflicts(t *testing.T) {
	s := newTestServer(t, blockingFetcher{})

	require.Equal(t, http.StatusOK, s.get("/").Code)
	w := s.get("/api/state")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"loading":true`)

	w = s.postJSON("/api/discover", `{}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.postForm("/discover", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestAPI_DiscoverAccepted(t *testing.T) {
	s := newTestServer(t, stubFetcher{art: models.Artwork{ID: 4}})
	s.open()

	w := s.postJSON("/api/discover", `{}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 4, s.settled().Artwork.ID)
}

func TestAPI_SessionExposesToken(t *testing.T) {
	s := newTestServer(t, stubFetcher{})

	w := s.get("/api/session")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, s.cookie.Value, resp.Token)
}

func TestAPI_SessionAndStateDoNotFetch(t *testing.T) {
	var calls atomic.Int32
	s := newTestServer(t, countingFetcher{calls: &calls})

	require.Equal(t, http.StatusOK, s.get("/api/session").Code)
	st := s.settled()
	assert.Equal(t, discover.StatusIdle, st.Status)
	assert.Zero(t, st.Cycle)
	assert.Nil(t, st.Artwork)
	assert.Zero(t, calls.Load())

	w := s.postJSON("/api/discover", `{}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 5, s.settled().Artwork.ID)
	assert.Equal(t, int32(1), calls.Load())

	s.get("/")
	assert.Equal(t, 5, s.settled().Artwork.ID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClean(t *testing.T) {
	assert.Equal(t, "Rembrandt", clean(" <script>x</script>Rembrandt "))
	assert.Equal(t, "17th & 18th century", clean("17th &amp; 18th century"))
}
