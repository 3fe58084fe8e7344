package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"artdiscover/internal/auth"
)

// NewUpgrader accepts same-origin requests and any origin listed in
// allowed. An empty list accepts every origin.
func NewUpgrader(allowed []string) websocket.Upgrader {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(set) == 0 {
				return true
			}
			if _, ok := set[origin]; ok {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

// WSHandler streams state events for the caller's session. It must run
// behind auth.SessionMiddleware.
func WSHandler(hub *Hub, upgrader websocket.Upgrader, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := auth.MustGetSession(c)
		if s == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		welcome := WelcomeEvent{Type: EventWelcome, Transport: "websocket", State: s.Snapshot()}
		if err := hub.Subscribe(s.ID, ws, welcome); err != nil {
			_ = ws.Close()
			return
		}
		log.Debug("ws client connected", zap.String("session", s.ID))

		// incoming messages are ignored; reading detects the close
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.Unsubscribe(s.ID, ws)
		log.Debug("ws client disconnected", zap.String("session", s.ID))
	}
}
