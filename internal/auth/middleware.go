package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"artdiscover/internal/discover"
)

const (
	CookieName    = "artdiscover_session"
	ctxSessionKey = "discover_session"
	ctxTokenKey   = "discover_token"
)

// SessionMiddleware attaches the caller's discovery session to the request.
// The token comes from the bearer header or the session cookie; a missing,
// invalid or expired token (or an evicted session) gets a fresh session and
// a new cookie.
func SessionMiddleware(tokens TokenService, sessions *discover.Manager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw != "" {
			if claims, err := tokens.Parse(raw); err == nil {
				if s, ok := sessions.Get(claims.SessionID); ok {
					c.Set(ctxSessionKey, s)
					c.Set(ctxTokenKey, raw)
					c.Next()
					return
				}
			}
		}

		s := sessions.Create()
		signed, _, err := tokens.Sign(s.ID)
		if err != nil {
			log.Error("sign session token", zap.Error(err))
			sessions.Remove(s.ID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, signed, int(tokens.Duration.Seconds()), "/", "", false, true)
		c.Set(ctxSessionKey, s)
		c.Set(ctxTokenKey, signed)
		c.Next()
	}
}

// MustGetSession returns the session set by SessionMiddleware, or nil.
func MustGetSession(c *gin.Context) *discover.Session {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*discover.Session)
	return s
}

// Token returns the signed token for the current session.
func Token(c *gin.Context) string {
	return c.GetString(ctxTokenKey)
}

func tokenFromRequest(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h != "" && strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}
