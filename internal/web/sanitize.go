package web

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// clean strips markup from s. Entities produced by the policy are decoded
// again so values like "Dutch & Flemish" survive unchanged.
func clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// SanitizeInput cleans every string field of JSON bodies and every form
// value on write requests.
func SanitizeInput() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		if strings.HasPrefix(c.ContentType(), "application/json") {
			buf, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
				return
			}
			var body map[string]any
			if err := json.Unmarshal(buf, &body); err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed json"})
				return
			}
			for k, v := range body {
				if str, ok := v.(string); ok {
					body[k] = clean(str)
				}
			}
			newBody, _ := json.Marshal(body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
			c.Request.ContentLength = int64(len(newBody))
			c.Next()
			return
		}

		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}
		for k, vs := range c.Request.PostForm {
			for i, v := range vs {
				vs[i] = clean(v)
			}
			c.Request.PostForm[k] = vs
		}
		c.Next()
	}
}
