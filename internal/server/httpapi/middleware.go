package httpapi

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

func bearerToken(c *gin.Context) string {
	h := c.GetHeader(common.AuthorizationHeaderName)
	if len(h) > len(common.BearerPrefix) && strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
		return strings.TrimSpace(h[len(common.BearerPrefix):])
	}
	return ""
}

func (s *HTTPServer) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortMessage(c, http.StatusUnauthorized, "authorization token required")
			return
		}
		userID, err := s.deps.Users.Authenticate(token)
		if err != nil {
			abortMessage(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// optionalAuth accepts the header or the access_token query parameter and
// lets anonymous requests through with no user set.
func (s *HTTPServer) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = c.Query(common.AccessTokenQueryName)
		}
		if token != "" {
			if userID, err := s.deps.Users.Authenticate(token); err == nil {
				c.Set(userIDKey, userID)
			}
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *HTTPServer) cors() gin.HandlerFunc {
	origins := s.config.CORSAllowedOrigins
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || len(origins) == 0 {
			c.Next()
			return
		}
		if !slices.Contains(origins, "*") && !slices.Contains(origins, origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
