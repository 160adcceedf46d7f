package httpapi

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"
	identityKey     = "identity"
)

// requestID keeps a caller supplied X-Request-ID or assigns a new one and
// binds it to the request logger.
func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" || len(id) > 64 {
		id = uuid.NewString()
	}
	c.Header(requestIDHeader, id)
	c.Set(loggerKey, s.logger.With("request_id", id))
	c.Next()
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	s.log(c).Info(c.Request.Context(), "request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func (s *Server) log(c *gin.Context) logging.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logging.Logger); ok {
			return l
		}
	}
	return s.logger
}

// sessionToken reads the bearer token, falling back to the session cookie.
func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if tok, err := c.Cookie(sessionCookie); err == nil {
		return tok
	}
	return ""
}

// requireSession aborts with 401 unless the request carries a valid session.
func (s *Server) requireSession(c *gin.Context) {
	tok := sessionToken(c)
	if tok == "" {
		fail(c, common.ErrorUnauthorized)
		c.Abort()
		return
	}

	identity, err := auth.ParseToken(tok, s.jwtSecret)
	if err != nil {
		s.log(c).Debug(c.Request.Context(), "session rejected", "error", err)
		fail(c, err)
		c.Abort()
		return
	}

	c.Set(identityKey, identity)
	c.Set(loggerKey, s.log(c).With("user_id", identity.ID))
	c.Next()
}

func identityFrom(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*models.Identity)
	return id
}
