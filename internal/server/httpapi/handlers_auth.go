package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type passwordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	identity, err := s.users.Register(c.Request.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": common.MsgRegistered, "user": identity})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()

	identity, err := s.users.Login(ctx, req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}

	token, err := auth.GenerateToken(identity, s.jwtSecret, s.sessionTTL)
	if err != nil {
		s.log(c).Error(ctx, "failed to sign session token", "error", err)
		fail(c, err)
		return
	}

	s.setSessionCookie(c, token, int(s.sessionTTL.Seconds()))
	s.log(c).Info(ctx, "user logged in", "user_id", identity.ID)

	c.JSON(http.StatusOK, gin.H{"success": true, "message": common.MsgLoggedIn, "user": identity, "token": token})
}

// logout clears the cookie. Tokens are not tracked server side, so a copied
// token stays valid until it expires.
func (s *Server) logout(c *gin.Context) {
	s.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": common.MsgLoggedOut})
}

func (s *Server) checkStatus(c *gin.Context) {
	tok := sessionToken(c)
	if tok == "" {
		c.JSON(http.StatusOK, gin.H{"logged_in": false})
		return
	}

	claimed, err := auth.ParseToken(tok, s.jwtSecret)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"logged_in": false})
		return
	}

	identity, err := s.users.Identity(c.Request.Context(), claimed.ID)
	if err != nil {
		if statusFor(err) == http.StatusUnauthorized {
			c.JSON(http.StatusOK, gin.H{"logged_in": false})
			return
		}
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logged_in": true, "user": identity})
}

func (s *Server) changePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	if err := s.users.ChangePassword(c.Request.Context(), identityFrom(c), req.OldPassword, req.NewPassword); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": common.MsgPasswordChanged})
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.db.Ping(c.Request.Context()); err != nil {
		s.log(c).Warn(c.Request.Context(), "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, value, maxAge, "/", "", c.Request.TLS != nil, true)
}
