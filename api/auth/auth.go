// Package auth gates the admin area. Login exchanges the owner's email
// and password for a backend session; the access token lives in the
// encrypted cookie session and is validated against the backend on every
// admin request, so an expired backend session always ends in a redirect.
package auth

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/alief-faisal/portofoliowidia/backend"
)

// Session value keys.
const (
	sessionAuthenticated = "authenticated"
	sessionAccessToken   = "access_token"
	sessionEmail         = "user_email"
)

// Provider handles admin authentication against the backend's auth
// service.
type Provider struct {
	client *backend.Client
}

// New creates an auth provider. A nil client means the backend is not
// configured; the admin gate then renders the dedicated screen instead of
// touching the network.
func New(client *backend.Client) *Provider {
	return &Provider{client: client}
}

// Login handles the email/password form post.
func (p *Provider) Login(c *gin.Context) {
	if p.client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Backend belum dikonfigurasi"})
		return
	}

	email := c.PostForm("email")
	password := c.PostForm("password")
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	backendSession, err := p.client.SignInWithPassword(c.Request.Context(), email, password)
	if err != nil {
		log.Error("failed to authenticate owner", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionAuthenticated, true)
	session.Set(sessionAccessToken, backendSession.AccessToken)
	session.Set(sessionEmail, backendSession.User.Email)
	if err := session.Save(); err != nil {
		log.Error("failed to save session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": "/admin"})
}

// Logout clears the session and sends the owner back to the landing page.
func (p *Provider) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		log.Error("failed to clear session", "error", err)
	}
	c.Redirect(http.StatusFound, "/")
}

// RequireAuth returns middleware protecting the admin routes. The cookie
// marker alone is not enough: the stored token must still resolve to a
// live backend session.
func (p *Provider) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p.client == nil {
			c.HTML(http.StatusServiceUnavailable, "config_missing.html", gin.H{})
			c.Abort()
			return
		}

		session := sessions.Default(c)
		token := getSessionString(session, sessionAccessToken)
		if !getSessionBool(session, sessionAuthenticated) || token == "" {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		user, err := p.client.GetUser(c.Request.Context(), token)
		if err != nil {
			log.Warn("admin session no longer valid", "error", err)
			session.Clear()
			_ = session.Save()
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set("user_email", user.Email)
		c.Next()
	}
}

// IsAuthenticated reports whether the request carries the local marker.
// The login page uses it to skip straight to the admin panel; the admin
// gate itself never trusts it without the backend check.
func IsAuthenticated(c *gin.Context) bool {
	return getSessionBool(sessions.Default(c), sessionAuthenticated)
}

// Helper functions to safely get session values.
func getSessionString(session sessions.Session, key string) string {
	if val := session.Get(key); val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getSessionBool(session sessions.Session, key string) bool {
	if val := session.Get(key); val != nil {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
