// Package api wires the gin server: public landing page, login, the
// protected admin panel and the websocket signal feed.
package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/alief-faisal/portofoliowidia/api/auth"
	"github.com/alief-faisal/portofoliowidia/api/handler"
	"github.com/alief-faisal/portofoliowidia/backend"
	"github.com/alief-faisal/portofoliowidia/cache"
	"github.com/alief-faisal/portofoliowidia/config"
	"github.com/alief-faisal/portofoliowidia/events"
	"github.com/alief-faisal/portofoliowidia/gallery"
	"github.com/alief-faisal/portofoliowidia/settings"
)

// SessionName is the cookie holding the local admin marker and the
// backend access token.
const SessionName = "widia_auth"

// Server is the portfolio HTTP server.
type Server struct {
	cfg          *config.Config
	ginEngine    *gin.Engine
	authProvider *auth.Provider
	handler      *handler.Handler
	views        *handler.Views
	hub          *events.Hub
}

// New creates the server over an already-constructed backend client.
// client may be nil when the backend is unconfigured: public views then
// serve defaults and the admin route renders the dedicated screen.
func New(cfg *config.Config, client *backend.Client, debug bool) (*Server, error) {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	settingsStore := settings.NewStore(client)
	galleryStore := gallery.NewStore(client, cfg.Backend.Bucket)
	views := handler.NewViews(settingsStore, galleryStore, cache.NewBacking(cfg.Cache))
	hub := events.NewHub()

	s := &Server{
		cfg:          cfg,
		ginEngine:    gin.Default(),
		authProvider: auth.New(client),
		handler:      handler.New(settingsStore, galleryStore, views),
		views:        views,
		hub:          hub,
	}

	// Every successful settings save reaches the open tabs and drops the
	// cached public reads.
	settingsStore.Subscribe(func() {
		views.Invalidate(context.Background())
		hub.Broadcast(settings.SignalName)
	})

	s.setupSession()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.cfg.SessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions(SessionName, store))
}

func (s *Server) setupRoutes() {
	// websocket upgrades must not pass through the compressor
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/events"})))

	s.ginEngine.LoadHTMLGlob("web/templates/*.html")
	s.ginEngine.Static("/static", "./web/static")

	s.ginEngine.GET("/", s.handler.Home)
	s.ginEngine.GET("/resume", s.handler.ResumeDownload)

	s.ginEngine.GET("/login", func(c *gin.Context) {
		if auth.IsAuthenticated(c) {
			c.Redirect(http.StatusFound, "/admin")
			return
		}
		s.handler.LoginPage(c)
	})
	s.ginEngine.POST("/login", s.authProvider.Login)
	s.ginEngine.GET("/logout", s.authProvider.Logout)

	api := s.ginEngine.Group("/api")
	api.GET("/views/about", s.handler.AboutView)
	api.GET("/views/social", s.handler.SocialView)
	api.GET("/views/resume", s.handler.ResumeView)
	api.GET("/views/gallery", s.handler.GalleryView)
	api.GET("/events", func(c *gin.Context) {
		s.hub.Serve(c.Writer, c.Request)
	})

	admin := s.ginEngine.Group("/admin")
	admin.Use(s.authProvider.RequireAuth())
	admin.GET("", s.handler.AdminPage)
	admin.POST("/photos", s.handler.AddPhoto)
	admin.POST("/photos/:id/delete", s.handler.DeletePhoto)
	admin.POST("/settings", s.handler.SaveSettings)
}

// Views returns the public views, so the scheduler can warm them.
func (s *Server) Views() *handler.Views {
	return s.views
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	return s.ginEngine.Run(s.cfg.Listen)
}
