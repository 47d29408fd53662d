package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/floroz/gavel-listings/pkg/auth"
)

// RouterConfig carries the session settings the router needs
type RouterConfig struct {
	Cookie   CookieConfig
	LoginURL string
}

// NewRouter wires every route of the site
func NewRouter(h *Handler, resolver auth.SessionResolver, cfg RouterConfig, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))
	r.Use(auth.LoadSession(resolver, cfg.Cookie.Name, logger))

	r.GET("/health", h.Health)
	r.GET("/", h.Index)
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)
	r.GET("/register", h.RegisterPage)
	r.POST("/register", h.Register)
	r.GET("/listing/:id", h.Listing)
	r.GET("/category/:id", h.Category)

	private := r.Group("/")
	private.Use(auth.RequireSession(cfg.LoginURL))
	{
		private.GET("/new_listing", h.NewListingPage)
		private.POST("/new_listing", h.CreateListing)
		private.GET("/bid/:id", h.BidPage)
		private.POST("/bid/:id", h.SubmitBid)
		private.GET("/close_listing", h.CloseListing)
		private.GET("/open_listing", h.OpenListing)
		private.GET("/new_comment", h.NewCommentPage)
		private.POST("/new_comment", h.AddComment)
		private.GET("/watchlist", h.Watchlist)
		private.GET("/mylistings", h.MyListings)
		private.GET("/mystats", h.MyStats)
	}

	return r
}
