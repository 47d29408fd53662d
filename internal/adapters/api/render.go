package api

import (
	"github.com/gin-gonic/gin"
)

// View names passed to the Renderer
const (
	ViewIndex      = "index"
	ViewLogin      = "login"
	ViewRegister   = "register"
	ViewNewListing = "new_listing"
	ViewListing    = "listing"
	ViewBid        = "bid"
	ViewNewComment = "new_comment"
	ViewWatchlist  = "watchlist"
	ViewMyListings = "my_listings"
	ViewMyStats    = "my_stats"
	ViewError      = "error"
)

// Renderer turns a view name and its values into a response body.
// HTML templates plug in here; the default writes JSON.
type Renderer interface {
	Render(c *gin.Context, status int, view string, data gin.H)
}

// JSONRenderer writes {"view": name, "data": values}
type JSONRenderer struct{}

func (JSONRenderer) Render(c *gin.Context, status int, view string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, gin.H{"view": view, "data": data})
}
