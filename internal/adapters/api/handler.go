package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/floroz/gavel-listings/internal/domain/bids"
	"github.com/floroz/gavel-listings/internal/domain/comments"
	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/internal/domain/users"
	"github.com/floroz/gavel-listings/internal/domain/userstats"
	"github.com/floroz/gavel-listings/internal/domain/watchlist"
	"github.com/floroz/gavel-listings/pkg/auth"
)

type ListingService interface {
	CreateListing(ctx context.Context, sess auth.Session, cmd listings.CreateListingCommand) (*listings.Listing, error)
	SetStatus(ctx context.Context, sess auth.Session, listingID uuid.UUID, status listings.Status) (*listings.Listing, error)
	GetListing(ctx context.Context, listingID uuid.UUID) (*listings.Listing, error)
	ListListings(ctx context.Context) ([]*listings.Listing, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) (*listings.Category, []*listings.Listing, error)
	ListByAuthor(ctx context.Context, sess auth.Session) ([]*listings.Listing, error)
	ListCategories(ctx context.Context) ([]*listings.Category, error)
}

type BidService interface {
	SubmitBid(ctx context.Context, sess auth.Session, cmd bids.SubmitBidCommand) (*bids.SubmitResult, error)
	ListBids(ctx context.Context, listingID uuid.UUID) ([]*bids.Bid, error)
}

type WatchlistService interface {
	Toggle(ctx context.Context, sess auth.Session, mode watchlist.Mode, listingRef string) ([]*listings.Listing, error)
	IsWatching(ctx context.Context, sess auth.Session, listingID uuid.UUID) (bool, error)
}

type CommentService interface {
	AddComment(ctx context.Context, sess auth.Session, listingID uuid.UUID, text string) (*comments.Comment, error)
	ListComments(ctx context.Context, listingID uuid.UUID) ([]*comments.Comment, error)
}

type UserService interface {
	Register(ctx context.Context, cmd users.RegisterCommand) (*users.User, error)
	Authenticate(ctx context.Context, username, password string) (*users.User, error)
}

type StatsService interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*userstats.UserStats, error)
}

// SessionManager starts and ends login sessions
type SessionManager interface {
	Create(ctx context.Context, userID uuid.UUID, username string) (string, time.Time, error)
	Destroy(ctx context.Context, token string) error
}

// Services groups the domain services the handlers call
type Services struct {
	Listings  ListingService
	Bids      BidService
	Watchlist WatchlistService
	Comments  CommentService
	Users     UserService
	Stats     StatsService
}

// CookieConfig describes the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

type Handler struct {
	svc      Services
	sessions SessionManager
	cookie   CookieConfig
	renderer Renderer
	logger   *slog.Logger
}

func NewHandler(svc Services, sessions SessionManager, cookie CookieConfig, renderer Renderer, logger *slog.Logger) *Handler {
	if renderer == nil {
		renderer = JSONRenderer{}
	}
	return &Handler{
		svc:      svc,
		sessions: sessions,
		cookie:   cookie,
		renderer: renderer,
		logger:   logger,
	}
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type registerForm struct {
	Username     string `form:"username" binding:"required,max=150"`
	Email        string `form:"email" binding:"required,email,max=254"`
	Password     string `form:"password" binding:"required"`
	Confirmation string `form:"confirmation" binding:"required"`
}

type listingForm struct {
	Title       string `form:"title"`
	Description string `form:"description"`
	StartingBid string `form:"starting_bid"`
	ImageURL    string `form:"image_url"`
	Category    string `form:"category"`
}

type bidForm struct {
	Amount string `form:"amount"`
}

type commentForm struct {
	ID      string `form:"id" binding:"required"`
	Comment string `form:"comment"`
}

type watchlistQuery struct {
	Mode string `form:"mode" binding:"required"`
	ID   string `form:"id" binding:"required"`
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Index handles GET /
func (h *Handler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	all, err := h.svc.Listings.ListListings(ctx)
	if err != nil {
		h.fail(c, ViewIndex, err)
		return
	}
	categories, err := h.svc.Listings.ListCategories(ctx)
	if err != nil {
		h.fail(c, ViewIndex, err)
		return
	}
	h.render(c, http.StatusOK, ViewIndex, gin.H{
		"listings":   toListingViews(all),
		"categories": toCategoryViews(categories),
	})
}

// LoginPage handles GET /login
func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, ViewLogin, gin.H{"next": c.Query("next")})
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusUnauthorized, ViewLogin, gin.H{"message": "Invalid username and/or password."})
		return
	}

	user, err := h.svc.Users.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.fail(c, ViewLogin, err)
		return
	}
	if !h.startSession(c, ViewLogin, user) {
		return
	}
	next := c.PostForm("next")
	if next == "" {
		next = c.Query("next")
	}
	c.Redirect(http.StatusFound, safeNext(next))
}

// Logout handles GET /logout
func (h *Handler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookie.Name); err == nil && token != "" {
		if err := h.sessions.Destroy(c.Request.Context(), token); err != nil {
			h.logger.Error("failed to destroy session", "error", err)
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.Redirect(http.StatusFound, "/")
}

// RegisterPage handles GET /register
func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, ViewRegister, nil)
}

// Register handles POST /register
func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		if onlyMissingFields(err) {
			h.render(c, http.StatusBadRequest, ViewRegister, gin.H{"message": "All fields are required."})
			return
		}
		h.fail(c, ViewRegister, fmt.Errorf("%w: %v", users.ErrInvalidInput, err))
		return
	}

	user, err := h.svc.Users.Register(c.Request.Context(), users.RegisterCommand{
		Username:     form.Username,
		Email:        form.Email,
		Password:     form.Password,
		Confirmation: form.Confirmation,
	})
	if err != nil {
		h.fail(c, ViewRegister, err)
		return
	}
	if !h.startSession(c, ViewRegister, user) {
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// NewListingPage handles GET /new_listing
func (h *Handler) NewListingPage(c *gin.Context) {
	categories, err := h.svc.Listings.ListCategories(c.Request.Context())
	if err != nil {
		h.fail(c, ViewNewListing, err)
		return
	}
	h.render(c, http.StatusOK, ViewNewListing, gin.H{"categories": toCategoryViews(categories)})
}

// CreateListing handles POST /new_listing
func (h *Handler) CreateListing(c *gin.Context) {
	ctx := c.Request.Context()
	sess := auth.MustSession(c)

	var form listingForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, ViewNewListing, gin.H{"message": "Invalid form."})
		return
	}

	listing, err := h.svc.Listings.CreateListing(ctx, sess, listings.CreateListingCommand{
		Title:       form.Title,
		Description: form.Description,
		StartingBid: form.StartingBid,
		ImageURL:    form.ImageURL,
		CategoryID:  form.Category,
	})
	if err != nil {
		status, message := mapError(err)
		if status >= http.StatusInternalServerError {
			h.fail(c, ViewNewListing, err)
			return
		}
		categories, _ := h.svc.Listings.ListCategories(ctx)
		h.render(c, status, ViewNewListing, gin.H{
			"message":    message,
			"categories": toCategoryViews(categories),
		})
		return
	}

	h.logger.Info("listing created", "listing_id", listing.ID, "author_id", sess.UserID)
	c.Redirect(http.StatusFound, "/listing/"+listing.ID.String())
}

// Listing handles GET /listing/:id
func (h *Handler) Listing(c *gin.Context) {
	listingID, ok := h.listingParam(c, c.Param("id"))
	if !ok {
		return
	}
	data, err := h.listingPage(c, listingID)
	if err != nil {
		h.fail(c, ViewListing, err)
		return
	}
	h.render(c, http.StatusOK, ViewListing, data)
}

// Category handles GET /category/:id
func (h *Handler) Category(c *gin.Context) {
	ctx := c.Request.Context()
	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.fail(c, ViewIndex, listings.ErrCategoryNotFound)
		return
	}

	category, filtered, err := h.svc.Listings.ListByCategory(ctx, categoryID)
	if err != nil {
		h.fail(c, ViewIndex, err)
		return
	}
	categories, err := h.svc.Listings.ListCategories(ctx)
	if err != nil {
		h.fail(c, ViewIndex, err)
		return
	}
	h.render(c, http.StatusOK, ViewIndex, gin.H{
		"category":   categoryView{ID: category.ID, Name: category.Name},
		"listings":   toListingViews(filtered),
		"categories": toCategoryViews(categories),
	})
}

// BidPage handles GET /bid/:id
func (h *Handler) BidPage(c *gin.Context) {
	listingID, ok := h.listingParam(c, c.Param("id"))
	if !ok {
		return
	}
	h.render(c, http.StatusOK, ViewBid, gin.H{"id": listingID})
}

// SubmitBid handles POST /bid/:id
func (h *Handler) SubmitBid(c *gin.Context) {
	sess := auth.MustSession(c)
	listingID, ok := h.listingParam(c, c.Param("id"))
	if !ok {
		return
	}

	var form bidForm
	if err := c.ShouldBind(&form); err != nil {
		_, message := mapError(bids.ErrInvalidAmount)
		h.render(c, http.StatusUnprocessableEntity, ViewBid, gin.H{"id": listingID, "error": message})
		return
	}

	result, err := h.svc.Bids.SubmitBid(c.Request.Context(), sess, bids.SubmitBidCommand{
		ListingID: listingID,
		Amount:    form.Amount,
	})
	if err != nil {
		status, message := mapError(err)
		if status >= http.StatusInternalServerError || status == http.StatusNotFound {
			h.fail(c, ViewBid, err)
			return
		}
		h.render(c, status, ViewBid, gin.H{"id": listingID, "error": message})
		return
	}

	h.logger.Info("bid placed",
		"bid_id", result.Bid.ID,
		"listing_id", listingID,
		"bidder_id", sess.UserID,
		"amount", result.Bid.Amount,
	)

	data, err := h.listingPage(c, listingID)
	if err != nil {
		h.fail(c, ViewListing, err)
		return
	}
	data["bid_placed"] = "Bid successfully placed!"
	h.render(c, http.StatusOK, ViewListing, data)
}

// CloseListing handles GET /close_listing?id=
func (h *Handler) CloseListing(c *gin.Context) {
	h.setStatus(c, listings.StatusClosed)
}

// OpenListing handles GET /open_listing?id=
func (h *Handler) OpenListing(c *gin.Context) {
	h.setStatus(c, listings.StatusOpen)
}

func (h *Handler) setStatus(c *gin.Context, status listings.Status) {
	sess := auth.MustSession(c)
	listingID, ok := h.listingParam(c, c.Query("id"))
	if !ok {
		return
	}

	if _, err := h.svc.Listings.SetStatus(c.Request.Context(), sess, listingID, status); err != nil {
		h.fail(c, ViewListing, err)
		return
	}
	h.logger.Info("listing status changed", "listing_id", listingID, "status", status.String(), "user_id", sess.UserID)
	c.Redirect(http.StatusFound, "/listing/"+listingID.String())
}

// NewCommentPage handles GET /new_comment?id=
func (h *Handler) NewCommentPage(c *gin.Context) {
	listingID, ok := h.listingParam(c, c.Query("id"))
	if !ok {
		return
	}
	h.render(c, http.StatusOK, ViewNewComment, gin.H{"id": listingID})
}

// AddComment handles POST /new_comment
func (h *Handler) AddComment(c *gin.Context) {
	sess := auth.MustSession(c)

	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		h.fail(c, ViewNewComment, listings.ErrListingNotFound)
		return
	}
	listingID, ok := h.listingParam(c, form.ID)
	if !ok {
		return
	}

	if _, err := h.svc.Comments.AddComment(c.Request.Context(), sess, listingID, form.Comment); err != nil {
		status, message := mapError(err)
		if status == http.StatusUnprocessableEntity {
			h.render(c, status, ViewNewComment, gin.H{"id": listingID, "message": message})
			return
		}
		h.fail(c, ViewNewComment, err)
		return
	}
	c.Redirect(http.StatusFound, "/listing/"+listingID.String())
}

// Watchlist handles GET /watchlist?mode=&id=
func (h *Handler) Watchlist(c *gin.Context) {
	sess := auth.MustSession(c)

	var q watchlistQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, ViewWatchlist, watchlist.ErrInvalidMode)
		return
	}
	mode, err := watchlist.ParseMode(q.Mode)
	if err != nil {
		h.fail(c, ViewWatchlist, err)
		return
	}

	watched, err := h.svc.Watchlist.Toggle(c.Request.Context(), sess, mode, q.ID)
	if err != nil {
		h.fail(c, ViewWatchlist, err)
		return
	}
	if mode != watchlist.ModeView {
		c.Redirect(http.StatusFound, "/watchlist?mode=view&id="+watchlist.AllListings)
		return
	}
	h.render(c, http.StatusOK, ViewWatchlist, gin.H{"listings": toListingViews(watched)})
}

// MyListings handles GET /mylistings
func (h *Handler) MyListings(c *gin.Context) {
	sess := auth.MustSession(c)
	mine, err := h.svc.Listings.ListByAuthor(c.Request.Context(), sess)
	if err != nil {
		h.fail(c, ViewMyListings, err)
		return
	}
	h.render(c, http.StatusOK, ViewMyListings, gin.H{"listings": toListingViews(mine)})
}

// MyStats handles GET /mystats
func (h *Handler) MyStats(c *gin.Context) {
	sess := auth.MustSession(c)
	stats, err := h.svc.Stats.GetStats(c.Request.Context(), sess.UserID)
	if err != nil {
		h.fail(c, ViewMyStats, err)
		return
	}
	h.render(c, http.StatusOK, ViewMyStats, gin.H{"stats": toStatsView(stats)})
}

func (h *Handler) listingPage(c *gin.Context, listingID uuid.UUID) (gin.H, error) {
	ctx := c.Request.Context()
	listing, err := h.svc.Listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	listingComments, err := h.svc.Comments.ListComments(ctx, listingID)
	if err != nil {
		return nil, err
	}
	history, err := h.svc.Bids.ListBids(ctx, listingID)
	if err != nil {
		return nil, err
	}
	categories, err := h.svc.Listings.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	data := gin.H{
		"listing":      toListingView(listing),
		"comments":     toCommentViews(listingComments),
		"bids":         toBidViews(history),
		"categories":   toCategoryViews(categories),
		"on_watchlist": false,
	}
	if sess, ok := auth.CurrentSession(c); ok {
		watching, err := h.svc.Watchlist.IsWatching(ctx, sess, listingID)
		if err != nil {
			return nil, err
		}
		data["on_watchlist"] = watching
		data["is_author"] = listing.IsOwnedBy(sess.UserID)
		data["current_user"] = sess.Username
	}
	return data, nil
}

func (h *Handler) startSession(c *gin.Context, view string, user *users.User) bool {
	token, expiresAt, err := h.sessions.Create(c.Request.Context(), user.ID, user.Username)
	if err != nil {
		h.fail(c, view, err)
		return false
	}
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
	h.logger.Info("session started", "user_id", user.ID)
	return true
}

func (h *Handler) listingParam(c *gin.Context, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		h.fail(c, ViewListing, listings.ErrListingNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// fail renders the mapped error. Unmapped errors are logged and hidden.
func (h *Handler) fail(c *gin.Context, view string, err error) {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		_ = c.Error(err)
		view = ViewError
	}
	h.render(c, status, view, gin.H{"message": message})
}

func (h *Handler) render(c *gin.Context, status int, view string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if sess, ok := auth.CurrentSession(c); ok {
		if _, set := data["current_user"]; !set {
			data["current_user"] = sess.Username
		}
	}
	h.renderer.Render(c, status, view, data)
}

// onlyMissingFields reports whether every binding failure is a missing
// required field, as opposed to a malformed value.
func onlyMissingFields(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() != "required" {
			return false
		}
	}
	return true
}

// safeNext only allows local redirect targets
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
