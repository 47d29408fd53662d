package api

import (
	"errors"
	"net/http"

	"github.com/floroz/gavel-listings/internal/domain/bids"
	"github.com/floroz/gavel-listings/internal/domain/comments"
	"github.com/floroz/gavel-listings/internal/domain/listings"
	"github.com/floroz/gavel-listings/internal/domain/users"
	"github.com/floroz/gavel-listings/internal/domain/watchlist"
)

const msgInternal = "Something went wrong. Please try again."

// mapError maps domain errors to an HTTP status and a user-facing message
func mapError(err error) (int, string) {
	switch {
	// bid submission
	case errors.Is(err, bids.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "The amount is not valid."
	case errors.Is(err, bids.ErrBelowStartingBid):
		return http.StatusUnprocessableEntity, "Your bid must be higher than the starting bid."
	case errors.Is(err, bids.ErrBelowCurrentBid):
		return http.StatusUnprocessableEntity, "Your bid must be higher than the current highest bid."
	case errors.Is(err, bids.ErrSelfBid):
		return http.StatusUnprocessableEntity, "You cannot bid on your on auction."
	case errors.Is(err, bids.ErrListingClosed):
		return http.StatusUnprocessableEntity, "This auction is closed."
	case errors.Is(err, bids.ErrConcurrentModification):
		return http.StatusUnprocessableEntity, "The listing changed while your bid was placed. Please try again."

	// lookups
	case errors.Is(err, listings.ErrListingNotFound):
		return http.StatusNotFound, "Listing not found."
	case errors.Is(err, listings.ErrCategoryNotFound):
		return http.StatusNotFound, "Category not found."
	case errors.Is(err, users.ErrUserNotFound):
		return http.StatusNotFound, "User not found."

	case errors.Is(err, listings.ErrNotOwner):
		return http.StatusForbidden, "Only the author can change this listing."

	// listing form
	case errors.Is(err, listings.ErrTitleRequired):
		return http.StatusUnprocessableEntity, "A title is required."
	case errors.Is(err, listings.ErrTitleTooLong):
		return http.StatusUnprocessableEntity, "The title is too long."
	case errors.Is(err, listings.ErrDescriptionTooLong):
		return http.StatusUnprocessableEntity, "The description is too long."
	case errors.Is(err, listings.ErrInvalidStartingBid):
		return http.StatusUnprocessableEntity, "The starting bid is not valid."
	case errors.Is(err, listings.ErrInvalidImageURL):
		return http.StatusUnprocessableEntity, "The image URL must start with http:// or https://."
	case errors.Is(err, listings.ErrInvalidStatus):
		return http.StatusBadRequest, "Invalid listing status."

	case errors.Is(err, comments.ErrEmptyComment):
		return http.StatusUnprocessableEntity, "The comment cannot be empty."
	case errors.Is(err, comments.ErrCommentTooLong):
		return http.StatusUnprocessableEntity, "The comment is too long."

	case errors.Is(err, watchlist.ErrInvalidMode):
		return http.StatusBadRequest, "Unknown watchlist mode."
	case errors.Is(err, watchlist.ErrListingRefRequired):
		return http.StatusBadRequest, "A listing id is required."

	// accounts
	case errors.Is(err, users.ErrPasswordMismatch):
		return http.StatusUnprocessableEntity, "Passwords must match."
	case errors.Is(err, users.ErrUsernameTaken):
		return http.StatusConflict, "Username already taken."
	case errors.Is(err, users.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "Please provide a valid username and email address."
	case errors.Is(err, users.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username and/or password."

	default:
		return http.StatusInternalServerError, msgInternal
	}
}
