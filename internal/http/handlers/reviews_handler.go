package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/simpleit/sitepilot/internal/http/middleware"
	"github.com/simpleit/sitepilot/internal/reviews"
)

// reviewsCacheControl lets browsers and CDNs keep reviews for a day.
const reviewsCacheControl = "public, max-age=86400"

// Reviews godoc
// @ID          googleReviews
// @Summary     Google reviews
// @Description Returns the rating, review count and recent reviews of a Google place.
// @Tags        Reviews
// @Produce     json
//
// @Param       placeId  query  string  true  "Google place id"
//
// @Success     200  {object}  reviews.Summary
// @Header      200  {string}  Cache-Control  "public, max-age=86400"
// @Failure     400  {object}  handlers.ErrorResponse  "Place ID is required"
// @Failure     500  {object}  handlers.ErrorResponse  "Not configured"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream error"
// @Router      /reviews [get]
func (h *Handlers) Reviews(c *gin.Context) {
	placeID := strings.TrimSpace(c.Query("placeId"))
	if placeID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Place ID is required")
		return
	}

	sum, err := h.reviews.Place(c.Request.Context(), placeID)
	if err != nil {
		var ue *reviews.UpstreamError
		switch {
		case errors.Is(err, reviews.ErrMissingPlaceID):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Place ID is required")
		case errors.Is(err, reviews.ErrNotConfigured):
			fail(c, http.StatusInternalServerError, ErrCodeNotConfigured, "API key not configured")
		case errors.As(err, &ue):
			middleware.LoggerFrom(c).Warn().Int("upstream_status", ue.Status).Str("error", ue.Message).Msg("places API")
			fail(c, http.StatusBadGateway, ErrCodeUpstream, "Failed to fetch reviews")
		default:
			fail(c, http.StatusBadGateway, ErrCodeUpstream, "Failed to fetch reviews")
		}
		return
	}

	c.Header("Cache-Control", reviewsCacheControl)
	ok(c, http.StatusOK, sum)
}
