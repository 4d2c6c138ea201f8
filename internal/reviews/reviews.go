// Package reviews reads a business's rating and reviews from the Google
// Places API (New) so the key never reaches the browser.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBaseURL is the Places API (New) root.
	DefaultBaseURL = "https://places.googleapis.com/v1"

	// FieldMask limits the response to what the widget renders.
	FieldMask = "displayName,rating,reviews,userRatingCount"

	// DefaultRating is reported when the place has no rating yet.
	DefaultRating = 5.0

	defaultTimeout = 10 * time.Second
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("places API key not configured")

	// ErrMissingPlaceID is returned for an empty place id.
	ErrMissingPlaceID = errors.New("place id is required")
)

// UpstreamError is a failed or unusable Places API response.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("places API returned status %d", e.Status)
}

// LocalizedText is a Places API text value.
type LocalizedText struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// Author identifies the reviewer.
type Author struct {
	DisplayName string `json:"displayName"`
	URI         string `json:"uri,omitempty"`
	PhotoURI    string `json:"photoUri,omitempty"`
}

// Review is one Google review, passed through with the API's field names.
type Review struct {
	Name                           string         `json:"name,omitempty"`
	RelativePublishTimeDescription string         `json:"relativePublishTimeDescription,omitempty"`
	Rating                         float64        `json:"rating"`
	Text                           *LocalizedText `json:"text,omitempty"`
	OriginalText                   *LocalizedText `json:"originalText,omitempty"`
	AuthorAttribution              Author         `json:"authorAttribution"`
	PublishTime                    string         `json:"publishTime,omitempty"`
}

// Summary is the payload returned to the site.
type Summary struct {
	Success      bool     `json:"success"`
	Rating       float64  `json:"rating"`
	TotalReviews int      `json:"totalReviews"`
	Reviews      []Review `json:"reviews"`
}

type placeResponse struct {
	DisplayName     *LocalizedText `json:"displayName"`
	Rating          float64        `json:"rating"`
	UserRatingCount int            `json:"userRatingCount"`
	Reviews         []Review       `json:"reviews"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Config configures the client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls the Places API.
type Client struct {
	rc     *resty.Client
	apiKey string
}

// New returns a Client. hc may be nil.
func New(cfg Config, hc *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	rc := resty.New()
	if hc != nil {
		rc = resty.NewWithClient(hc)
	}
	rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{rc: rc, apiKey: strings.TrimSpace(cfg.APIKey)}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Place fetches rating and reviews for placeID. A response without a
// display name is treated as a failure, with the API's message when given.
func (c *Client) Place(ctx context.Context, placeID string) (*Summary, error) {
	tr := otel.Tracer("reviews")
	ctx, span := tr.Start(ctx, "Place", trace.WithAttributes(attribute.String("places.id", placeID)))
	defer span.End()

	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, ErrMissingPlaceID
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var (
		out  placeResponse
		fail apiError
	)
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("X-Goog-Api-Key", c.apiKey).
		SetHeader("X-Goog-FieldMask", FieldMask).
		SetPathParam("placeID", placeID).
		SetResult(&out).
		SetError(&fail).
		Get("/places/{placeID}")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("places request: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	if !resp.IsSuccess() || out.DisplayName == nil {
		uerr := &UpstreamError{Status: resp.StatusCode(), Message: fail.Error.Message}
		if uerr.Message == "" && resp.IsSuccess() {
			uerr.Message = "Failed to fetch reviews"
		}
		span.SetStatus(codes.Error, uerr.Error())
		return nil, uerr
	}

	rating := out.Rating
	if rating == 0 {
		rating = DefaultRating
	}
	reviews := out.Reviews
	if reviews == nil {
		reviews = []Review{}
	}
	return &Summary{
		Success:      true,
		Rating:       rating,
		TotalReviews: out.UserRatingCount,
		Reviews:      reviews,
	}, nil
}
