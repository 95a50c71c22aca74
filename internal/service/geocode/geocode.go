package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/valyala/fasthttp"
)

const (
	DefaultBaseURL = "https://api.postcodes.io"
	DefaultTimeout = 10 * time.Second
)

var (
	ErrEmptyPostcode = errors.New("postcode is required")
	ErrNotFound      = errors.New("postcode not found")
	ErrRateLimited   = errors.New("too many requests")
)

// StatusError is returned for any other non-200 reply
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// Location is a resolved postcode centroid
type Location struct {
	Postcode  string  `json:"postcode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupResponse struct {
	Status int `json:"status"`
	Result *struct {
		Postcode  string   `json:"postcode"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"result"`
}

// Client resolves UK postcodes against a postcodes.io compatible service
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

// NewClient returns a client for baseURL ("" selects DefaultBaseURL)
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &fasthttp.Client{
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		},
		timeout: timeout,
	}
}

// Normalize strips all whitespace and upper-cases a postcode
func Normalize(postcode string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, postcode))
}

// Lookup resolves postcode to its centroid. There are no retries.
func (c *Client) Lookup(ctx context.Context, postcode string) (*Location, error) {
	code := Normalize(postcode)
	if code == "" {
		return nil, ErrEmptyPostcode
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + "/postcodes/" + url.PathEscape(code))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		log.Printf("[GEOCODE] Lookup %s failed: %v", code, err)
		return nil, fmt.Errorf("postcode lookup: %w", err)
	}

	switch status := resp.StatusCode(); status {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return nil, ErrNotFound
	case fasthttp.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, &StatusError{StatusCode: status}
	}

	var body lookupResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode postcode response: %w", err)
	}
	if body.Result == nil || body.Result.Latitude == nil || body.Result.Longitude == nil {
		return nil, ErrNotFound
	}

	loc := &Location{
		Postcode:  body.Result.Postcode,
		Latitude:  *body.Result.Latitude,
		Longitude: *body.Result.Longitude,
	}
	if loc.Postcode == "" {
		loc.Postcode = code
	}
	log.Printf("[GEOCODE] %s -> %.6f, %.6f", code, loc.Latitude, loc.Longitude)
	return loc, nil
}

// UserMessage turns a lookup error into the text shown to the user
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "Postcode not found."
	case errors.Is(err, ErrRateLimited):
		return "Too many requests—try again shortly."
	case errors.Is(err, ErrEmptyPostcode):
		return "Enter a postcode."
	default:
		return "Error: " + err.Error()
	}
}
