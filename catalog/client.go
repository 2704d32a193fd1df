// Package catalog is a client for the sofa catalogue API: the paginated
// listing endpoint and the matching (quotation) endpoint.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"couchmatch/feed"
	"couchmatch/models"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	ListPath     = "/api/sofas/"
	MatchingPath = "/api/sofas/matching/"

	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "couchmatch/1.0"
)

var (
	// ErrTransport covers unreachable hosts, timeouts and non-success statuses
	ErrTransport = errors.New("catalogue transport error")

	// ErrMalformedResponse is returned when a body lacks the expected fields
	ErrMalformedResponse = errors.New("malformed catalogue response")
)

// StatusError is a non-success HTTP status. It matches ErrTransport.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// ClientConfig holds the settings of a Client
type ClientConfig struct {
	// BaseURL of the catalogue API, e.g. http://localhost:8000
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// Dial overrides how connections are made, used to reach in-memory servers
	Dial func(addr string) (net.Conn, error)
}

// Client talks to the catalogue API
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
}

func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	httpClient := &fasthttp.Client{
		Name:                config.UserAgent,
		ReadTimeout:         config.Timeout,
		WriteTimeout:        config.Timeout,
		MaxIdleConnDuration: 30 * time.Second,
	}
	if config.Dial != nil {
		httpClient.Dial = config.Dial
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		timeout: config.Timeout,
		http:    httpClient,
	}
}

// ListSofas fetches one page of the listing endpoint
func (c *Client) ListSofas(ctx context.Context, page int) (*models.SofaPage, error) {
	req := fasthttp.AcquireRequest()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.SetRequestURI(c.baseURL + ListPath + "?page=" + strconv.Itoa(page))

	body, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list sofas page %d: %w", page, err)
	}

	var result models.SofaPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("list sofas page %d: %w: %v", page, ErrMalformedResponse, err)
	}
	if result.Results == nil {
		return nil, fmt.Errorf("list sofas page %d: %w: missing results", page, ErrMalformedResponse)
	}

	return &result, nil
}

// FetchPage implements feed.Source for the listing endpoint
func (c *Client) FetchPage(ctx context.Context, cursor int) (feed.Page[models.Sofa], error) {
	result, err := c.ListSofas(ctx, cursor)
	if err != nil {
		return feed.Page[models.Sofa]{}, err
	}

	page := feed.Page[models.Sofa]{Items: result.Results}
	if result.Next != nil {
		// A next page that is not ahead of this one would rewind the feed
		next := result.Next.Page
		if next <= cursor {
			return feed.Page[models.Sofa]{}, fmt.Errorf("list sofas page %d: %w: next page %d does not follow", cursor, ErrMalformedResponse, next)
		}
		page.Next = &next
	}
	return page, nil
}

var _ feed.Source[models.Sofa] = (*Client)(nil)

// do runs the request and returns the body of a 2xx response. The request is
// released by do.
func (c *Client) do(ctx context.Context, req *fasthttp.Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		fasthttp.ReleaseRequest(req)
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	type response struct {
		status int
		body   []byte
		err    error
	}
	done := make(chan response, 1)
	uri := req.URI().String()
	start := time.Now()

	go func() {
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseResponse(resp)
		defer fasthttp.ReleaseRequest(req)

		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			done <- response{err: err}
			return
		}
		// Copy the body, it is only valid until the response is released
		done <- response{status: resp.StatusCode(), body: append([]byte(nil), resp.Body()...)}
	}()

	var r response
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	case r = <-done:
	}

	log.WithFields(log.Fields{
		"uri":     uri,
		"status":  r.status,
		"latency": time.Since(start),
	}).Debug("Catalogue request")

	if r.err != nil {
		// A deadline taken from ctx surfaces as a fasthttp timeout
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, r.err)
	}
	if r.status < 200 || r.status > 299 {
		return nil, &StatusError{Code: r.status, Message: errorMessage(r.body)}
	}
	return r.body, nil
}

// errorMessage extracts the message of a JSON error body, if there is one
func errorMessage(body []byte) string {
	var e models.ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.String()
}
