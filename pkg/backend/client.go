// Package backend is a read-only client for the remote search API.
//
// The API exposes three GET endpoints relative to a base URL:
//
//	collections                                  -> [{collection_id, name}]
//	autocomplete?prefix=<text>&collection=<id>   -> {completions: [string]}
//	search?search=<text>&collection=<id>         -> {results: [SearchResult]}
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rubiojr/turnsearch/pkg/log"
)

const (
	EndpointCollections  = "collections"
	EndpointAutocomplete = "autocomplete"
	EndpointSearch       = "search"
)

// Client talks to the search API. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		log:        log.ForService("backend"),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Collections fetches the selectable collections.
func (c *Client) Collections(ctx context.Context) ([]Collection, error) {
	var out []Collection
	if err := c.get(ctx, EndpointCollections, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Collection{}
	}
	return out, nil
}

// Autocomplete fetches completions for prefix, scoped to collection when it
// is not empty. The prefix is sent as given; callers sanitize it.
func (c *Client) Autocomplete(ctx context.Context, prefix string, collection CollectionID) ([]string, error) {
	params := url.Values{}
	params.Set("prefix", prefix)
	setCollection(params, collection)

	var out autocompleteResponse
	if err := c.get(ctx, EndpointAutocomplete, params, &out); err != nil {
		return nil, err
	}
	if out.Completions == nil {
		out.Completions = []string{}
	}
	return out.Completions, nil
}

// Search fetches ranked results for text, scoped to collection when it is
// not empty. The text is sent as given; callers sanitize it.
func (c *Client) Search(ctx context.Context, text string, collection CollectionID) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("search", text)
	setCollection(params, collection)

	var out searchResponse
	if err := c.get(ctx, EndpointSearch, params, &out); err != nil {
		return nil, err
	}
	if out.Results == nil {
		out.Results = []SearchResult{}
	}
	return out.Results, nil
}

// setCollection omits the parameter when no collection is selected.
func setCollection(params url.Values, collection CollectionID) {
	if collection != "" {
		params.Set("collection", string(collection))
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	}()

	u := c.baseURL.JoinPath(endpoint)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debugf("GET %s", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RequestError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused; the body is not inspected.
		_, _ = io.Copy(io.Discard, resp.Body)
		return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Endpoint: endpoint, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
