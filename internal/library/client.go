// Package library queries the Ex Libris Primo discovery service for
// candidate publications and decides which of them a faculty member wrote.
package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ppiankov/facultyscope/internal/fetch"
	"github.com/ppiankov/facultyscope/internal/model"
)

// ErrParse is returned when a library response does not have the expected shape
var ErrParse = errors.New("unexpected library response")

const (
	guestJWTPath = "/primo_library/libweb/webservices/rest/v1/guestJwt/"
	pnxsPath     = "/primo_library/libweb/webservices/rest/primo-explore/v1/pnxs"
	searchPath   = "/primo-explore/search"
)

// Fetcher executes a single HTTP request
type Fetcher interface {
	Do(ctx context.Context, req fetch.Request) (*fetch.Result, error)
}

// Client calls the Primo REST endpoints of one institution. Calls go through
// a circuit breaker that opens after consecutive failures.
type Client struct {
	baseURL     string
	institution string
	fetcher     Fetcher
	breaker     *gobreaker.CircuitBreaker
}

// NewClient creates a client for cfg.BaseURL and cfg.Institution
func NewClient(cfg model.LibraryConfig, f Fetcher) *Client {
	settings := gobreaker.Settings{
		Name:     "primo",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// a malformed body means the service answered
			return err == nil || errors.Is(err, ErrParse) || errors.Is(err, context.Canceled)
		},
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		institution: cfg.Institution,
		fetcher:     f,
		breaker:     gobreaker.NewCircuitBreaker(settings),
	}
}

// GuestJWT obtains an anonymous session token
func (c *Client) GuestJWT(ctx context.Context) (string, error) {
	referer := c.baseURL + searchPath + "?vid=" + strings.ToLower(c.institution)

	params := url.Values{}
	params.Set("isGuest", "true")
	params.Set("lang", "zh_CN")
	params.Set("targetUrl", referer)
	params.Set("viewId", "UnknownView")

	header := http.Header{}
	header.Set("Accept", "application/json, text/plain, */*")
	header.Set("Referer", referer)

	body, err := c.execute(ctx, fetch.Request{
		Method:  http.MethodGet,
		URL:     c.baseURL + guestJWTPath + strings.ToUpper(c.institution) + "?" + params.Encode(),
		Header:  header,
		NoCache: true,
	})
	if err != nil {
		return "", fmt.Errorf("guest token: %w", err)
	}

	token := strings.Trim(strings.TrimSpace(string(body)), `"`)
	if token == "" {
		return "", fmt.Errorf("guest token: %w: empty token", ErrParse)
	}
	return token, nil
}

// PNXs runs a basic "any contains" search and returns the PNX record of
// each hit
func (c *Client) PNXs(ctx context.Context, token, query string, limit int) ([]PNX, error) {
	header := http.Header{}
	header.Set("Accept", "application/json, text/plain, */*")
	header.Set("Authorization", "Bearer "+token)
	header.Set("Referer", c.baseURL+searchPath+"?"+c.refererQuery(query, limit).Encode())

	body, err := c.execute(ctx, fetch.Request{
		Method:  http.MethodGet,
		URL:     c.baseURL + pnxsPath + "?" + c.searchQuery(query, limit).Encode(),
		Header:  header,
		NoCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	return ParsePNXs(body)
}

func (c *Client) execute(ctx context.Context, req fetch.Request) ([]byte, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		result, err := c.fetcher.Do(ctx, req)
		if err != nil {
			return nil, err
		}
		return result.Body, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) searchQuery(query string, limit int) url.Values {
	v := url.Values{}
	v.Set("acTriggered", "false")
	v.Set("blendFacetsSeparately", "true")
	v.Set("citationTrailFilterByAvailability", "true")
	v.Set("getMore", "0")
	v.Set("inst", strings.ToUpper(c.institution))
	v.Set("isCDSearch", "false")
	v.Set("lang", "zh_CN")
	v.Set("limit", strconv.Itoa(limit))
	v.Set("mode", "basic")
	v.Set("newspapersActive", "false")
	v.Set("newspapersSearch", "false")
	v.Set("offset", "0")
	v.Set("otbRanking", "false")
	v.Set("pcAvailability", "true")
	v.Set("q", "any,contains,"+query)
	v.Set("qExclude", "")
	v.Set("qInclude", "")
	v.Set("refEntryActive", "false")
	v.Set("rtaLinks", "true")
	v.Set("scope", "default_scope")
	v.Set("searchInFulltextUserSelection", "false")
	v.Set("skipDelivery", "Y")
	v.Set("sort", "rank")
	v.Set("tab", "default_tab")
	v.Set("vid", strings.ToLower(c.institution))
	return v
}

func (c *Client) refererQuery(query string, limit int) url.Values {
	v := url.Values{}
	v.Set("institution", strings.ToUpper(c.institution))
	v.Set("vid", strings.ToLower(c.institution))
	v.Set("tab", "default_tab")
	v.Set("search_scope", "default_scope")
	v.Set("mode", "basic")
	v.Set("displayMode", "full")
	v.Set("bulkSize", strconv.Itoa(limit))
	v.Set("highlight", "true")
	v.Set("dum", "true")
	v.Set("query", "any,contains,"+query)
	return v
}

// ParsePNXs extracts the pnx object of every document of a search response
func ParsePNXs(body []byte) ([]PNX, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	raw, ok := payload["docs"]
	if !ok {
		return nil, fmt.Errorf("%w: no docs", ErrParse)
	}

	var docs []struct {
		PNX PNX `json:"pnx"`
	}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	pnxs := make([]PNX, 0, len(docs))
	for _, d := range docs {
		if d.PNX == nil {
			d.PNX = PNX{}
		}
		pnxs = append(pnxs, d.PNX)
	}
	return pnxs, nil
}
