package college

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/facultyscope/internal/model"
)

const defaultAZIndexPath = "/Data/List/azc"

// azIndexLister reads an alphabetical people index where each member is
// rendered as <a class="people" href="/Data/View/4784">Name</a>. The last
// path segment of a numeric member link is the member id.
type azIndexLister struct {
	cfg     model.CollegeConfig
	fetcher Fetcher
}

func newAZIndexLister(cfg model.CollegeConfig, f Fetcher, _ []string) (Lister, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("college %s: azindex requires base_url", cfg.Code)
	}
	return &azIndexLister{cfg: cfg, fetcher: f}, nil
}

func (l *azIndexLister) List(ctx context.Context) ([]Entry, error) {
	listPath := l.cfg.ListPath
	if listPath == "" {
		listPath = defaultAZIndexPath
	}
	listURL := resolveURL(l.cfg.BaseURL, listPath)
	result, err := l.fetcher.FetchWithRetry(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("fetch people index: %w", err)
	}
	return parseAZIndex(result.Body, listURL)
}

func parseAZIndex(body []byte, pageURL string) ([]Entry, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse people index: %w", err)
	}

	links := findAll(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.A && hasClass(n, "people") && attr(n, "href") != ""
	})

	entries := make([]Entry, 0, len(links))
	for _, a := range links {
		name := nodeText(a)
		if name == "" {
			continue
		}
		href := attr(a, "href")
		entry := Entry{
			"title": name,
			"url":   resolveURL(pageURL, href),
		}
		if id := path.Base(href); id != "" {
			if _, err := strconv.Atoi(id); err == nil {
				entry["id"] = id
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
