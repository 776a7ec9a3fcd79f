package college

import (
	"bytes"
	"context"
	"fmt"
	"regexp"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/facultyscope/internal/model"
)

// memberURLPattern extracts the article id of a WebPlus member page URL
var memberURLPattern = regexp.MustCompile(`/c\d+a(\d+)/page\.htm`)

// listPageLister reads members from an HTML list page where each member is
// rendered as <li name="..."><a href="...">Name</a></li>
type listPageLister struct {
	cfg     model.CollegeConfig
	fetcher Fetcher
}

func newListPageLister(cfg model.CollegeConfig, f Fetcher, _ []string) (Lister, error) {
	if cfg.ListPath == "" {
		return nil, fmt.Errorf("college %s: listpage requires list_path", cfg.Code)
	}
	return &listPageLister{cfg: cfg, fetcher: f}, nil
}

func (l *listPageLister) List(ctx context.Context) ([]Entry, error) {
	listURL := resolveURL(l.cfg.BaseURL, l.cfg.ListPath)
	result, err := l.fetcher.FetchWithRetry(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("fetch list page: %w", err)
	}
	return parseListPage(result.Body, listURL)
}

func parseListPage(body []byte, pageURL string) ([]Entry, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse list page: %w", err)
	}

	items := findAll(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Li {
			return false
		}
		for _, a := range n.Attr {
			if a.Key == "name" {
				return true
			}
		}
		return false
	})

	entries := make([]Entry, 0, len(items))
	for _, li := range items {
		var link *html.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.A {
				link = c
				break
			}
		}
		if link == nil {
			continue
		}

		href := resolveURL(pageURL, attr(link, "href"))
		entry := Entry{
			"title": nodeText(link),
			"url":   href,
		}
		if m := memberURLPattern.FindStringSubmatch(href); m != nil {
			entry["id"] = m[1]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
