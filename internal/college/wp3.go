package college

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/ppiankov/facultyscope/internal/fetch"
	"github.com/ppiankov/facultyscope/internal/model"
)

// ErrUnexpectedFormat is returned when a directory response lacks its data
var ErrUnexpectedFormat = errors.New("unexpected directory response format")

const wp3QueryPath = "/_wp3services/generalQuery"

// wp3Lister reads the member directory of a WebPlus site. The articles query
// lists one site column; the teacherHome query lists the teacher homepages of
// the whole site.
type wp3Lister struct {
	cfg     model.CollegeConfig
	fetcher Fetcher
	keys    []string
	query   string
	order   string
}

func newWP3Lister(cfg model.CollegeConfig, f Fetcher, keys []string) (Lister, error) {
	l := &wp3Lister{cfg: cfg, fetcher: f, keys: keys, query: cfg.Query, order: cfg.OrderField}
	if l.query == "" {
		l.query = model.WP3QueryArticles
	}
	if l.order == "" {
		l.order = "letter"
	}

	switch l.query {
	case model.WP3QueryArticles:
		if cfg.ColumnID == "" {
			return nil, fmt.Errorf("college %s: wp3 requires column_id", cfg.Code)
		}
	case model.WP3QueryTeacherHome:
		if cfg.SiteID == "" {
			return nil, fmt.Errorf("college %s: wp3 %s query requires site_id", cfg.Code, l.query)
		}
	default:
		return nil, fmt.Errorf("college %s: unknown wp3 query %q", cfg.Code, cfg.Query)
	}
	if cfg.Conditions != "" && !json.Valid([]byte(cfg.Conditions)) {
		return nil, fmt.Errorf("college %s: conditions are not valid JSON", cfg.Code)
	}
	return l, nil
}

func (l *wp3Lister) List(ctx context.Context) ([]Entry, error) {
	form := url.Values{}
	if l.cfg.SiteID != "" {
		form.Set("siteId", l.cfg.SiteID)
	}
	if l.cfg.ColumnID != "" {
		form.Set("columnId", l.cfg.ColumnID)
	}
	form.Set("orders", fmt.Sprintf(`[{"field":%q,"type":"asc"}]`, l.order))
	form.Set("returnInfos", returnInfos(l.keys))
	form.Set("articleType", "1")
	form.Set("level", "1")
	if l.cfg.Conditions != "" {
		form.Set("conditions", l.cfg.Conditions)
	}

	header := http.Header{}
	header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	header.Set("X-Requested-With", "XMLHttpRequest")
	header.Set("Origin", strings.TrimRight(l.cfg.BaseURL, "/"))
	if l.cfg.ListPath != "" {
		header.Set("Referer", resolveURL(l.cfg.BaseURL, l.cfg.ListPath))
	}

	result, err := l.fetcher.DoWithRetry(ctx, fetch.Request{
		Method: http.MethodPost,
		URL:    strings.TrimRight(l.cfg.BaseURL, "/") + wp3QueryPath + "?queryObj=" + url.QueryEscape(l.query),
		Header: header,
		Form:   form,
	})
	if err != nil {
		return nil, fmt.Errorf("query directory: %w", err)
	}
	return parseWP3(result.Body)
}

// parseWP3 decodes {"data":[...]} into entries, rendering every value as a
// string
func parseWP3(body []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload map[string]json.RawMessage
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}
	raw, ok := payload["data"]
	if !ok {
		return nil, ErrUnexpectedFormat
	}

	var items []map[string]any
	dec = json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode directory data: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entry := make(Entry, len(item))
		for k, v := range item {
			entry[k] = stringify(v)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// returnInfos lists the directory columns the query should return
func returnInfos(keys []string) string {
	type info struct {
		Field string `json:"field"`
		Name  string `json:"name"`
	}
	infos := make([]info, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, info{Field: k, Name: k})
	}
	data, _ := json.Marshal(infos)
	return string(data)
}

// entryKeys collects the listing keys referenced by the field configuration.
// "id" is always returned by the service and is not requested.
func entryKeys(specs []fieldSpec, pageKey string) []string {
	seen := map[string]bool{"id": true, "title": true, "url": true}
	keys := []string{"title", "url"}
	if pageKey != "" && !seen[pageKey] {
		seen[pageKey] = true
		keys = append(keys, pageKey)
	}

	var extra []string
	for _, spec := range specs {
		for _, alt := range spec.alternatives {
			for _, r := range alt {
				if r.kind == refEntry && !seen[r.arg] {
					seen[r.arg] = true
					extra = append(extra, r.arg)
				}
			}
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}
