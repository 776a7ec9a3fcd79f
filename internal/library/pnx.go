package library

import (
	"encoding/json"
	"strings"

	"github.com/ppiankov/facultyscope/internal/model"
)

// PNX is a Primo normalized record: section name to field name to values.
// Fields found at the top level are kept under the empty section.
type PNX map[string]map[string][]string

// Get returns the values of section.field
func (p PNX) Get(section, field string) []string {
	return p[section][field]
}

// UnmarshalJSON decodes a pnx object. Scalar values become one-element lists
// and values of other shapes are ignored.
func (p *PNX) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(PNX, len(raw))
	for name, value := range raw {
		var section map[string]json.RawMessage
		if err := json.Unmarshal(value, &section); err == nil {
			fields := make(map[string][]string, len(section))
			for field, v := range section {
				if values, ok := decodeValues(v); ok {
					fields[field] = values
				}
			}
			out[name] = fields
			continue
		}
		if values, ok := decodeValues(value); ok {
			if out[""] == nil {
				out[""] = make(map[string][]string)
			}
			out[""][name] = values
		}
	}
	*p = out
	return nil
}

func decodeValues(raw json.RawMessage) ([]string, bool) {
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		values := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
		return values, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}, true
	}
	return nil, false
}

// firstNonEmpty joins the first non-empty value list with newlines
func firstNonEmpty(lists ...[]string) string {
	for _, l := range lists {
		if len(l) > 0 {
			return strings.Join(l, "\n")
		}
	}
	return ""
}

func firstValue(lists ...[]string) string {
	for _, l := range lists {
		if len(l) > 0 {
			return l[0]
		}
	}
	return ""
}

// FromPNX builds a document from a pnx record. Creator strings list several
// names separated by whitespace.
func FromPNX(p PNX) model.Document {
	var creators []string
	for _, src := range [][]string{
		p.Get("search", "creatorcontrib"),
		p.Get("search", "creator"),
		p.Get("display", "creator"),
		p.Get("sort", "author"),
		p.Get("addata", "au"),
		p.Get("facets", "creatorcontrib"),
	} {
		for _, s := range src {
			creators = append(creators, strings.Fields(s)...)
		}
	}

	var subjects []string
	subjects = append(subjects, p.Get("search", "subject")...)
	if display := p.Get("display", "subject"); len(display) > 0 {
		subjects = append(subjects, strings.Split(strings.Join(display, " ; "), " ; ")...)
	}
	subjects = append(subjects, p.Get("facets", "topic")...)

	return model.NewDocument(model.Document{
		CreatorCN:     creators,
		SubjectCN:     subjects,
		DescriptionCN: firstNonEmpty(p.Get("search", "description"), p.Get("display", "description"), p.Get("addata", "abstract")),
		TitleCN:       firstNonEmpty(p.Get("display", "title"), p.Get("sort", "title"), p.Get("addata", "atitle")),
		AddTitleCN:    firstNonEmpty(p.Get("addata", "jtitle"), p.Get("", "jtitle")),
		AddTitleEN:    firstNonEmpty(p.Get("search", "addtitle"), p.Get("addata", "addtitle")),
		Type: firstNonEmpty(
			p.Get("search", "rsrctype"),
			p.Get("search", "recordtype"),
			p.Get("display", "type"),
			p.Get("control", "recordtype"),
			p.Get("addata", "genre"),
		),
		Language:  firstNonEmpty(p.Get("display", "language"), p.Get("facets", "language")),
		General:   p.Get("search", "general"),
		Publisher: firstNonEmpty(p.Get("display", "publisher"), p.Get("addata", "pub")),
		ISSN:      firstValue(p.Get("search", "issn"), p.Get("addata", "issn")),
		DOI:       firstValue(p.Get("addata", "doi")),
	})
}
